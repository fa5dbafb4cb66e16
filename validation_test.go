package crptapi

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name:    "valid document",
			doc:     fullDocument(),
			wantErr: nil,
		},
		{
			name:    "empty document",
			doc:     &Document{},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrNilDocument,
		},
		{
			name: "invalid production date",
			doc: &Document{
				ProductionDate: civil.Date{Year: 2024, Month: 13, Day: 1},
			},
			wantErr: ErrInvalidDate,
		},
		{
			name: "invalid registration date",
			doc: &Document{
				RegDate: civil.Date{Year: 2023, Month: time.February, Day: 29},
			},
			wantErr: ErrInvalidDate,
		},
		{
			name: "year past four digits",
			doc: &Document{
				RegDate: civil.Date{Year: 10000, Month: time.January, Day: 1},
			},
			wantErr: ErrInvalidDate,
		},
		{
			name: "negative year",
			doc: &Document{
				ProductionDate: civil.Date{Year: -5, Month: time.January, Day: 1},
			},
			wantErr: ErrInvalidDate,
		},
		{
			name: "last four-digit year",
			doc: &Document{
				RegDate: civil.Date{Year: 9999, Month: time.December, Day: 31},
			},
			wantErr: nil,
		},
		{
			name: "invalid product date",
			doc: &Document{
				Products: []Product{
					{ProductionDate: civil.Date{Year: 2024, Month: time.January, Day: 1}},
					{CertificateDocumentDate: civil.Date{Year: 2024, Month: time.April, Day: 31}},
				},
			},
			wantErr: ErrInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDocument_InvalidIsSerializationError(t *testing.T) {
	_, err := EncodeDocument(&Document{RegDate: civil.Date{Year: 2024, Month: time.June, Day: 31}})
	if !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument, got %v", err)
	}
	if !errors.Is(err, ErrInvalidDate) {
		t.Errorf("expected the cause to be kept, got %v", err)
	}
	if !IsSerializationError(err) {
		t.Errorf("expected *SerializationError, got %T", err)
	}
}

func TestDocument_EncodedDatesRoundTrip(t *testing.T) {
	for _, d := range []civil.Date{
		{Year: 1, Month: time.January, Day: 1},
		{Year: 9999, Month: time.December, Day: 31},
	} {
		data, err := EncodeDocument(&Document{RegDate: d})
		if err != nil {
			t.Fatalf("EncodeDocument(%v) error = %v", d, err)
		}
		decoded, err := DecodeDocument(data)
		if err != nil {
			t.Fatalf("DecodeDocument(%s) error = %v", data, err)
		}
		if decoded.RegDate != d {
			t.Errorf("expected %v, got %v", d, decoded.RegDate)
		}
	}

	for _, year := range []int{10000, -5} {
		_, err := EncodeDocument(&Document{RegDate: civil.Date{Year: year, Month: time.January, Day: 1}})
		if !errors.Is(err, ErrMalformedDocument) || !errors.Is(err, ErrInvalidDate) {
			t.Errorf("year %d: expected a malformed document error, got %v", year, err)
		}
	}
}
