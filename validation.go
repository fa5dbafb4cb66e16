package crptapi

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
)

// Validation errors
var (
	ErrNilDocument = errors.New("document cannot be nil")
	ErrNilEnvelope = errors.New("envelope cannot be nil")
	ErrInvalidDate = errors.New("invalid calendar date")
)

// ValidateDocument checks that doc can be rendered in wire format.
// Unset dates are allowed and sent as null.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return ErrNilDocument
	}

	if err := validateDate("production_date", doc.ProductionDate); err != nil {
		return err
	}
	if err := validateDate("reg_date", doc.RegDate); err != nil {
		return err
	}

	for i, p := range doc.Products {
		if err := validateProduct(p); err != nil {
			return fmt.Errorf("product %d: %w", i, err)
		}
	}

	return nil
}

func validateProduct(p Product) error {
	if err := validateDate("certificate_document_date", p.CertificateDocumentDate); err != nil {
		return err
	}
	return validateDate("production_date", p.ProductionDate)
}

// Years outside 0..9999 do not fit the four-digit wire format.
func validateDate(name string, d civil.Date) error {
	if d == (civil.Date{}) {
		return nil
	}
	if d.IsValid() && d.Year >= 0 && d.Year <= 9999 {
		return nil
	}
	return fmt.Errorf("%w: %s %04d-%02d-%02d", ErrInvalidDate, name, d.Year, int(d.Month), d.Day)
}
