package crptapi

import (
	"cloud.google.com/go/civil"
)

// DocumentType is the envelope type tag understood by the registration API.
type DocumentType string

const (
	// DocumentTypeIntroduceGoods introduces goods produced in the Russian Federation into circulation.
	DocumentTypeIntroduceGoods DocumentType = "LP_INTRODUCE_GOODS"
)

// String returns the wire value of the type tag.
func (t DocumentType) String() string {
	return string(t)
}

// Document is the "introduce goods" document body.
// Unset dates and a nil Description are sent as JSON null.
type Document struct {
	Description *Description

	DocID     string
	DocStatus string
	DocType   string

	// ImportRequest marks the document as an import request.
	ImportRequest bool

	OwnerINN       string
	ParticipantINN string
	ProducerINN    string

	ProductionDate civil.Date
	ProductionType string

	Products []Product

	RegDate   civil.Date
	RegNumber string
}

// Description identifies the participant submitting the document.
type Description struct {
	ParticipantINN string
}

// Product is one item being introduced into circulation.
type Product struct {
	CertificateDocument       string
	CertificateDocumentDate   civil.Date
	CertificateDocumentNumber string

	OwnerINN    string
	ProducerINN string

	ProductionDate civil.Date

	TNVEDCode string // commodity classification code
	UITCode   string // unit identifier
	UITUCode  string // transport package identifier
}

// Envelope is the request body sent to the API: the serialized document,
// its type tag and the caller's signature.
type Envelope struct {
	ProductDocument string
	Type            DocumentType
	Signature       string
}
