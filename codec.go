package crptapi

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"
)

// dateLayout is the wire format of every date: calendar date, no time.
const dateLayout = "2006-01-02"

// field maps one wire name to a struct member. Objects are encoded in table order.
type field[T any] struct {
	name   string
	encode func(w *jwriter.Writer, v *T)
	decode func(in *jlexer.Lexer, v *T)
}

func stringField[T any](name string, member func(*T) *string) field[T] {
	return field[T]{
		name:   name,
		encode: func(w *jwriter.Writer, v *T) { w.String(*member(v)) },
		decode: func(in *jlexer.Lexer, v *T) { *member(v) = in.String() },
	}
}

func boolField[T any](name string, member func(*T) *bool) field[T] {
	return field[T]{
		name:   name,
		encode: func(w *jwriter.Writer, v *T) { w.Bool(*member(v)) },
		decode: func(in *jlexer.Lexer, v *T) { *member(v) = in.Bool() },
	}
}

func dateField[T any](name string, member func(*T) *civil.Date) field[T] {
	return field[T]{
		name:   name,
		encode: func(w *jwriter.Writer, v *T) { encodeDate(w, *member(v)) },
		decode: func(in *jlexer.Lexer, v *T) { decodeDate(in, member(v)) },
	}
}

var descriptionFields = []field[Description]{
	stringField("participantInn", func(d *Description) *string { return &d.ParticipantINN }),
}

var productFields = []field[Product]{
	stringField("certificate_document", func(p *Product) *string { return &p.CertificateDocument }),
	dateField("certificate_document_date", func(p *Product) *civil.Date { return &p.CertificateDocumentDate }),
	stringField("certificate_document_number", func(p *Product) *string { return &p.CertificateDocumentNumber }),
	stringField("owner_inn", func(p *Product) *string { return &p.OwnerINN }),
	stringField("producer_inn", func(p *Product) *string { return &p.ProducerINN }),
	dateField("production_date", func(p *Product) *civil.Date { return &p.ProductionDate }),
	stringField("tnved_code", func(p *Product) *string { return &p.TNVEDCode }),
	stringField("uit_code", func(p *Product) *string { return &p.UITCode }),
	stringField("uitu_code", func(p *Product) *string { return &p.UITUCode }),
}

var documentFields = []field[Document]{
	{name: "description", encode: encodeDescription, decode: decodeDescription},
	stringField("doc_id", func(d *Document) *string { return &d.DocID }),
	stringField("doc_status", func(d *Document) *string { return &d.DocStatus }),
	stringField("doc_type", func(d *Document) *string { return &d.DocType }),
	boolField("importRequest", func(d *Document) *bool { return &d.ImportRequest }),
	stringField("owner_inn", func(d *Document) *string { return &d.OwnerINN }),
	stringField("participant_inn", func(d *Document) *string { return &d.ParticipantINN }),
	stringField("producer_inn", func(d *Document) *string { return &d.ProducerINN }),
	dateField("production_date", func(d *Document) *civil.Date { return &d.ProductionDate }),
	stringField("production_type", func(d *Document) *string { return &d.ProductionType }),
	{name: "products", encode: encodeProducts, decode: decodeProducts},
	dateField("reg_date", func(d *Document) *civil.Date { return &d.RegDate }),
	stringField("reg_number", func(d *Document) *string { return &d.RegNumber }),
}

var envelopeFields = []field[Envelope]{
	stringField("product_document", func(e *Envelope) *string { return &e.ProductDocument }),
	{
		name:   "type",
		encode: func(w *jwriter.Writer, e *Envelope) { w.String(string(e.Type)) },
		decode: func(in *jlexer.Lexer, e *Envelope) { e.Type = DocumentType(in.String()) },
	},
	stringField("signature", func(e *Envelope) *string { return &e.Signature }),
}

// Ensure the wire types implement the easyjson interfaces.
var (
	_ easyjson.MarshalerUnmarshaler = (*Document)(nil)
	_ easyjson.MarshalerUnmarshaler = (*Description)(nil)
	_ easyjson.MarshalerUnmarshaler = (*Product)(nil)
	_ easyjson.MarshalerUnmarshaler = (*Envelope)(nil)
)

func (d *Document) MarshalEasyJSON(w *jwriter.Writer) {
	encodeObject(w, d, documentFields)
}

func (d *Document) UnmarshalEasyJSON(in *jlexer.Lexer) {
	decodeObject(in, d, documentFields)
}

// MarshalJSON implements json.Marshaler using the wire field table.
func (d *Document) MarshalJSON() ([]byte, error) {
	return marshal(d)
}

// UnmarshalJSON implements json.Unmarshaler using the wire field table.
func (d *Document) UnmarshalJSON(data []byte) error {
	return easyjson.Unmarshal(data, d)
}

func (d *Description) MarshalEasyJSON(w *jwriter.Writer) {
	encodeObject(w, d, descriptionFields)
}

func (d *Description) UnmarshalEasyJSON(in *jlexer.Lexer) {
	decodeObject(in, d, descriptionFields)
}

func (p *Product) MarshalEasyJSON(w *jwriter.Writer) {
	encodeObject(w, p, productFields)
}

func (p *Product) UnmarshalEasyJSON(in *jlexer.Lexer) {
	decodeObject(in, p, productFields)
}

func (e *Envelope) MarshalEasyJSON(w *jwriter.Writer) {
	encodeObject(w, e, envelopeFields)
}

func (e *Envelope) UnmarshalEasyJSON(in *jlexer.Lexer) {
	decodeObject(in, e, envelopeFields)
}

func (e *Envelope) MarshalJSON() ([]byte, error) {
	return marshal(e)
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	return easyjson.Unmarshal(data, e)
}

// EncodeDocument validates doc and renders it in wire format.
func EncodeDocument(doc *Document) ([]byte, error) {
	if err := ValidateDocument(doc); err != nil {
		return nil, &SerializationError{Op: "encode document", Err: err}
	}
	data, err := marshal(doc)
	if err != nil {
		return nil, &SerializationError{Op: "encode document", Err: err}
	}
	return data, nil
}

// DecodeDocument parses a document in wire format.
func DecodeDocument(data []byte) (*Document, error) {
	var doc Document
	if err := easyjson.Unmarshal(data, &doc); err != nil {
		return nil, &SerializationError{Op: "decode document", Err: err}
	}
	return &doc, nil
}

// EncodeEnvelope renders the request body.
func EncodeEnvelope(env *Envelope) ([]byte, error) {
	if env == nil {
		return nil, &SerializationError{Op: "encode envelope", Err: ErrNilEnvelope}
	}
	data, err := marshal(env)
	if err != nil {
		return nil, &SerializationError{Op: "encode envelope", Err: err}
	}
	return data, nil
}

// DecodeEnvelope parses a request body.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := easyjson.Unmarshal(data, &env); err != nil {
		return nil, &SerializationError{Op: "decode envelope", Err: err}
	}
	return &env, nil
}

// marshal writes v without HTML escaping, matching what the API expects for free-text fields.
func marshal(v easyjson.Marshaler) ([]byte, error) {
	w := jwriter.Writer{NoEscapeHTML: true}
	v.MarshalEasyJSON(&w)
	return w.BuildBytes()
}

func encodeObject[T any](w *jwriter.Writer, v *T, fields []field[T]) {
	w.RawByte('{')
	for i := range fields {
		if i > 0 {
			w.RawByte(',')
		}
		w.String(fields[i].name)
		w.RawByte(':')
		fields[i].encode(w, v)
	}
	w.RawByte('}')
}

// decodeObject fills v from a JSON object. Unknown keys are skipped and
// null leaves a member at its zero value.
func decodeObject[T any](in *jlexer.Lexer, v *T, fields []field[T]) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		return
	}

	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		if f := lookupField(fields, key); f != nil {
			f.decode(in, v)
		} else {
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')

	if isTopLevel {
		in.Consumed()
	}
}

func lookupField[T any](fields []field[T], name string) *field[T] {
	for i := range fields {
		if fields[i].name == name {
			return &fields[i]
		}
	}
	return nil
}

func encodeDescription(w *jwriter.Writer, d *Document) {
	if d.Description == nil {
		w.RawString("null")
		return
	}
	encodeObject(w, d.Description, descriptionFields)
}

func decodeDescription(in *jlexer.Lexer, d *Document) {
	d.Description = new(Description)
	decodeObject(in, d.Description, descriptionFields)
}

func encodeProducts(w *jwriter.Writer, d *Document) {
	if d.Products == nil {
		w.RawString("null")
		return
	}
	w.RawByte('[')
	for i := range d.Products {
		if i > 0 {
			w.RawByte(',')
		}
		encodeObject(w, &d.Products[i], productFields)
	}
	w.RawByte(']')
}

func decodeProducts(in *jlexer.Lexer, d *Document) {
	in.Delim('[')
	d.Products = make([]Product, 0)
	for !in.IsDelim(']') {
		var p Product
		decodeObject(in, &p, productFields)
		d.Products = append(d.Products, p)
		in.WantComma()
	}
	in.Delim(']')
}

func encodeDate(w *jwriter.Writer, d civil.Date) {
	if d == (civil.Date{}) {
		w.RawString("null")
		return
	}
	w.String(formatDate(d))
}

func decodeDate(in *jlexer.Lexer, dst *civil.Date) {
	s := in.String()
	if !in.Ok() {
		return
	}
	d, err := parseDate(s)
	if err != nil {
		in.AddError(err)
		return
	}
	*dst = d
}

// formatDate renders d as YYYY-MM-DD.
func formatDate(d civil.Date) string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func parseDate(s string) (civil.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return civil.DateOf(t), nil
}
