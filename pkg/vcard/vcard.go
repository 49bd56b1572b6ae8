// Package vcard converts contacts between the storage model and vCard 3.0
// documents.
package vcard

import (
	"bytes"
	"strings"
	"time"

	govcard "github.com/emersion/go-vcard"
)

// TypedValue is a value with a channel type such as "home" or "work".
type TypedValue struct {
	Type  string
	Value string
}

// Contact is the address-book-neutral contact shape shared by the codec
// and the DAV handlers.
type Contact struct {
	UID          string
	FullName     string
	GivenName    string
	Surname      string
	Organization string
	Emails       []TypedValue
	Phones       []TypedValue
	Addresses    []TypedValue
	Notes        string
	UpdatedAt    time.Time
}

// Encode serializes the contact as a vCard 3.0 document.
func Encode(c *Contact) ([]byte, error) {
	card := make(govcard.Card)
	card.SetValue(govcard.FieldVersion, "3.0")
	card.SetValue(govcard.FieldFormattedName, c.FullName)
	if c.GivenName != "" || c.Surname != "" {
		card.SetValue(govcard.FieldName, c.Surname+";"+c.GivenName+";;;")
	}
	if c.UID != "" {
		card.SetValue(govcard.FieldUID, c.UID)
	}
	if c.Organization != "" {
		card.SetValue(govcard.FieldOrganization, c.Organization)
	}
	for _, email := range c.Emails {
		card.Add(govcard.FieldEmail, typedField(email.Value, email.Type))
	}
	for _, phone := range c.Phones {
		card.Add(govcard.FieldTelephone, typedField(phone.Value, phone.Type))
	}
	for _, addr := range c.Addresses {
		// Street-only ADR; the portal model keeps addresses freeform.
		card.Add(govcard.FieldAddress, typedField(";;"+addr.Value+";;;;", addr.Type))
	}
	if c.Notes != "" {
		card.SetValue(govcard.FieldNote, c.Notes)
	}
	if !c.UpdatedAt.IsZero() {
		card.SetValue("REV", c.UpdatedAt.UTC().Format("20060102T150405Z"))
	}

	var buf bytes.Buffer
	if err := govcard.NewEncoder(&buf).Encode(card); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a vCard document. Untyped EMAIL, TEL and ADR fields
// default to the "home" type.
func Decode(data []byte) (*Contact, error) {
	card, err := govcard.NewDecoder(bytes.NewReader(normalizeCRLF(data))).Decode()
	if err != nil {
		return nil, err
	}

	c := &Contact{
		UID:          card.Value(govcard.FieldUID),
		FullName:     card.Value(govcard.FieldFormattedName),
		Organization: card.Value(govcard.FieldOrganization),
		Notes:        card.Value(govcard.FieldNote),
	}
	if name := card.Name(); name != nil {
		c.GivenName = name.GivenName
		c.Surname = name.FamilyName
	}
	for _, f := range card[govcard.FieldEmail] {
		c.Emails = append(c.Emails, TypedValue{Type: fieldType(f), Value: f.Value})
	}
	for _, f := range card[govcard.FieldTelephone] {
		c.Phones = append(c.Phones, TypedValue{Type: fieldType(f), Value: f.Value})
	}
	for _, f := range card[govcard.FieldAddress] {
		c.Addresses = append(c.Addresses, TypedValue{Type: fieldType(f), Value: streetValue(f.Value)})
	}
	return c, nil
}

func typedField(value, typ string) *govcard.Field {
	f := &govcard.Field{Value: value}
	if typ != "" {
		f.Params = govcard.Params{govcard.ParamType: {strings.ToUpper(typ)}}
	}
	return f
}

func fieldType(f *govcard.Field) string {
	if f.Params != nil {
		if t := f.Params.Get(govcard.ParamType); t != "" {
			return strings.ToLower(t)
		}
	}
	return "home"
}

// streetValue extracts the street component from a structured ADR value,
// falling back to the raw value for non-structured input.
func streetValue(v string) string {
	parts := strings.Split(v, ";")
	if len(parts) >= 3 {
		return parts[2]
	}
	return v
}

// normalizeCRLF repairs bare-LF documents; some clients fold lines with
// plain newlines.
func normalizeCRLF(data []byte) []byte {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(data, []byte("\n"), []byte("\r\n"))
}
