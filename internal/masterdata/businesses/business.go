// Package businesses defines the business code book.
package businesses

import (
	"fmt"

	"github.com/loomworks/erpconsole/internal/masterdata/codebook"
)

// Business is one business code: a supplier, job worker, agent or
// transporter the mill deals with.
type Business struct {
	codebook.Base
	BusinessType string `json:"business_type" validate:"required,oneof=supplier job_worker agent transporter"`
	TaxID        string `json:"tax_id" validate:"omitempty,alphanum,len=15"`
	City         string `json:"city" validate:"max=60"`
}

// Definition describes the business code book.
var Definition = (&codebook.Definition[Business]{
	Key:      "business-codes",
	Title:    "Business Codes",
	Singular: "Business Code",
	Table:    "business_codes",
	Base:     func(b *Business) *codebook.Base { return &b.Base },
	Fields: []codebook.Field[Business]{
		{Name: "business_type", Column: "business_type", Label: "Type", Input: codebook.InputText, Sortable: true, Filterable: true,
			Ptr: func(b *Business) any { return &b.BusinessType }},
		{Name: "tax_id", Column: "tax_id", Label: "GSTIN", Input: codebook.InputText, Searchable: true, Filterable: true,
			Ptr: func(b *Business) any { return &b.TaxID }},
		{Name: "city", Column: "city", Label: "City", Input: codebook.InputText, Sortable: true, Filterable: true, Searchable: true,
			Ptr: func(b *Business) any { return &b.City }},
	},
}).MustValidate()

// New assembles the business book.
func New(deps codebook.Deps) *codebook.Module[Business] {
	return codebook.NewModule(Definition, deps, Seed())
}

// Seed returns the demo records used when no database is configured.
func Seed() []Business {
	rows := []struct{ name, kind, city string }{
		{"Shree Ganesh Sizing", "job_worker", "Bhiwandi"},
		{"Maruti Transport Co", "transporter", "Surat"},
		{"Arvind Yarn Agency", "agent", "Ahmedabad"},
		{"Krishna Processors", "job_worker", "Ichalkaranji"},
		{"Bharat Chemicals", "supplier", "Vapi"},
		{"Om Logistics", "transporter", "Mumbai"},
		{"Laxmi Dyeing Works", "job_worker", "Tiruppur"},
		{"Sagar Packaging", "supplier", "Surat"},
	}
	out := make([]Business, len(rows))
	for i, r := range rows {
		out[i] = Business{
			Base:         codebook.Base{Code: fmt.Sprintf("BUS-%03d", i+1), Name: r.name},
			BusinessType: r.kind,
			TaxID:        fmt.Sprintf("27AAACB%04dF1Z%d", 1200+i*7, i%10),
			City:         r.city,
		}
	}
	return out
}
