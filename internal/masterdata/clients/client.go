// Package clients defines the client code book.
package clients

import (
	"fmt"

	"github.com/loomworks/erpconsole/internal/masterdata/codebook"
	"github.com/loomworks/erpconsole/internal/table"
)

// Client is one client code.
type Client struct {
	codebook.Base
	ContactPerson string  `json:"contact_person" validate:"max=120"`
	Email         string  `json:"email" validate:"omitempty,email,max=120"`
	Phone         string  `json:"phone" validate:"omitempty,max=20"`
	City          string  `json:"city" validate:"max=60"`
	CreditLimit   float64 `json:"credit_limit" validate:"gte=0"`
}

// Definition describes the client code book.
var Definition = (&codebook.Definition[Client]{
	Key:      "client-codes",
	Title:    "Client Codes",
	Singular: "Client Code",
	Table:    "client_codes",
	Base:     func(c *Client) *codebook.Base { return &c.Base },
	Fields: []codebook.Field[Client]{
		{Name: "contact_person", Column: "contact_person", Label: "Contact", Input: codebook.InputText, Filterable: true, Searchable: true,
			Ptr: func(c *Client) any { return &c.ContactPerson }},
		{Name: "email", Column: "email", Label: "Email", Input: codebook.InputEmail, Filterable: true, Searchable: true, Hidden: true,
			Ptr: func(c *Client) any { return &c.Email }},
		{Name: "phone", Column: "phone", Label: "Phone", Input: codebook.InputText, Hidden: true,
			Ptr: func(c *Client) any { return &c.Phone }},
		{Name: "city", Column: "city", Label: "City", Input: codebook.InputText, Sortable: true, Filterable: true, Searchable: true,
			Ptr: func(c *Client) any { return &c.City }},
		{Name: "credit_limit", Column: "credit_limit", Label: "Credit Limit", Input: codebook.InputNumber, Sortable: true,
			Ptr: func(c *Client) any { return &c.CreditLimit }, Render: formatAmount},
	},
}).MustValidate()

func formatAmount(v any) string {
	f, ok := v.(float64)
	if !ok {
		return table.FormatValue(v)
	}
	return fmt.Sprintf("%.2f", f)
}

// New assembles the client book.
func New(deps codebook.Deps) *codebook.Module[Client] {
	return codebook.NewModule(Definition, deps, Seed())
}

// Seed returns the demo records used when no database is configured.
func Seed() []Client {
	rows := []struct{ name, contact, city string }{
		{"Raymond Apparel", "N. Singhania", "Mumbai"},
		{"Welspun Home", "D. Goenka", "Vapi"},
		{"Siyaram Silk Mills", "R. Poddar", "Tarapur"},
		{"Bombay Dyeing", "S. Wadia", "Mumbai"},
		{"Alok Exports", "A. Jiwrajka", "Silvassa"},
		{"Grasim Fabrics", "K. Birla", "Nagda"},
		{"Mafatlal Denim", "H. Mafatlal", "Ahmedabad"},
		{"Vardhman Garments", "S. Oswal", "Ludhiana"},
		{"KPR Knits", "P. Ramasamy", "Coimbatore"},
		{"Page Textiles", "V. Genomal", "Bengaluru"},
		{"Trident Towels", "R. Gupta", "Barnala"},
		{"Indo Count Linen", "M. Jain", "Kolhapur"},
	}
	out := make([]Client, len(rows))
	for i, r := range rows {
		out[i] = Client{
			Base:          codebook.Base{Code: fmt.Sprintf("CLT-%03d", i+1), Name: r.name},
			ContactPerson: r.contact,
			Email:         fmt.Sprintf("purchase%d@client.example", i+1),
			Phone:         fmt.Sprintf("+91 22 4000 %04d", 1000+i*11),
			City:          r.city,
			CreditLimit:   float64(250000 + (i%5)*125000),
		}
	}
	return out
}
