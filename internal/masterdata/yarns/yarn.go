// Package yarns defines the yarn code book.
package yarns

import (
	"fmt"

	"github.com/loomworks/erpconsole/internal/masterdata/codebook"
)

// Yarn is one yarn code.
type Yarn struct {
	codebook.Base
	Count       string `json:"count" validate:"required,max=16"`
	Composition string `json:"composition" validate:"max=120"`
	Color       string `json:"color" validate:"max=40"`
	Supplier    string `json:"supplier" validate:"max=120"`
}

// Definition describes the yarn code book.
var Definition = (&codebook.Definition[Yarn]{
	Key:      "yarn-codes",
	Title:    "Yarn Codes",
	Singular: "Yarn Code",
	Table:    "yarn_codes",
	Base:     func(y *Yarn) *codebook.Base { return &y.Base },
	Fields: []codebook.Field[Yarn]{
		{Name: "count", Column: "count", Label: "Count", Input: codebook.InputText, Sortable: true, Filterable: true,
			Ptr: func(y *Yarn) any { return &y.Count }},
		{Name: "composition", Column: "composition", Label: "Composition", Input: codebook.InputText, Filterable: true, Searchable: true,
			Ptr: func(y *Yarn) any { return &y.Composition }},
		{Name: "color", Column: "color", Label: "Color", Input: codebook.InputText, Sortable: true, Filterable: true,
			Ptr: func(y *Yarn) any { return &y.Color }},
		{Name: "supplier", Column: "supplier", Label: "Supplier", Input: codebook.InputText, Sortable: true, Filterable: true, Searchable: true,
			Ptr: func(y *Yarn) any { return &y.Supplier }},
	},
}).MustValidate()

// New assembles the yarn book.
func New(deps codebook.Deps) *codebook.Module[Yarn] {
	return codebook.NewModule(Definition, deps, Seed())
}

// Seed returns the demo records used when no database is configured.
func Seed() []Yarn {
	counts := []string{"20s", "30s", "40s", "60s"}
	compositions := []string{"100% Cotton", "65/35 Poly-Cotton", "100% Viscose", "52/48 Cotton-Modal"}
	colors := []string{"Raw White", "Navy", "Heather Grey"}
	suppliers := []string{"Vardhman Textiles", "Trident Ltd", "Nitin Spinners"}

	out := make([]Yarn, 48)
	for i := range out {
		out[i] = Yarn{
			Base:        codebook.Base{Code: fmt.Sprintf("YRN-%03d", i+1), Name: fmt.Sprintf("%s %s", counts[i%4], compositions[i%4])},
			Count:       counts[i%4],
			Composition: compositions[i%4],
			Color:       colors[i%3],
			Supplier:    suppliers[i%3],
		}
	}
	return out
}
