// Package items defines the item code book.
package items

import (
	"fmt"

	"github.com/loomworks/erpconsole/internal/masterdata/codebook"
)

// Item is one item code.
type Item struct {
	codebook.Base
	Category string `json:"category" validate:"required,max=60"`
	Unit     string `json:"unit" validate:"required,max=12"`
	HSCode   string `json:"hs_code" validate:"omitempty,numeric,min=4,max=10"`
}

// Definition describes the item code book.
var Definition = (&codebook.Definition[Item]{
	Key:      "item-codes",
	Title:    "Item Codes",
	Singular: "Item Code",
	Table:    "item_codes",
	Base:     func(it *Item) *codebook.Base { return &it.Base },
	Fields: []codebook.Field[Item]{
		{Name: "category", Column: "category", Label: "Category", Input: codebook.InputText, Sortable: true, Filterable: true, Searchable: true,
			Ptr: func(it *Item) any { return &it.Category }},
		{Name: "unit", Column: "unit", Label: "Unit", Input: codebook.InputText, Sortable: true, Filterable: true,
			Ptr: func(it *Item) any { return &it.Unit }},
		{Name: "hs_code", Column: "hs_code", Label: "HS Code", Input: codebook.InputText, Filterable: true, Searchable: true,
			Ptr: func(it *Item) any { return &it.HSCode }},
	},
}).MustValidate()

// New assembles the item book.
func New(deps codebook.Deps) *codebook.Module[Item] {
	return codebook.NewModule(Definition, deps, Seed())
}

// Seed returns the demo records used when no database is configured.
func Seed() []Item {
	rows := []struct{ name, category, unit, hs string }{
		{"Cone Tube", "Packing", "PCS", "48221000"},
		{"Carton Box 5 Ply", "Packing", "PCS", "48191010"},
		{"Sizing Starch", "Chemical", "KG", "35051090"},
		{"Reactive Dye Blue", "Dye", "KG", "32041600"},
		{"Softener", "Chemical", "LTR", "38099190"},
		{"Loom Spare Heald Wire", "Spare", "PCS", "84483990"},
		{"Polybag", "Packing", "PCS", "39232100"},
		{"Reed 80 Dent", "Spare", "PCS", "84483310"},
		{"Caustic Soda", "Chemical", "KG", "28151110"},
		{"Label Woven", "Trim", "PCS", "58071020"},
		{"Disperse Dye Red", "Dye", "KG", "32041100"},
		{"Lubricating Oil", "Maintenance", "LTR", "27101980"},
	}
	out := make([]Item, len(rows))
	for i, r := range rows {
		out[i] = Item{
			Base:     codebook.Base{Code: fmt.Sprintf("ITM-%03d", i+1), Name: r.name},
			Category: r.category,
			Unit:     r.unit,
			HSCode:   r.hs,
		}
	}
	return out
}
