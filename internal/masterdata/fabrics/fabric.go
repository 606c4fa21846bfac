// Package fabrics defines the fabric code book.
package fabrics

import (
	"fmt"

	"github.com/loomworks/erpconsole/internal/masterdata/codebook"
)

// Fabric is one fabric code.
type Fabric struct {
	codebook.Base
	Construction string `json:"construction" validate:"required,max=60"`
	WidthCM      int    `json:"width_cm" validate:"gte=0,lte=400"`
	GSM          int    `json:"gsm" validate:"gte=0,lte=2000"`
	YarnCode     string `json:"yarn_code" validate:"max=32"`
}

// Definition describes the fabric code book.
var Definition = (&codebook.Definition[Fabric]{
	Key:      "fabric-codes",
	Title:    "Fabric Codes",
	Singular: "Fabric Code",
	Table:    "fabric_codes",
	Base:     func(f *Fabric) *codebook.Base { return &f.Base },
	Fields: []codebook.Field[Fabric]{
		{Name: "construction", Column: "construction", Label: "Construction", Input: codebook.InputText, Filterable: true, Searchable: true,
			Ptr: func(f *Fabric) any { return &f.Construction }},
		{Name: "width_cm", Column: "width_cm", Label: "Width (cm)", Input: codebook.InputNumber, Sortable: true, Filterable: true,
			Ptr: func(f *Fabric) any { return &f.WidthCM }},
		{Name: "gsm", Column: "gsm", Label: "GSM", Input: codebook.InputNumber, Sortable: true, Filterable: true,
			Ptr: func(f *Fabric) any { return &f.GSM }},
		{Name: "yarn_code", Column: "yarn_code", Label: "Yarn", Input: codebook.InputText, Sortable: true, Filterable: true, Searchable: true,
			Ptr: func(f *Fabric) any { return &f.YarnCode }},
	},
}).MustValidate()

// New assembles the fabric book.
func New(deps codebook.Deps) *codebook.Module[Fabric] {
	return codebook.NewModule(Definition, deps, Seed())
}

// Seed returns the demo records used when no database is configured.
func Seed() []Fabric {
	constructions := []string{"Plain 60x60", "Twill 2/1", "Satin 4/1", "Poplin 132x72", "Oxford 2x1"}
	widths := []int{147, 152, 160}
	out := make([]Fabric, 20)
	for i := range out {
		c := constructions[i%len(constructions)]
		out[i] = Fabric{
			Base:         codebook.Base{Code: fmt.Sprintf("FAB-%03d", i+1), Name: c + " Greige"},
			Construction: c,
			WidthCM:      widths[i%len(widths)],
			GSM:          110 + (i%6)*15,
			YarnCode:     fmt.Sprintf("YRN-%03d", i%8+1),
		}
	}
	return out
}
