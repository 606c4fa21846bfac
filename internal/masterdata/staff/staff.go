// Package staff defines the staff code book.
package staff

import (
	"fmt"
	"strings"

	"github.com/loomworks/erpconsole/internal/masterdata/codebook"
)

// Member is one staff code.
type Member struct {
	codebook.Base
	Department string `json:"department" validate:"required,max=60"`
	Position   string `json:"position" validate:"max=60"`
	Email      string `json:"email" validate:"omitempty,email,max=120"`
	Phone      string `json:"phone" validate:"omitempty,max=20"`
	Active     bool   `json:"active"`
}

// Definition describes the staff code book.
var Definition = (&codebook.Definition[Member]{
	Key:      "staff-codes",
	Title:    "Staff Codes",
	Singular: "Staff Code",
	Table:    "staff_codes",
	Base:     func(m *Member) *codebook.Base { return &m.Base },
	Fields: []codebook.Field[Member]{
		{Name: "department", Column: "department", Label: "Department", Input: codebook.InputText, Sortable: true, Filterable: true, Searchable: true,
			Ptr: func(m *Member) any { return &m.Department }},
		{Name: "position", Column: "position", Label: "Position", Input: codebook.InputText, Sortable: true, Filterable: true,
			Ptr: func(m *Member) any { return &m.Position }},
		{Name: "email", Column: "email", Label: "Email", Input: codebook.InputEmail, Searchable: true, Filterable: true,
			Ptr: func(m *Member) any { return &m.Email }},
		{Name: "phone", Column: "phone", Label: "Phone", Input: codebook.InputText, Hidden: true,
			Ptr: func(m *Member) any { return &m.Phone }},
		{Name: "active", Column: "active", Label: "Active", Input: codebook.InputCheckbox, Sortable: true, Filterable: true,
			Ptr: func(m *Member) any { return &m.Active }},
	},
}).MustValidate()

// New assembles the staff book.
func New(deps codebook.Deps) *codebook.Module[Member] {
	return codebook.NewModule(Definition, deps, Seed())
}

// Seed returns the demo records used when no database is configured.
func Seed() []Member {
	people := []struct{ name, dept, pos string }{
		{"Anita Desai", "Weaving", "Supervisor"},
		{"Ravi Kumar", "Spinning", "Operator"},
		{"Meera Shah", "Accounts", "Accountant"},
		{"Imran Qureshi", "Dyeing", "Technician"},
		{"Sunil Patil", "Weaving", "Jobber"},
		{"Kavya Nair", "Quality", "Inspector"},
		{"Arjun Mehta", "Sales", "Executive"},
		{"Pooja Iyer", "Stores", "Storekeeper"},
		{"Deepak Rao", "Maintenance", "Fitter"},
		{"Farah Khan", "HR", "Officer"},
	}
	out := make([]Member, len(people))
	for i, p := range people {
		first := strings.ToLower(strings.Fields(p.name)[0])
		out[i] = Member{
			Base:       codebook.Base{Code: fmt.Sprintf("STF-%03d", i+1), Name: p.name},
			Department: p.dept,
			Position:   p.pos,
			Email:      first + "@loom.local",
			Phone:      fmt.Sprintf("+91 98200 %05d", 10000+i*137),
			Active:     i%4 != 3,
		}
	}
	return out
}
