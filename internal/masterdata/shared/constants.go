// Package shared holds the list parameters and errors every code book uses.
package shared

const (
	// Default pagination
	DefaultPage  = 1
	DefaultLimit = 10

	// Sort directions
	SortAsc  = "asc"
	SortDesc = "desc"

	// CopySuffix is appended to the code of a duplicated record.
	CopySuffix = "-COPY"
)
