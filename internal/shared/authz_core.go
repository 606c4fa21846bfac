package shared

// Console permissions.
const (
	PermCodesView   = "codes.view"
	PermCodesEdit   = "codes.edit"
	PermCodesExport = "codes.export"
)

// CoreScopes lists every permission the console checks.
func CoreScopes() []string {
	return []string{
		PermCodesView,
		PermCodesEdit,
		PermCodesExport,
	}
}
