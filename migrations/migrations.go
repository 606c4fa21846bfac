// Package migrations embeds the schema scripts applied by the seed tool.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed *.sql
var files embed.FS

// Script is one schema script.
type Script struct {
	Name string
	SQL  string
}

// Scripts returns every script in file name order.
func Scripts() ([]Script, error) {
	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	out := make([]Script, 0, len(names))
	for _, name := range names {
		raw, err := files.ReadFile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, Script{Name: name, SQL: string(raw)})
	}
	return out, nil
}
