package audit

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

var csvHeader = []string{"occurred_at", "actor_id", "actor", "action", "entity", "entity_id", "code"}

// WriteCSV writes entries as CSV with a header row.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{
			e.At.UTC().Format(time.RFC3339),
			strconv.FormatInt(e.ActorID, 10),
			e.Actor,
			e.Action,
			e.Entity,
			e.EntityID,
			e.Code(),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
