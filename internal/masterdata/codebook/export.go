package codebook

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// WriteCSV writes every record of the book as CSV, straight from the store,
// and returns the number of data rows.
func (s *Service[T]) WriteCSV(ctx context.Context, w io.Writer) (int, error) {
	records, err := s.store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("codebook: %s: export load: %w", s.def.Key, err)
	}
	fields := s.def.AllFields()

	cw := csv.NewWriter(w)
	header := make([]string, 0, len(fields)+3)
	header = append(header, "id")
	for _, f := range fields {
		header = append(header, f.Name)
	}
	header = append(header, "created_at", "updated_at")
	if err := cw.Write(header); err != nil {
		return 0, err
	}

	for _, rec := range records {
		b := s.def.Base(&rec)
		row := make([]string, 0, len(header))
		row = append(row, strconv.FormatInt(b.ID, 10))
		for _, f := range fields {
			row = append(row, csvValue(deref(f.Ptr(&rec))))
		}
		row = append(row, b.CreatedAt.UTC().Format(time.RFC3339), b.UpdatedAt.UTC().Format(time.RFC3339))
		if err := cw.Write(row); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(records), cw.Error()
}

func csvValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}
