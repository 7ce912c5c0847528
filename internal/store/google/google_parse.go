package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"teamreports/internal/core"
)

const (
	colID = iota
	colOwner
	colCategory
	colValue
	colDescription
	colCreatedAt
)

func reportRow(r core.Report) []any {
	return []any{
		r.ID,
		r.OwnerID,
		r.Category,
		r.Value.String(),
		r.Description,
		r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// parseReports converts a values matrix (as returned by the Sheets API)
// into reports. Rows without a category are skipped; a value that is not
// a number is an error so exports never silently drop data.
func parseReports(values [][]any) ([]core.Report, error) {
	out := make([]core.Report, 0, len(values))
	for i, raw := range values {
		row := toStrings(raw)
		category := safeGet(row, colCategory)
		if strings.TrimSpace(category) == "" {
			continue
		}
		v, err := decimal.NewFromString(strings.TrimSpace(safeGet(row, colValue)))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid value %q: %w", i+2, safeGet(row, colValue), err)
		}
		r := core.Report{
			ID:          safeGet(row, colID),
			OwnerID:     safeGet(row, colOwner),
			Category:    category,
			Value:       v,
			Description: safeGet(row, colDescription),
		}
		if ts := strings.TrimSpace(safeGet(row, colCreatedAt)); ts != "" {
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				r.CreatedAt = t.UTC()
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func toStrings(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		switch t := v.(type) {
		case string:
			out[i] = t
		case float64:
			out[i] = strconv.FormatFloat(t, 'f', -1, 64)
		case nil:
			out[i] = ""
		default:
			out[i] = fmt.Sprint(t)
		}
	}
	return out
}

func safeGet(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func containsID(values [][]any, id string) bool {
	for _, row := range values {
		if safeGet(toStrings(row), 0) == id {
			return true
		}
	}
	return false
}
