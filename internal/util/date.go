package util

import (
	"strings"
	"time"
)

const displayLayout = "02/01/2006 15:04"

// timestampLayouts are the shapes the backend uses for data_hora.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// FormatTimestamp renders a backend timestamp as DD/MM/YYYY HH:MM. Values in
// any other shape are returned unchanged.
func FormatTimestamp(raw string) string {
	s := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(displayLayout)
		}
	}
	return raw
}
