package linear

import (
	"bytes"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// timestamp decodes both Linear DateTime ("2024-01-02T03:04:05.000Z") and
// TimelessDate ("2024-01-02") values. JSON null leaves it unset.
type timestamp struct {
	t *time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
}

func (ts *timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		ts.t = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		ts.t = nil
		return nil
	}

	t, err := ParseTime(s)
	if err != nil {
		return err
	}
	ts.t = &t
	return nil
}

// ParseTime parses a Linear DateTime or TimelessDate. Dates without a time
// component are midnight UTC.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp: unrecognized format %q", s)
}
