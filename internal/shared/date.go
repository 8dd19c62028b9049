package shared

import "time"

const dateOnlyLayout = "2006-01-02"

// DateOnly marshals as "2006-01-02". Purchase dates, warranty expiries and
// patch check dates carry no meaningful time of day.
type DateOnly struct {
	time.Time
}

func NewDateOnly(t time.Time) *DateOnly {
	if t.IsZero() {
		return nil
	}
	return &DateOnly{Time: t}
}

// ParseDateOnly parses a "2006-01-02" string, returning nil for empty input.
func ParseDateOnly(raw string) (*DateOnly, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateOnlyLayout, raw)
	if err != nil {
		return nil, err
	}
	return &DateOnly{Time: t}, nil
}

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateOnlyLayout) + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == "null" || raw == `""` {
		return nil
	}
	t, err := time.Parse(`"`+dateOnlyLayout+`"`, raw)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d DateOnly) String() string {
	return d.Format(dateOnlyLayout)
}
