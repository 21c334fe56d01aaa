package recurrence

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Freq is the tag of a repeat rule. The zero value means the task does not repeat.
type Freq int

const (
	None Freq = iota
	Daily
	Weekly
	Monthly
)

var freqNames = map[Freq]string{
	Daily:   "DAILY",
	Weekly:  "WEEKLY",
	Monthly: "MONTHLY",
}

var freqFromName = map[string]Freq{
	"DAILY":   Daily,
	"WEEKLY":  Weekly,
	"MONTHLY": Monthly,
}

var dayNames = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

var dayAbbrev = map[time.Weekday]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

// Rule describes how a task repeats. It is metadata only; nothing
// materializes future occurrences.
type Rule struct {
	Freq       Freq
	Days       []time.Weekday // WEEKLY only, at least one
	DayOfMonth int            // MONTHLY only, 1-31
}

func (r Rule) IsZero() bool { return r.Freq == None }

// Validate reports whether the rule is a well-formed member of the union.
func (r Rule) Validate() error {
	switch r.Freq {
	case None, Daily:
		if len(r.Days) > 0 || r.DayOfMonth != 0 {
			return fmt.Errorf("%s rule takes no days", r.freqLabel())
		}
	case Weekly:
		if len(r.Days) == 0 {
			return fmt.Errorf("weekly rule needs at least one day")
		}
		if r.DayOfMonth != 0 {
			return fmt.Errorf("weekly rule takes no day of month")
		}
	case Monthly:
		if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
			return fmt.Errorf("invalid day of month: %d", r.DayOfMonth)
		}
		if len(r.Days) > 0 {
			return fmt.Errorf("monthly rule takes no weekdays")
		}
	default:
		return fmt.Errorf("unknown frequency: %d", r.Freq)
	}
	return nil
}

func (r Rule) freqLabel() string {
	if r.Freq == None {
		return "none"
	}
	return strings.ToLower(freqNames[r.Freq])
}

// Parse parses a stored rule like "FREQ=WEEKLY;BYDAY=MO,WE". The empty
// string is the non-repeating rule.
func Parse(rule string) (Rule, error) {
	if rule == "" {
		return Rule{}, nil
	}

	var r Rule
	var hasFreq bool

	for _, part := range strings.Split(rule, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return Rule{}, fmt.Errorf("invalid rule part: %q", part)
		}
		key, val := kv[0], kv[1]

		switch key {
		case "FREQ":
			f, ok := freqFromName[val]
			if !ok {
				return Rule{}, fmt.Errorf("unknown frequency: %q", val)
			}
			r.Freq = f
			hasFreq = true

		case "BYDAY":
			for _, d := range strings.Split(val, ",") {
				wd, ok := dayNames[strings.TrimSpace(d)]
				if !ok {
					return Rule{}, fmt.Errorf("unknown day: %q", d)
				}
				r.Days = append(r.Days, wd)
			}

		case "BYMONTHDAY":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 || n > 31 {
				return Rule{}, fmt.Errorf("invalid BYMONTHDAY: %q", val)
			}
			r.DayOfMonth = n

		default:
			return Rule{}, fmt.Errorf("unsupported rule key: %q", key)
		}
	}

	if !hasFreq {
		return Rule{}, fmt.Errorf("FREQ is required")
	}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// String serializes the rule for storage. None serializes to "".
func (r Rule) String() string {
	if r.Freq == None {
		return ""
	}
	parts := []string{"FREQ=" + freqNames[r.Freq]}

	if len(r.Days) > 0 {
		var days []string
		for _, d := range r.Days {
			days = append(days, dayAbbrev[d])
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	}

	if r.DayOfMonth > 0 {
		parts = append(parts, fmt.Sprintf("BYMONTHDAY=%d", r.DayOfMonth))
	}

	return strings.Join(parts, ";")
}

// Describe returns a human-readable description of the rule.
func (r Rule) Describe() string {
	switch r.Freq {
	case Daily:
		return "Repeats daily"
	case Weekly:
		if len(r.Days) > 0 {
			var names []string
			for _, d := range r.Days {
				names = append(names, d.String()[:3])
			}
			return "Repeats weekly on " + strings.Join(names, ", ")
		}
		return "Repeats weekly"
	case Monthly:
		if r.DayOfMonth > 0 {
			return fmt.Sprintf("Repeats monthly on day %d", r.DayOfMonth)
		}
		return "Repeats monthly"
	}
	return ""
}

// repeatJSON is the client-facing shape of a rule.
type repeatJSON struct {
	Frequency  string          `json:"frequency"`
	DayOfWeek  json.RawMessage `json:"dayOfWeek,omitempty"`
	DayOfMonth int             `json:"dayOfMonth,omitempty"`
}

func (r Rule) MarshalJSON() ([]byte, error) {
	if r.Freq == None {
		return []byte("null"), nil
	}
	out := struct {
		Frequency  string   `json:"frequency"`
		DayOfWeek  []string `json:"dayOfWeek,omitempty"`
		DayOfMonth int      `json:"dayOfMonth,omitempty"`
	}{Frequency: r.freqLabel(), DayOfMonth: r.DayOfMonth}
	for _, d := range r.Days {
		out.DayOfWeek = append(out.DayOfWeek, d.String())
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts null, a frequency of "once", and dayOfWeek as either
// a single weekday name or a list of them.
func (r *Rule) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Rule{}
		return nil
	}
	var in repeatJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode repeat: %w", err)
	}

	var out Rule
	switch strings.ToLower(strings.TrimSpace(in.Frequency)) {
	case "", "once", "none":
		*r = Rule{}
		return nil
	case "daily":
		out.Freq = Daily
	case "weekly":
		out.Freq = Weekly
		days, err := decodeDays(in.DayOfWeek)
		if err != nil {
			return err
		}
		out.Days = days
	case "monthly":
		out.Freq = Monthly
		out.DayOfMonth = in.DayOfMonth
	default:
		return fmt.Errorf("unknown frequency: %q", in.Frequency)
	}

	if err := out.Validate(); err != nil {
		return err
	}
	*r = out
	return nil
}

func decodeDays(raw json.RawMessage) ([]time.Weekday, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		var one string
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, fmt.Errorf("decode dayOfWeek: %w", err)
		}
		names = []string{one}
	}
	var days []time.Weekday
	for _, n := range names {
		wd, err := ParseWeekday(n)
		if err != nil {
			return nil, err
		}
		days = append(days, wd)
	}
	return days, nil
}

// ParseWeekday accepts full English names ("Monday"), three-letter forms
// ("Mon") and RRULE abbreviations ("MO"), case-insensitively.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.TrimSpace(s)
	if wd, ok := dayNames[strings.ToUpper(s)]; ok {
		return wd, nil
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		name := wd.String()
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return wd, nil
		}
	}
	return 0, fmt.Errorf("unknown day: %q", s)
}
