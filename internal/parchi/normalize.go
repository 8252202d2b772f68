package parchi

import (
	"fmt"
	"strings"
	"time"
)

// Timestamp layouts accepted from the review UI, tried in order. Offsetless
// values are interpreted in the clinic's timezone.
var appointmentLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Normalizer canonicalizes phones and timestamps ahead of matching.
type Normalizer struct {
	countryCode string
	loc         *time.Location
}

// NewNormalizer builds a normalizer for one clinic's country code and
// timezone. The timezone name must resolve via the IANA database.
func NewNormalizer(countryCode, timezone string) (*Normalizer, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("parchi: load timezone %q: %w", timezone, err)
	}
	return &Normalizer{
		countryCode: strings.TrimSpace(countryCode),
		loc:         loc,
	}, nil
}

// Location exposes the clinic timezone for window calculations.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// Normalize validates one reviewed entry. Invalid entries return a
// *ValidationError carrying the reason; they never reach the registry.
func (n *Normalizer) Normalize(e Entry) (NormalizedEntry, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return NormalizedEntry{}, &ValidationError{Reason: ReasonMissingName}
	}

	phone, ok := n.CanonicalPhone(e.Phone)
	if !ok {
		return NormalizedEntry{}, &ValidationError{Reason: ReasonMissingPhone}
	}

	at, ok := n.parseAppointmentTime(e.AppointmentTime)
	if !ok {
		return NormalizedEntry{}, &ValidationError{Reason: ReasonMissingSchedule}
	}

	return NormalizedEntry{
		Name:           name,
		PhoneCanonical: phone,
		AppointmentAt:  at,
	}, nil
}

// CanonicalPhone reduces a phone to its ten-digit canonical form: strip
// non-digits, drop an international dial prefix, drop the country calling
// code or a single trunk zero when that leaves exactly ten digits. Anything
// else is invalid. The operation is idempotent.
func (n *Normalizer) CanonicalPhone(raw string) (string, bool) {
	digits := digitsOnly(raw)
	if len(digits) > 10 && strings.HasPrefix(digits, "00") {
		digits = digits[2:]
	}
	switch {
	case n.countryCode != "" &&
		len(digits) == len(n.countryCode)+10 &&
		strings.HasPrefix(digits, n.countryCode):
		digits = digits[len(n.countryCode):]
	case len(digits) == 11 && digits[0] == '0':
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", false
	}
	return digits, true
}

// DialablePhone prepends the country calling code for gateway sends.
func (n *Normalizer) DialablePhone(canonical string) string {
	return n.countryCode + canonical
}

func (n *Normalizer) parseAppointmentTime(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range appointmentLayouts {
		t, err := time.ParseInLocation(layout, value, n.loc)
		if err != nil {
			continue
		}
		return t.In(n.loc), true
	}
	return time.Time{}, false
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CombineDateTime joins the parser's date and time fields into the
// timestamp string the review UI edits.
func CombineDateTime(date, clock string) string {
	d := strings.TrimSpace(date)
	c := strings.TrimSpace(clock)
	if d == "" {
		return ""
	}
	if c == "" {
		c = "09:00"
	}
	return d + "T" + c
}

// PreviewTimestamp renders the combined date and time with explicit seconds
// for the upload preview. Values that do not parse keep the joined form with
// ":00" appended so the review UI still has something editable.
func (n *Normalizer) PreviewTimestamp(date, clock string) string {
	joined := CombineDateTime(date, clock)
	if joined == "" {
		return ""
	}
	t, err := time.ParseInLocation("2006-01-02T15:04", joined, n.loc)
	if err != nil {
		return joined + ":00"
	}
	return t.Format("2006-01-02T15:04:05")
}
