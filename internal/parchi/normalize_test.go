package parchi

import (
	"errors"
	"testing"
	"time"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := NewNormalizer("91", "Asia/Kolkata")
	if err != nil {
		t.Fatalf("NewNormalizer returned error: %v", err)
	}
	return n
}

func TestNewNormalizerRejectsUnknownTimezone(t *testing.T) {
	if _, err := NewNormalizer("91", "Mars/Olympus"); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestCanonicalPhone(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		name  string
		raw   string
		want  string
		valid bool
	}{
		{"bare ten digits", "9876543210", "9876543210", true},
		{"formatted with country code", "+91 98765-43210", "9876543210", true},
		{"country code no plus", "919876543210", "9876543210", true},
		{"international dial prefix", "00919876543210", "9876543210", true},
		{"trunk zero", "09876543210", "9876543210", true},
		{"spaces and dashes", "98765 432-10", "9876543210", true},
		{"empty", "", "", false},
		{"too short", "12345", "", false},
		{"too long", "98765432101234", "", false},
		{"letters only", "call me", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := n.CanonicalPhone(tt.raw)
			if ok != tt.valid {
				t.Fatalf("CanonicalPhone(%q) valid = %v, want %v", tt.raw, ok, tt.valid)
			}
			if got != tt.want {
				t.Errorf("CanonicalPhone(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCanonicalPhoneIdempotent(t *testing.T) {
	n := newTestNormalizer(t)

	once, ok := n.CanonicalPhone("+91 98765-43210")
	if !ok {
		t.Fatal("first pass rejected a valid phone")
	}
	twice, ok := n.CanonicalPhone(once)
	if !ok {
		t.Fatal("second pass rejected the canonical form")
	}
	if once != twice {
		t.Errorf("canonicalization not idempotent: %q then %q", once, twice)
	}
}

func TestDialablePhone(t *testing.T) {
	n := newTestNormalizer(t)
	if got := n.DialablePhone("9876543210"); got != "919876543210" {
		t.Errorf("DialablePhone = %q, want 919876543210", got)
	}
}

func TestNormalizeValidEntry(t *testing.T) {
	n := newTestNormalizer(t)

	got, err := n.Normalize(Entry{
		Name:            "  Asha  ",
		Phone:           "+91 98765-43210",
		AppointmentTime: "2026-03-14T09:00",
	})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if got.Name != "Asha" {
		t.Errorf("Name = %q, want Asha", got.Name)
	}
	if got.PhoneCanonical != "9876543210" {
		t.Errorf("PhoneCanonical = %q, want 9876543210", got.PhoneCanonical)
	}
	want := time.Date(2026, 3, 14, 9, 0, 0, 0, n.Location())
	if !got.AppointmentAt.Equal(want) {
		t.Errorf("AppointmentAt = %v, want %v", got.AppointmentAt, want)
	}
}

func TestNormalizeEquivalentPhonesMatch(t *testing.T) {
	n := newTestNormalizer(t)

	a, err := n.Normalize(Entry{Name: "Asha", Phone: "+91 98765-43210", AppointmentTime: "2026-03-14T09:00"})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	b, err := n.Normalize(Entry{Name: "Asha", Phone: "9876543210", AppointmentTime: "2026-03-14T09:00"})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if a.PhoneCanonical != b.PhoneCanonical {
		t.Errorf("equivalent phones canonicalized differently: %q vs %q", a.PhoneCanonical, b.PhoneCanonical)
	}
}

func TestNormalizeValidationReasons(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		name   string
		entry  Entry
		reason string
	}{
		{"missing name", Entry{Phone: "9876543210", AppointmentTime: "2026-03-14T09:00"}, ReasonMissingName},
		{"blank name", Entry{Name: "   ", Phone: "9876543210", AppointmentTime: "2026-03-14T09:00"}, ReasonMissingName},
		{"missing phone", Entry{Name: "Ravi", AppointmentTime: "2026-03-14T10:00"}, ReasonMissingPhone},
		{"short phone", Entry{Name: "Ravi", Phone: "12345", AppointmentTime: "2026-03-14T10:00"}, ReasonMissingPhone},
		{"missing schedule", Entry{Name: "Ravi", Phone: "9876543210"}, ReasonMissingSchedule},
		{"garbled schedule", Entry{Name: "Ravi", Phone: "9876543210", AppointmentTime: "tomorrow-ish"}, ReasonMissingSchedule},
		{"name checked before phone", Entry{AppointmentTime: "2026-03-14T10:00"}, ReasonMissingName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.entry)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", verr.Reason, tt.reason)
			}
		})
	}
}

func TestNormalizeTimestampLayouts(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"rfc3339", "2026-03-14T09:00:00+05:30", time.Date(2026, 3, 14, 9, 0, 0, 0, n.Location())},
		{"rfc3339 utc converts", "2026-03-14T03:30:00Z", time.Date(2026, 3, 14, 9, 0, 0, 0, n.Location())},
		{"offsetless seconds", "2026-03-14T09:00:00", time.Date(2026, 3, 14, 9, 0, 0, 0, n.Location())},
		{"offsetless minutes", "2026-03-14T09:00", time.Date(2026, 3, 14, 9, 0, 0, 0, n.Location())},
		{"space separator", "2026-03-14 09:00", time.Date(2026, 3, 14, 9, 0, 0, 0, n.Location())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(Entry{Name: "Asha", Phone: "9876543210", AppointmentTime: tt.raw})
			if err != nil {
				t.Fatalf("Normalize returned error: %v", err)
			}
			if !got.AppointmentAt.Equal(tt.want) {
				t.Errorf("AppointmentAt = %v, want %v", got.AppointmentAt, tt.want)
			}
		})
	}
}

func TestCombineDateTime(t *testing.T) {
	tests := []struct {
		name  string
		date  string
		clock string
		want  string
	}{
		{"both present", "2026-03-14", "10:30", "2026-03-14T10:30"},
		{"time defaults", "2026-03-14", "", "2026-03-14T09:00"},
		{"date missing", "", "10:30", ""},
		{"whitespace trimmed", " 2026-03-14 ", " 10:30 ", "2026-03-14T10:30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CombineDateTime(tt.date, tt.clock); got != tt.want {
				t.Errorf("CombineDateTime(%q, %q) = %q, want %q", tt.date, tt.clock, got, tt.want)
			}
		})
	}
}

func TestPreviewTimestamp(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		name  string
		date  string
		clock string
		want  string
	}{
		{"seconds appended", "2026-03-14", "10:30", "2026-03-14T10:30:00"},
		{"time defaults", "2026-03-14", "", "2026-03-14T09:00:00"},
		{"date missing", "", "10:30", ""},
		{"unparseable keeps joined form", "2026-03-14", "around noon", "2026-03-14Taround noon:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.PreviewTimestamp(tt.date, tt.clock); got != tt.want {
				t.Errorf("PreviewTimestamp(%q, %q) = %q, want %q", tt.date, tt.clock, got, tt.want)
			}
		})
	}
}
