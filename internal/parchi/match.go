package parchi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/russhil/backend-parchi/internal/registry"
)

// DuplicateWindow selects how wide the existing-appointment check scans.
type DuplicateWindow string

const (
	// WindowCalendarDay treats any scheduled appointment on the same local
	// date as a duplicate. This is the default.
	WindowCalendarDay DuplicateWindow = "calendar_day"

	// WindowExact only treats an appointment in the same minute as a
	// duplicate, mirroring repeat submissions of an unedited batch.
	WindowExact DuplicateWindow = "exact"
)

// ParseDuplicateWindow maps a configuration string onto a window mode.
// Unrecognized values fall back to the calendar-day default.
func ParseDuplicateWindow(s string) DuplicateWindow {
	if strings.EqualFold(strings.TrimSpace(s), string(WindowExact)) {
		return WindowExact
	}
	return WindowCalendarDay
}

// Bounds returns the half-open interval [from, to) scanned for an existing
// scheduled appointment around the requested slot.
func (w DuplicateWindow) Bounds(at time.Time) (time.Time, time.Time) {
	if w == WindowExact {
		from := at.Truncate(time.Minute)
		return from, from.Add(time.Minute)
	}
	from := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
	return from, from.AddDate(0, 0, 1)
}

// BatchClaims records which entry owns each canonical phone within one
// batch. Ownership is assigned in input order before any parallel work, so
// later same-phone entries deterministically become in-batch duplicates.
type BatchClaims struct {
	first map[string]int
}

// NewBatchClaims returns an empty claims table for one batch.
func NewBatchClaims() *BatchClaims {
	return &BatchClaims{first: make(map[string]int)}
}

// Claim assigns the phone to entry idx if it is unclaimed and reports
// whether idx owns it.
func (b *BatchClaims) Claim(phone string, idx int) bool {
	if owner, ok := b.first[phone]; ok {
		return owner == idx
	}
	b.first[phone] = idx
	return true
}

// Matcher resolves normalized entries against the patient registry and
// against phones claimed earlier in the same batch.
type Matcher struct {
	reg    registry.Registry
	window DuplicateWindow
}

// NewMatcher builds a matcher over the given registry.
func NewMatcher(reg registry.Registry, window DuplicateWindow) *Matcher {
	if reg == nil {
		panic("parchi: registry cannot be nil")
	}
	if window == "" {
		window = WindowCalendarDay
	}
	return &Matcher{reg: reg, window: window}
}

// Match classifies one normalized entry. ownsPhone reports whether the
// entry is the batch's first occurrence of its canonical phone; batch-order
// duplicates win over every registry check so that the first occurrence
// keeps the right to create.
func (m *Matcher) Match(ctx context.Context, clinicID string, e NormalizedEntry, ownsPhone bool) (MatchDecision, error) {
	if !ownsPhone {
		return MatchDecision{Kind: MatchDuplicateInBatch}, nil
	}

	patient, err := m.reg.FindPatientByPhone(ctx, clinicID, e.PhoneCanonical)
	if err != nil {
		if errors.Is(err, registry.ErrPatientNotFound) {
			return MatchDecision{Kind: MatchNewPatient}, nil
		}
		return MatchDecision{}, fmt.Errorf("parchi: patient lookup failed: %w", err)
	}

	from, to := m.window.Bounds(e.AppointmentAt)
	appt, err := m.reg.FindAppointmentInWindow(ctx, clinicID, patient.ID, from, to)
	if err != nil {
		if errors.Is(err, registry.ErrAppointmentNotFound) {
			return MatchDecision{Kind: MatchExistingPatient, Patient: patient}, nil
		}
		return MatchDecision{}, fmt.Errorf("parchi: appointment lookup failed: %w", err)
	}

	return MatchDecision{
		Kind:        MatchDuplicateAppointment,
		Patient:     patient,
		Appointment: appt,
	}, nil
}
