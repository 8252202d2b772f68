package registry

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryRegistry_PatientLookup(t *testing.T) {
	ctx := context.Background()
	r := NewInMemoryRegistry()

	if _, err := r.FindPatientByPhone(ctx, "clinic-1", "9876543210"); err != ErrPatientNotFound {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}

	p := NewPatient("clinic-1", "Asha", "9876543210")
	if err := r.CreatePatient(ctx, p); err != nil {
		t.Fatalf("create patient: %v", err)
	}

	got, err := r.FindPatientByPhone(ctx, "clinic-1", "9876543210")
	if err != nil {
		t.Fatalf("find patient: %v", err)
	}
	if got.ID != p.ID {
		t.Fatalf("expected %s, got %s", p.ID, got.ID)
	}

	// Same phone in a different clinic is a different scope.
	if _, err := r.FindPatientByPhone(ctx, "clinic-2", "9876543210"); err != ErrPatientNotFound {
		t.Fatalf("expected clinic scoping, got %v", err)
	}
}

func TestInMemoryRegistry_AppointmentWindow(t *testing.T) {
	ctx := context.Background()
	r := NewInMemoryRegistry()

	p := NewPatient("clinic-1", "Asha", "9876543210")
	if err := r.CreatePatient(ctx, p); err != nil {
		t.Fatalf("create patient: %v", err)
	}

	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	a := NewAppointment("clinic-1", "doc-1", p.ID, start)
	if err := r.CreateAppointment(ctx, a); err != nil {
		t.Fatalf("create appointment: %v", err)
	}

	dayFrom := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	dayTo := dayFrom.Add(24 * time.Hour)

	got, err := r.FindAppointmentInWindow(ctx, "clinic-1", p.ID, dayFrom, dayTo)
	if err != nil {
		t.Fatalf("window lookup: %v", err)
	}
	if got.ID != a.ID {
		t.Fatalf("expected %s, got %s", a.ID, got.ID)
	}

	// The day after is outside the half-open window.
	if _, err := r.FindAppointmentInWindow(ctx, "clinic-1", p.ID, dayTo, dayTo.Add(24*time.Hour)); err != ErrAppointmentNotFound {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}

	// Another patient never sees it.
	if _, err := r.FindAppointmentInWindow(ctx, "clinic-1", "p-other", dayFrom, dayTo); err != ErrAppointmentNotFound {
		t.Fatalf("expected ErrAppointmentNotFound for other patient, got %v", err)
	}
}

func TestInMemoryRegistry_WindowSkipsNonScheduled(t *testing.T) {
	ctx := context.Background()
	r := NewInMemoryRegistry()

	p := NewPatient("clinic-1", "Asha", "9876543210")
	_ = r.CreatePatient(ctx, p)

	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	a := NewAppointment("clinic-1", "", p.ID, start)
	a.Status = "cancelled"
	_ = r.CreateAppointment(ctx, a)

	from := start.Add(-time.Hour)
	to := start.Add(time.Hour)
	if _, err := r.FindAppointmentInWindow(ctx, "clinic-1", p.ID, from, to); err != ErrAppointmentNotFound {
		t.Fatalf("cancelled appointments should not block rebooking, got %v", err)
	}
}

func TestInMemoryRegistry_ReturnsEarliestInWindow(t *testing.T) {
	ctx := context.Background()
	r := NewInMemoryRegistry()

	p := NewPatient("clinic-1", "Asha", "9876543210")
	_ = r.CreatePatient(ctx, p)

	later := NewAppointment("clinic-1", "", p.ID, time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC))
	earlier := NewAppointment("clinic-1", "", p.ID, time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	_ = r.CreateAppointment(ctx, later)
	_ = r.CreateAppointment(ctx, earlier)

	from := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	got, err := r.FindAppointmentInWindow(ctx, "clinic-1", p.ID, from, from.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("window lookup: %v", err)
	}
	if got.ID != earlier.ID {
		t.Fatalf("expected earliest appointment %s, got %s", earlier.ID, got.ID)
	}
}

func TestInMemoryRegistry_TokensAndCounts(t *testing.T) {
	ctx := context.Background()
	r := NewInMemoryRegistry()

	p := NewPatient("clinic-1", "Asha", "9876543210")
	_ = r.CreatePatient(ctx, p)
	a := NewAppointment("clinic-1", "", p.ID, time.Now().UTC())
	_ = r.CreateAppointment(ctx, a)

	tok := NewIntakeToken("clinic-1", "", p.ID, a.ID, p.Phone)
	if err := r.CreateIntakeToken(ctx, tok); err != nil {
		t.Fatalf("create token: %v", err)
	}
	if tok.Token == "" {
		t.Fatal("expected a generated token")
	}

	if r.PatientCount() != 1 || r.AppointmentCount() != 1 || r.TokenCount() != 1 {
		t.Fatalf("unexpected counts: %d patients, %d appointments, %d tokens",
			r.PatientCount(), r.AppointmentCount(), r.TokenCount())
	}
}

func TestNewIDFormat(t *testing.T) {
	p := NewPatient("clinic-1", "Asha", "9876543210")
	if len(p.ID) != len("p-")+8 || p.ID[:2] != "p-" {
		t.Fatalf("unexpected patient id format: %s", p.ID)
	}
	a := NewAppointment("clinic-1", "", p.ID, time.Now())
	if len(a.ID) != len("a-")+8 || a.ID[:2] != "a-" {
		t.Fatalf("unexpected appointment id format: %s", a.ID)
	}
	if a.Status != AppointmentStatusScheduled || a.Reason != AppointmentReasonIntake {
		t.Fatalf("unexpected appointment defaults: %s %s", a.Status, a.Reason)
	}
}
