// Package registry stores patients, appointments, and intake tokens for the
// parchi pipeline. Implementations must scope every lookup by clinic id; an
// empty clinic id is a valid scope for single-clinic deployments.
package registry

import (
	"context"
	"time"
)

// Registry defines the interface for patient/appointment storage
type Registry interface {
	// FindPatientByPhone resolves a patient by exact canonical phone within
	// a clinic. Returns ErrPatientNotFound when no row matches.
	FindPatientByPhone(ctx context.Context, clinicID, phone string) (*Patient, error)

	// CreatePatient inserts a new patient row.
	CreatePatient(ctx context.Context, p *Patient) error

	// FindAppointmentInWindow returns the earliest scheduled appointment for
	// the patient with from <= start_time < to, or ErrAppointmentNotFound.
	FindAppointmentInWindow(ctx context.Context, clinicID, patientID string, from, to time.Time) (*Appointment, error)

	// CreateAppointment inserts a new appointment row.
	CreateAppointment(ctx context.Context, a *Appointment) error

	// CreateIntakeToken inserts the token that backs a self-intake link.
	CreateIntakeToken(ctx context.Context, tok *IntakeToken) error
}
