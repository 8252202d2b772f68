package registry

import (
	"context"
	"sync"
	"time"
)

// InMemoryRegistry is a Registry backed by process memory. It mirrors the
// Postgres implementation's semantics and serves tests and development
// deployments that run without a DATABASE_URL.
type InMemoryRegistry struct {
	mu           sync.RWMutex
	patients     map[string]*Patient     // by id
	phoneIndex   map[string]string       // clinic|phone -> patient id
	appointments map[string]*Appointment // by id
	tokens       map[string]*IntakeToken // by token
}

// NewInMemoryRegistry creates an empty in-memory registry
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		patients:     make(map[string]*Patient),
		phoneIndex:   make(map[string]string),
		appointments: make(map[string]*Appointment),
		tokens:       make(map[string]*IntakeToken),
	}
}

var _ Registry = (*InMemoryRegistry)(nil)

func phoneKey(clinicID, phone string) string {
	return clinicID + "|" + phone
}

// FindPatientByPhone resolves a patient by canonical phone within a clinic.
func (r *InMemoryRegistry) FindPatientByPhone(ctx context.Context, clinicID, phone string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.phoneIndex[phoneKey(clinicID, phone)]
	if !ok {
		return nil, ErrPatientNotFound
	}
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

// CreatePatient stores a new patient row.
func (r *InMemoryRegistry) CreatePatient(ctx context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *p
	r.patients[cp.ID] = &cp
	r.phoneIndex[phoneKey(cp.ClinicID, cp.Phone)] = cp.ID
	return nil
}

// FindAppointmentInWindow returns the earliest scheduled appointment with
// from <= start_time < to for the patient.
func (r *InMemoryRegistry) FindAppointmentInWindow(ctx context.Context, clinicID, patientID string, from, to time.Time) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var earliest *Appointment
	for _, a := range r.appointments {
		if a.ClinicID != clinicID || a.PatientID != patientID {
			continue
		}
		if a.Status != AppointmentStatusScheduled {
			continue
		}
		if a.StartTime.Before(from) || !a.StartTime.Before(to) {
			continue
		}
		if earliest == nil || a.StartTime.Before(earliest.StartTime) {
			earliest = a
		}
	}
	if earliest == nil {
		return nil, ErrAppointmentNotFound
	}
	cp := *earliest
	return &cp, nil
}

// CreateAppointment stores a new appointment row.
func (r *InMemoryRegistry) CreateAppointment(ctx context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *a
	r.appointments[cp.ID] = &cp
	return nil
}

// CreateIntakeToken stores a new intake token row.
func (r *InMemoryRegistry) CreateIntakeToken(ctx context.Context, tok *IntakeToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *tok
	r.tokens[cp.Token] = &cp
	return nil
}

// PatientCount reports how many patients the registry holds.
func (r *InMemoryRegistry) PatientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.patients)
}

// AppointmentCount reports how many appointments the registry holds.
func (r *InMemoryRegistry) AppointmentCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.appointments)
}

// TokenCount reports how many intake tokens the registry holds.
func (r *InMemoryRegistry) TokenCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}
