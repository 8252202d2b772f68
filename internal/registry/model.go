package registry

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Appointment lifecycle values written by this service.
const (
	AppointmentStatusScheduled = "scheduled"
	AppointmentReasonIntake    = "Intake Pending"
)

// Patient is a registry-owned person record, looked up by canonical phone.
type Patient struct {
	ID        string    `json:"id"`
	ClinicID  string    `json:"clinic_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Appointment is a registry-owned booking row.
type Appointment struct {
	ID        string    `json:"id"`
	ClinicID  string    `json:"clinic_id"`
	DoctorID  string    `json:"doctor_id"`
	PatientID string    `json:"patient_id"`
	StartTime time.Time `json:"start_time"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// IntakeToken links a patient/appointment pair to the self-intake form.
type IntakeToken struct {
	Token         string    `json:"token"`
	ClinicID      string    `json:"clinic_id"`
	DoctorID      string    `json:"doctor_id"`
	PatientID     string    `json:"patient_id"`
	AppointmentID string    `json:"appointment_id"`
	Phone         string    `json:"phone"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewPatient builds a patient with a fresh short id.
func NewPatient(clinicID, name, phone string) *Patient {
	return &Patient{
		ID:        newID("p"),
		ClinicID:  clinicID,
		Name:      name,
		Phone:     phone,
		CreatedAt: time.Now().UTC(),
	}
}

// NewAppointment builds a scheduled intake appointment with a fresh short id.
func NewAppointment(clinicID, doctorID, patientID string, startTime time.Time) *Appointment {
	return &Appointment{
		ID:        newID("a"),
		ClinicID:  clinicID,
		DoctorID:  doctorID,
		PatientID: patientID,
		StartTime: startTime,
		Status:    AppointmentStatusScheduled,
		Reason:    AppointmentReasonIntake,
		CreatedAt: time.Now().UTC(),
	}
}

// NewIntakeToken mints an opaque token for the self-intake link.
func NewIntakeToken(clinicID, doctorID, patientID, appointmentID, phone string) *IntakeToken {
	return &IntakeToken{
		Token:         uuid.NewString(),
		ClinicID:      clinicID,
		DoctorID:      doctorID,
		PatientID:     patientID,
		AppointmentID: appointmentID,
		Phone:         phone,
		CreatedAt:     time.Now().UTC(),
	}
}

// newID produces ids like "p-1a2b3c4d", matching the registry's existing rows.
func newID(prefix string) string {
	id := uuid.New()
	return fmt.Sprintf("%s-%x", prefix, id[:4])
}
