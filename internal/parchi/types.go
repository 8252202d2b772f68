package parchi

import (
	"time"

	"github.com/russhil/backend-parchi/internal/registry"
)

// RawEntry is one candidate appointment as returned by the entry parser.
// Every field is untrusted: possibly empty, malformed, or hallucinated.
type RawEntry struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Date  string `json:"date"`
	Time  string `json:"time"`
}

// UploadEntry is the upload preview shape: the raw fields plus the combined
// timestamp the review UI edits before committing.
type UploadEntry struct {
	RawEntry
	AppointmentTime string `json:"appointment_time"`
}

// Entry is one reviewed appointment request submitted for processing.
type Entry struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	AppointmentTime string `json:"appointment_time"`
}

// NormalizedEntry is an Entry whose phone and timestamp passed validation.
type NormalizedEntry struct {
	Name           string
	PhoneCanonical string
	AppointmentAt  time.Time
}

// MatchKind classifies how an entry resolved against the registry and batch.
type MatchKind string

const (
	MatchNewPatient           MatchKind = "new_patient"
	MatchExistingPatient      MatchKind = "existing_patient"
	MatchDuplicateInBatch     MatchKind = "duplicate_in_batch"
	MatchDuplicateAppointment MatchKind = "duplicate_existing_appointment"
)

// MatchDecision is the dedup engine's verdict for one normalized entry.
// Patient is set for existing_patient and duplicate_existing_appointment;
// Appointment is set only for duplicate_existing_appointment.
type MatchDecision struct {
	Kind        MatchKind
	Patient     *registry.Patient
	Appointment *registry.Appointment
}

// ProcessResult is the immutable outcome for one input entry.
type ProcessResult struct {
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	AppointmentTime   string `json:"appointment_time"`
	IsNewPatient      bool   `json:"is_new_patient"`
	IsDuplicate       bool   `json:"is_duplicate"`
	PatientID         string `json:"patient_id,omitempty"`
	AppointmentID     string `json:"appointment_id,omitempty"`
	IntakeLink        string `json:"intake_link,omitempty"`
	NotificationSent  bool   `json:"notification_sent"`
	NotificationError string `json:"notification_error,omitempty"`
	Error             string `json:"error,omitempty"`
}

// BatchSummary aggregates one batch's outcomes.
// Total always equals Processed + Duplicates + Errors.
type BatchSummary struct {
	Total             int `json:"total"`
	Processed         int `json:"processed"`
	Duplicates        int `json:"duplicates"`
	NotificationsSent int `json:"notifications_sent"`
	Errors            int `json:"errors"`
}
