package registry

import "errors"

var (
	// ErrPatientNotFound is returned when no patient matches a phone lookup
	ErrPatientNotFound = errors.New("patient not found")

	// ErrAppointmentNotFound is returned when no appointment falls in the window
	ErrAppointmentNotFound = errors.New("appointment not found")
)
