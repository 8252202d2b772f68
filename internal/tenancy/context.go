package tenancy

import "context"

type ctxKey string

const (
	clinicKey ctxKey = "parchi.clinic_id"
	doctorKey ctxKey = "parchi.doctor_id"
)

// WithClinicID stores the clinic id in context.
func WithClinicID(ctx context.Context, clinicID string) context.Context {
	return context.WithValue(ctx, clinicKey, clinicID)
}

// ClinicIDFromContext extracts the clinic id if present.
func ClinicIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(clinicKey)
	if val == nil {
		return "", false
	}
	clinicID, ok := val.(string)
	return clinicID, ok && clinicID != ""
}

// WithDoctorID stores the doctor id in context.
func WithDoctorID(ctx context.Context, doctorID string) context.Context {
	return context.WithValue(ctx, doctorKey, doctorID)
}

// DoctorIDFromContext extracts the doctor id if present.
func DoctorIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(doctorKey)
	if val == nil {
		return "", false
	}
	doctorID, ok := val.(string)
	return doctorID, ok && doctorID != ""
}
