package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxDB is the subset of pgxpool.Pool the registry needs; pgxmock satisfies
// it in tests.
type PgxDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRegistry stores patients and appointments in the relational database.
type PostgresRegistry struct {
	db PgxDB
}

// NewPostgresRegistry initializes a registry backed by pgxpool.
func NewPostgresRegistry(pool *pgxpool.Pool) *PostgresRegistry {
	if pool == nil {
		panic("registry: pgx pool required")
	}
	return &PostgresRegistry{db: pool}
}

// NewPostgresRegistryWithDB allows injecting mocks for tests.
func NewPostgresRegistryWithDB(db PgxDB) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

var _ Registry = (*PostgresRegistry)(nil)

// FindPatientByPhone resolves a patient by canonical phone within a clinic.
func (r *PostgresRegistry) FindPatientByPhone(ctx context.Context, clinicID, phone string) (*Patient, error) {
	query := `
		SELECT id, clinic_id, name, phone, created_at
		FROM patients
		WHERE clinic_id = $1 AND phone = $2
		ORDER BY created_at
		LIMIT 1
	`
	row := r.db.QueryRow(ctx, query, clinicID, phone)
	var p Patient
	if err := row.Scan(&p.ID, &p.ClinicID, &p.Name, &p.Phone, &p.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("registry: patient lookup failed: %w", err)
	}
	return &p, nil
}

// CreatePatient inserts a new patient row.
func (r *PostgresRegistry) CreatePatient(ctx context.Context, p *Patient) error {
	query := `
		INSERT INTO patients (id, clinic_id, name, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query, p.ID, p.ClinicID, p.Name, p.Phone).Scan(&p.CreatedAt); err != nil {
		return fmt.Errorf("registry: patient insert failed: %w", err)
	}
	return nil
}

// FindAppointmentInWindow returns the earliest scheduled appointment with
// from <= start_time < to for the patient.
func (r *PostgresRegistry) FindAppointmentInWindow(ctx context.Context, clinicID, patientID string, from, to time.Time) (*Appointment, error) {
	query := `
		SELECT id, clinic_id, doctor_id, patient_id, start_time, status, reason, created_at
		FROM appointments
		WHERE clinic_id = $1 AND patient_id = $2
		  AND status = 'scheduled'
		  AND start_time >= $3 AND start_time < $4
		ORDER BY start_time
		LIMIT 1
	`
	row := r.db.QueryRow(ctx, query, clinicID, patientID, from, to)
	var a Appointment
	if err := row.Scan(
		&a.ID,
		&a.ClinicID,
		&a.DoctorID,
		&a.PatientID,
		&a.StartTime,
		&a.Status,
		&a.Reason,
		&a.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("registry: appointment lookup failed: %w", err)
	}
	return &a, nil
}

// CreateAppointment inserts a new appointment row.
func (r *PostgresRegistry) CreateAppointment(ctx context.Context, a *Appointment) error {
	query := `
		INSERT INTO appointments (id, clinic_id, doctor_id, patient_id, start_time, status, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query,
		a.ID,
		a.ClinicID,
		a.DoctorID,
		a.PatientID,
		a.StartTime,
		a.Status,
		a.Reason,
	).Scan(&a.CreatedAt); err != nil {
		return fmt.Errorf("registry: appointment insert failed: %w", err)
	}
	return nil
}

// CreateIntakeToken inserts the token backing a self-intake link.
func (r *PostgresRegistry) CreateIntakeToken(ctx context.Context, tok *IntakeToken) error {
	query := `
		INSERT INTO intake_tokens (token, clinic_id, doctor_id, patient_id, appointment_id, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.Exec(ctx, query,
		tok.Token,
		tok.ClinicID,
		tok.DoctorID,
		tok.PatientID,
		tok.AppointmentID,
		tok.Phone,
	); err != nil {
		return fmt.Errorf("registry: intake token insert failed: %w", err)
	}
	return nil
}
