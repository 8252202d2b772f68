package parchi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/russhil/backend-parchi/internal/registry"
)

// countingMessenger is safe for concurrent sends.
type countingMessenger struct {
	sends atomic.Int64
	err   error
	delay time.Duration
}

func (m *countingMessenger) SendIntakeInvite(ctx context.Context, to, patientName, displayTime, intakeURL string) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.sends.Add(1)
	return m.err
}

func newTestProcessor(t *testing.T, reg registry.Registry, messenger Messenger, cfg ProcessorConfig) *Processor {
	t.Helper()
	normalizer := newTestNormalizer(t)
	matcher := NewMatcher(reg, WindowCalendarDay)
	notifier := NewNotifier(reg, messenger, "https://clinic.example", "91", nil, nil)
	return NewProcessor(normalizer, matcher, reg, notifier, cfg, nil, nil)
}

func TestProcessBatchOutcomes(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	messenger := &countingMessenger{}
	p := newTestProcessor(t, reg, messenger, ProcessorConfig{Workers: 4})

	entries := []Entry{
		{Name: "Asha", Phone: "9876543210", AppointmentTime: "2026-03-14T09:00"},
		{Name: "Asha", Phone: "9876543210", AppointmentTime: "2026-03-14T09:00"},
		{Name: "Ravi", Phone: "", AppointmentTime: "2026-03-14T10:00"},
	}

	results, summary := p.Process(context.Background(), "clinic-1", "doc-1", entries)

	want := BatchSummary{Total: 3, Processed: 1, Duplicates: 1, NotificationsSent: 1, Errors: 1}
	if summary != want {
		t.Fatalf("summary = %+v, want %+v", summary, want)
	}

	first := results[0]
	if !first.IsNewPatient || first.PatientID == "" || first.AppointmentID == "" {
		t.Errorf("first entry must create patient and appointment, got %+v", first)
	}
	if !first.NotificationSent || first.Error != "" {
		t.Errorf("first entry must be notified cleanly, got %+v", first)
	}
	if first.IntakeLink == "" {
		t.Error("first entry missing intake link")
	}

	second := results[1]
	if !second.IsDuplicate || second.Error != "" {
		t.Errorf("second entry must be an in-batch duplicate, got %+v", second)
	}
	if second.PatientID != "" || second.AppointmentID != "" {
		t.Errorf("in-batch duplicate must not carry ids, got %+v", second)
	}

	third := results[2]
	if third.Error != ReasonMissingPhone {
		t.Errorf("third entry error = %q, want %q", third.Error, ReasonMissingPhone)
	}

	if reg.PatientCount() != 1 || reg.AppointmentCount() != 1 {
		t.Errorf("registry rows = %d patients / %d appointments, want 1/1",
			reg.PatientCount(), reg.AppointmentCount())
	}
	if got := messenger.sends.Load(); got != 1 {
		t.Errorf("sends = %d, want 1", got)
	}
}

func TestProcessReprocessingIsIdempotent(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	p := newTestProcessor(t, reg, &countingMessenger{}, ProcessorConfig{Workers: 4})

	entries := []Entry{
		{Name: "Asha", Phone: "9876543210", AppointmentTime: "2026-03-14T09:00"},
		{Name: "Meena", Phone: "9123456789", AppointmentTime: "2026-03-14T11:30"},
	}

	_, first := p.Process(context.Background(), "clinic-1", "doc-1", entries)
	if first.Processed != 2 {
		t.Fatalf("first run processed = %d, want 2", first.Processed)
	}

	results, second := p.Process(context.Background(), "clinic-1", "doc-1", entries)
	want := BatchSummary{Total: 2, Processed: 0, Duplicates: 2, NotificationsSent: 0, Errors: 0}
	if second != want {
		t.Fatalf("second run summary = %+v, want %+v", second, want)
	}
	for i, r := range results {
		if !r.IsDuplicate {
			t.Errorf("entry %d must be a duplicate on reprocessing, got %+v", i, r)
		}
		if r.PatientID == "" || r.AppointmentID == "" {
			t.Errorf("entry %d must reference the existing records, got %+v", i, r)
		}
	}

	if reg.PatientCount() != 2 || reg.AppointmentCount() != 2 {
		t.Errorf("registry rows grew on reprocessing: %d patients / %d appointments",
			reg.PatientCount(), reg.AppointmentCount())
	}
}

func TestProcessExistingPatientSkipsPatientCreation(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	patient := registry.NewPatient("clinic-1", "Asha", "9876543210")
	if err := reg.CreatePatient(context.Background(), patient); err != nil {
		t.Fatalf("seed patient: %v", err)
	}

	p := newTestProcessor(t, reg, &countingMessenger{}, ProcessorConfig{Workers: 2})
	results, summary := p.Process(context.Background(), "clinic-1", "doc-1", []Entry{
		{Name: "Asha", Phone: "+91 98765 43210", AppointmentTime: "2026-03-14T09:00"},
	})

	if summary.Processed != 1 {
		t.Fatalf("summary = %+v, want 1 processed", summary)
	}
	if results[0].IsNewPatient {
		t.Error("existing patient flagged as new")
	}
	if results[0].PatientID != patient.ID {
		t.Errorf("patient id = %q, want the existing %q", results[0].PatientID, patient.ID)
	}
	if reg.PatientCount() != 1 {
		t.Errorf("patient rows = %d, want 1", reg.PatientCount())
	}
	if reg.AppointmentCount() != 1 {
		t.Errorf("appointment rows = %d, want 1", reg.AppointmentCount())
	}
}

func TestProcessNotificationFailureKeepsRecords(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	messenger := &countingMessenger{err: errors.New("gateway timeout")}
	p := newTestProcessor(t, reg, messenger, ProcessorConfig{Workers: 2})

	results, summary := p.Process(context.Background(), "clinic-1", "doc-1", []Entry{
		{Name: "Asha", Phone: "9876543210", AppointmentTime: "2026-03-14T09:00"},
	})

	r := results[0]
	if !r.IsNewPatient || r.PatientID == "" || r.AppointmentID == "" {
		t.Errorf("creation must succeed independently of the send, got %+v", r)
	}
	if r.NotificationSent {
		t.Error("NotificationSent must be false")
	}
	if r.NotificationError != "gateway timeout" {
		t.Errorf("NotificationError = %q, want gateway timeout", r.NotificationError)
	}
	if r.Error != "" {
		t.Errorf("entry error = %q, want empty (send failure is not an entry failure)", r.Error)
	}

	want := BatchSummary{Total: 1, Processed: 1, Duplicates: 0, NotificationsSent: 0, Errors: 0}
	if summary != want {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}
	if reg.PatientCount() != 1 || reg.AppointmentCount() != 1 {
		t.Error("send failure must not roll back created records")
	}
}

type flakyRegistry struct {
	*registry.InMemoryRegistry
	failPhone string
}

func (r *flakyRegistry) CreatePatient(ctx context.Context, p *registry.Patient) error {
	if p.Phone == r.failPhone {
		return errors.New("connection refused")
	}
	return r.InMemoryRegistry.CreatePatient(ctx, p)
}

func TestProcessCreationFailureIsIsolated(t *testing.T) {
	reg := &flakyRegistry{InMemoryRegistry: registry.NewInMemoryRegistry(), failPhone: "9000000001"}
	p := newTestProcessor(t, reg, &countingMessenger{}, ProcessorConfig{Workers: 2})

	results, summary := p.Process(context.Background(), "clinic-1", "doc-1", []Entry{
		{Name: "Broken", Phone: "9000000001", AppointmentTime: "2026-03-14T09:00"},
		{Name: "Fine", Phone: "9000000002", AppointmentTime: "2026-03-14T10:00"},
	})

	if results[0].Error == "" || !strings.Contains(results[0].Error, "create patient") {
		t.Errorf("failing entry error = %q, want a create patient failure", results[0].Error)
	}
	if results[1].Error != "" || results[1].PatientID == "" {
		t.Errorf("sibling entry must be unaffected, got %+v", results[1])
	}

	want := BatchSummary{Total: 2, Processed: 1, Duplicates: 0, NotificationsSent: 1, Errors: 1}
	if summary != want {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}
}

func TestProcessPreservesInputOrder(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	messenger := &countingMessenger{delay: time.Millisecond}
	p := newTestProcessor(t, reg, messenger, ProcessorConfig{Workers: 4})

	entries := make([]Entry, 12)
	for i := range entries {
		entries[i] = Entry{
			Name:            fmt.Sprintf("Patient %02d", i),
			Phone:           fmt.Sprintf("98765432%02d", i),
			AppointmentTime: "2026-03-14T09:00",
		}
	}

	results, summary := p.Process(context.Background(), "clinic-1", "doc-1", entries)
	if summary.Processed != len(entries) {
		t.Fatalf("summary = %+v, want all processed", summary)
	}
	for i, r := range results {
		if r.Name != entries[i].Name {
			t.Fatalf("result %d holds %q, want %q (order not preserved)", i, r.Name, entries[i].Name)
		}
	}
}

func TestProcessSamePhoneParallelEntriesCreateOnce(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	p := newTestProcessor(t, reg, &countingMessenger{}, ProcessorConfig{Workers: 8})

	entries := make([]Entry, 6)
	for i := range entries {
		entries[i] = Entry{
			Name:            fmt.Sprintf("Asha %d", i),
			Phone:           "9876543210",
			AppointmentTime: "2026-03-14T09:00",
		}
	}

	_, summary := p.Process(context.Background(), "clinic-1", "doc-1", entries)
	want := BatchSummary{Total: 6, Processed: 1, Duplicates: 5, NotificationsSent: 1, Errors: 0}
	if summary != want {
		t.Fatalf("summary = %+v, want %+v", summary, want)
	}
	if reg.PatientCount() != 1 || reg.AppointmentCount() != 1 {
		t.Errorf("registry rows = %d patients / %d appointments, want 1/1",
			reg.PatientCount(), reg.AppointmentCount())
	}
}

func TestProcessCancelledBeforeDispatch(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	p := newTestProcessor(t, reg, &countingMessenger{}, ProcessorConfig{Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, summary := p.Process(ctx, "clinic-1", "doc-1", []Entry{
		{Name: "Asha", Phone: "9876543210", AppointmentTime: "2026-03-14T09:00"},
		{Name: "Meena", Phone: "9123456789", AppointmentTime: "2026-03-14T10:00"},
	})

	for i, r := range results {
		if r.Error != ErrBatchCancelled.Error() {
			t.Errorf("entry %d error = %q, want cancelled", i, r.Error)
		}
	}
	if summary.Total != summary.Processed+summary.Duplicates+summary.Errors {
		t.Errorf("summary invariant broken: %+v", summary)
	}
	if summary.Errors != 2 {
		t.Errorf("errors = %d, want 2", summary.Errors)
	}
	if reg.PatientCount() != 0 {
		t.Errorf("cancelled batch must not create records, got %d patients", reg.PatientCount())
	}
}

func TestProcessNotifyDuplicatesPolicy(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	patient := registry.NewPatient("clinic-1", "Asha", "9876543210")
	if err := reg.CreatePatient(context.Background(), patient); err != nil {
		t.Fatalf("seed patient: %v", err)
	}
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	appt := registry.NewAppointment("clinic-1", "doc-1", patient.ID, time.Date(2026, 3, 14, 9, 0, 0, 0, loc))
	if err := reg.CreateAppointment(context.Background(), appt); err != nil {
		t.Fatalf("seed appointment: %v", err)
	}

	messenger := &countingMessenger{}
	p := newTestProcessor(t, reg, messenger, ProcessorConfig{Workers: 1, NotifyDuplicates: true})

	results, summary := p.Process(context.Background(), "clinic-1", "doc-1", []Entry{
		{Name: "Asha", Phone: "9876543210", AppointmentTime: "2026-03-14T15:00"},
	})

	r := results[0]
	if !r.IsDuplicate {
		t.Fatalf("entry must be a duplicate, got %+v", r)
	}
	if r.AppointmentID != appt.ID {
		t.Errorf("appointment id = %q, want the existing %q", r.AppointmentID, appt.ID)
	}
	if !r.NotificationSent || r.IntakeLink == "" {
		t.Errorf("duplicate must be re-invited under the policy, got %+v", r)
	}
	if got := messenger.sends.Load(); got != 1 {
		t.Errorf("sends = %d, want 1", got)
	}
	if summary.Duplicates != 1 || summary.NotificationsSent != 1 {
		t.Errorf("summary = %+v, want 1 duplicate with 1 send", summary)
	}
	if reg.AppointmentCount() != 1 {
		t.Errorf("appointment rows = %d, want 1 (no new booking)", reg.AppointmentCount())
	}
}

func TestProcessDuplicatesNotNotifiedByDefault(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	messenger := &countingMessenger{}
	p := newTestProcessor(t, reg, messenger, ProcessorConfig{Workers: 2})

	entries := []Entry{
		{Name: "Asha", Phone: "9876543210", AppointmentTime: "2026-03-14T09:00"},
	}
	p.Process(context.Background(), "clinic-1", "doc-1", entries)
	_, summary := p.Process(context.Background(), "clinic-1", "doc-1", entries)

	if summary.Duplicates != 1 || summary.NotificationsSent != 0 {
		t.Errorf("summary = %+v, want duplicate without a send", summary)
	}
	if got := messenger.sends.Load(); got != 1 {
		t.Errorf("sends = %d, want only the original invitation", got)
	}
}

func TestProcessEmptyBatch(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	p := newTestProcessor(t, reg, &countingMessenger{}, ProcessorConfig{Workers: 4})

	results, summary := p.Process(context.Background(), "clinic-1", "doc-1", nil)
	if len(results) != 0 {
		t.Errorf("results = %d, want 0", len(results))
	}
	if summary != (BatchSummary{}) {
		t.Errorf("summary = %+v, want zero", summary)
	}
}
