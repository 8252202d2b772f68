package parchi

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/russhil/backend-parchi/internal/observability/metrics"
	"github.com/russhil/backend-parchi/internal/registry"
	"github.com/russhil/backend-parchi/pkg/logging"
)

var processorTracer = otel.Tracer("parchi.internal.pipeline")

const defaultWorkers = 4

// ProcessorConfig tunes the batch orchestrator.
type ProcessorConfig struct {
	// Workers bounds how many entries run concurrently.
	Workers int

	// NotifyDuplicates re-sends the invitation when an entry resolves to an
	// already-booked appointment.
	NotifyDuplicates bool

	// RegistryTimeout bounds each entry's match-and-create section.
	RegistryTimeout time.Duration
}

// Processor runs reviewed entries through normalize, match, create, and
// notify with bounded parallelism. One Processor serves many batches.
type Processor struct {
	normalizer *Normalizer
	matcher    *Matcher
	reg        registry.Registry
	notifier   *Notifier
	cfg        ProcessorConfig
	logger     *logging.Logger
	metrics    *metrics.PipelineMetrics

	// phoneLocks serializes match-through-create per canonical phone so two
	// workers cannot create two patients for the same number.
	phoneLocks sync.Map
}

// NewProcessor wires the batch orchestrator.
func NewProcessor(normalizer *Normalizer, matcher *Matcher, reg registry.Registry, notifier *Notifier, cfg ProcessorConfig, logger *logging.Logger, m *metrics.PipelineMetrics) *Processor {
	if normalizer == nil {
		panic("parchi: normalizer cannot be nil")
	}
	if matcher == nil {
		panic("parchi: matcher cannot be nil")
	}
	if reg == nil {
		panic("parchi: registry cannot be nil")
	}
	if notifier == nil {
		panic("parchi: notifier cannot be nil")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Processor{
		normalizer: normalizer,
		matcher:    matcher,
		reg:        reg,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
	}
}

// workUnit is one entry's normalized state, fixed before dispatch.
type workUnit struct {
	skip bool
	norm NormalizedEntry
	owns bool
}

// Process runs one reviewed batch. Results preserve input order regardless
// of worker completion order, and the summary counts always satisfy
// total == processed + duplicates + errors. Cancelling ctx stops new
// dispatches; entries already handed to a worker run to completion on a
// detached context so committed records are never abandoned halfway.
func (p *Processor) Process(ctx context.Context, clinicID, doctorID string, entries []Entry) ([]ProcessResult, BatchSummary) {
	ctx, span := processorTracer.Start(ctx, "parchi.process_batch")
	defer span.End()
	span.SetAttributes(
		attribute.Int("parchi.batch_size", len(entries)),
		attribute.String("parchi.clinic_id", clinicID),
	)

	started := time.Now()
	p.metrics.ObserveBatchSize(len(entries))

	results := make([]ProcessResult, len(entries))
	units := make([]workUnit, len(entries))

	// Normalization and phone claims run sequentially in input order so the
	// first valid occurrence of a phone deterministically owns it.
	claims := NewBatchClaims()
	for i, e := range entries {
		results[i] = ProcessResult{
			Name:            e.Name,
			Phone:           e.Phone,
			AppointmentTime: e.AppointmentTime,
		}
		norm, err := p.normalizer.Normalize(e)
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				results[i].Error = verr.Reason
			} else {
				results[i].Error = err.Error()
			}
			units[i].skip = true
			continue
		}
		units[i].norm = norm
		units[i].owns = claims.Claim(norm.PhoneCanonical, i)
	}

	idx := make(chan int)
	var wg sync.WaitGroup
	workers := p.cfg.Workers
	if len(entries) < workers {
		workers = len(entries)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				p.processEntry(context.Background(), clinicID, doctorID, units[i], &results[i])
			}
		}()
	}

dispatch:
	for i := range units {
		if units[i].skip {
			continue
		}
		// Checked before the select so an already-cancelled batch never
		// dispatches, regardless of which select case is ready.
		if ctx.Err() != nil {
			p.markCancelled(span, clinicID, units[i:], results[i:])
			break
		}
		select {
		case idx <- i:
		case <-ctx.Done():
			p.markCancelled(span, clinicID, units[i:], results[i:])
			break dispatch
		}
	}
	close(idx)
	wg.Wait()

	summary := Summarize(results)
	p.observeOutcomes(results)
	p.metrics.ObserveStageLatency("process", time.Since(started).Seconds())
	p.logger.Info("batch processed",
		"clinic_id", clinicID,
		"total", summary.Total,
		"processed", summary.Processed,
		"duplicates", summary.Duplicates,
		"notifications_sent", summary.NotificationsSent,
		"errors", summary.Errors,
	)
	return results, summary
}

// processEntry runs one entry's match-create-notify unit of work. Writes
// only to res; sibling entries are untouched by any failure here.
func (p *Processor) processEntry(ctx context.Context, clinicID, doctorID string, u workUnit, res *ProcessResult) {
	lock := p.lockForPhone(u.norm.PhoneCanonical)
	lock.Lock()
	decision, patient, appt, err := p.resolveAndCreate(ctx, clinicID, doctorID, u)
	lock.Unlock()

	if err != nil {
		p.logger.Error("entry processing failed",
			"clinic_id", clinicID,
			"name", u.norm.Name,
			"error", err.Error(),
		)
		res.Error = err.Error()
		return
	}

	switch decision.Kind {
	case MatchDuplicateInBatch:
		// An earlier entry in this batch owns the phone; nothing was
		// created, and there is no appointment to invite against.
		res.IsDuplicate = true
		return

	case MatchDuplicateAppointment:
		res.IsDuplicate = true
		res.PatientID = decision.Patient.ID
		res.AppointmentID = decision.Appointment.ID
		if !p.cfg.NotifyDuplicates {
			return
		}
		invite, derr := p.notifier.Dispatch(ctx, clinicID, doctorID, decision.Patient, decision.Appointment, u.norm)
		if derr != nil {
			res.NotificationError = derr.Error()
			return
		}
		res.IntakeLink = invite.Link
		res.NotificationSent = invite.Sent
		res.NotificationError = invite.SendErr
		return
	}

	if decision.Kind == MatchNewPatient {
		res.IsNewPatient = true
	}
	res.PatientID = patient.ID
	res.AppointmentID = appt.ID

	invite, derr := p.notifier.Dispatch(ctx, clinicID, doctorID, patient, appt, u.norm)
	if derr != nil {
		res.Error = derr.Error()
		return
	}
	res.IntakeLink = invite.Link
	res.NotificationSent = invite.Sent
	res.NotificationError = invite.SendErr
}

// resolveAndCreate is the per-phone critical section: match the entry, then
// create the patient and appointment rows it is entitled to.
func (p *Processor) resolveAndCreate(ctx context.Context, clinicID, doctorID string, u workUnit) (MatchDecision, *registry.Patient, *registry.Appointment, error) {
	if p.cfg.RegistryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.RegistryTimeout)
		defer cancel()
	}

	decision, err := p.matcher.Match(ctx, clinicID, u.norm, u.owns)
	if err != nil {
		return decision, nil, nil, err
	}

	switch decision.Kind {
	case MatchDuplicateInBatch, MatchDuplicateAppointment:
		return decision, nil, nil, nil
	}

	patient := decision.Patient
	if decision.Kind == MatchNewPatient {
		patient = registry.NewPatient(clinicID, u.norm.Name, u.norm.PhoneCanonical)
		if err := p.reg.CreatePatient(ctx, patient); err != nil {
			return decision, nil, nil, &CreationError{Op: "create patient", Cause: err}
		}
	}

	appt := registry.NewAppointment(clinicID, doctorID, patient.ID, u.norm.AppointmentAt)
	if err := p.reg.CreateAppointment(ctx, appt); err != nil {
		return decision, nil, nil, &CreationError{Op: "create appointment", Cause: err}
	}
	return decision, patient, appt, nil
}

func (p *Processor) lockForPhone(phone string) *sync.Mutex {
	lockAny, _ := p.phoneLocks.LoadOrStore(phone, &sync.Mutex{})
	return lockAny.(*sync.Mutex)
}

// markCancelled records the cancellation on every undispatched entry so the
// summary counts stay consistent.
func (p *Processor) markCancelled(span trace.Span, clinicID string, units []workUnit, results []ProcessResult) {
	span.RecordError(context.Canceled)
	remaining := 0
	for j := range units {
		if !units[j].skip {
			results[j].Error = ErrBatchCancelled.Error()
			remaining++
		}
	}
	p.logger.Warn("batch cancelled, skipping undispatched entries",
		"clinic_id", clinicID,
		"remaining", remaining,
	)
}

func (p *Processor) observeOutcomes(results []ProcessResult) {
	for _, r := range results {
		switch {
		case r.Error != "":
			p.metrics.ObserveEntry("error")
		case r.IsDuplicate:
			p.metrics.ObserveEntry("duplicate")
		default:
			p.metrics.ObserveEntry("processed")
		}
	}
}
