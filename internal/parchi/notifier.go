package parchi

import (
	"context"
	"time"

	"github.com/russhil/backend-parchi/internal/observability/metrics"
	"github.com/russhil/backend-parchi/internal/registry"
	"github.com/russhil/backend-parchi/pkg/logging"
)

// displayTimeLayout renders appointment times the way the invitation
// template expects, e.g. "March 14, 2026 at 09:00 AM".
const displayTimeLayout = "January 02, 2006 at 03:04 PM"

const (
	errGatewayNotConfigured = "messaging gateway not configured"

	tokenCreateTimeout = 10 * time.Second
)

// Messenger delivers the self-intake invitation. Satisfied by the WhatsApp
// client; template specifics stay behind this boundary.
type Messenger interface {
	SendIntakeInvite(ctx context.Context, to, patientName, displayTime, intakeURL string) error
}

// Invite is the notification outcome for one committed entry.
type Invite struct {
	Link    string
	Sent    bool
	SendErr string
}

// Notifier mints intake tokens and dispatches invitations after records are
// committed. A send failure never rolls anything back; it is recorded on
// the entry's result only.
type Notifier struct {
	reg         registry.Registry
	messenger   Messenger
	baseURL     string
	countryCode string
	logger      *logging.Logger
	metrics     *metrics.PipelineMetrics
}

// NewNotifier builds a dispatcher. messenger may be nil when no gateway is
// configured; invitations are then recorded as failed sends.
func NewNotifier(reg registry.Registry, messenger Messenger, baseURL, countryCode string, logger *logging.Logger, m *metrics.PipelineMetrics) *Notifier {
	if reg == nil {
		panic("parchi: registry cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Notifier{
		reg:         reg,
		messenger:   messenger,
		baseURL:     baseURL,
		countryCode: countryCode,
		logger:      logger,
		metrics:     m,
	}
}

// Dispatch creates the intake token backing the self-intake link, then
// sends the invitation. The returned error covers token creation only; send
// failures come back inside the Invite.
func (n *Notifier) Dispatch(ctx context.Context, clinicID, doctorID string, patient *registry.Patient, appt *registry.Appointment, e NormalizedEntry) (Invite, error) {
	tok := registry.NewIntakeToken(clinicID, doctorID, patient.ID, appt.ID, e.PhoneCanonical)
	tctx, cancel := context.WithTimeout(ctx, tokenCreateTimeout)
	defer cancel()
	if err := n.reg.CreateIntakeToken(tctx, tok); err != nil {
		return Invite{}, &CreationError{Op: "create intake token", Cause: err}
	}

	invite := Invite{Link: n.baseURL + "/intake/" + tok.Token}

	if n.messenger == nil {
		n.logger.Warn("messaging gateway not configured, skipping send",
			"patient_id", patient.ID,
			"appointment_id", appt.ID,
		)
		n.metrics.ObserveNotification("skipped")
		invite.SendErr = errGatewayNotConfigured
		return invite, nil
	}

	// The committed appointment is the source of truth for the slot; the
	// entry supplies the clinic-local zone to render it in.
	to := n.countryCode + e.PhoneCanonical
	displayTime := appt.StartTime.In(e.AppointmentAt.Location()).Format(displayTimeLayout)
	if err := n.messenger.SendIntakeInvite(ctx, to, e.Name, displayTime, invite.Link); err != nil {
		n.logger.Warn("intake invitation send failed",
			"patient_id", patient.ID,
			"appointment_id", appt.ID,
			"error", err.Error(),
		)
		n.metrics.ObserveNotification("failed")
		invite.SendErr = err.Error()
		return invite, nil
	}

	n.metrics.ObserveNotification("sent")
	invite.Sent = true
	return invite, nil
}
