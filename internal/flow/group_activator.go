package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lukia-marketing/campaignbot/internal/genai"
	"github.com/lukia-marketing/campaignbot/internal/models"
)

const (
	msgActivateFailed = "Lo siento, hubo un problema activando el grupo de WhatsApp. ¿Puedes intentarlo de nuevo en unos minutos?"
	msgGroupPending   = "🎉 ¡Listo! El grupo de WhatsApp se está generando. En 2-3 minutos pregúntame por el enlace y te lo comparto."
)

// groupActivatorReply is the oracle's phrasing for the activation message.
// The step and status transitions are fixed here, not taken from the reply.
type groupActivatorReply struct {
	BotResponse string `json:"bot_response"`
}

// GroupActivator schedules the event so the backend provisions the
// WhatsApp group asynchronously. It refuses to touch the backend unless
// the record proves the event creation step actually ran.
type GroupActivator struct {
	oracle  genai.ClientInterface
	backend CampaignBackend
	timeout time.Duration
}

// NewGroupActivator creates the group activation node.
func NewGroupActivator(oracle genai.ClientInterface, backend CampaignBackend, timeout time.Duration) *GroupActivator {
	return &GroupActivator{oracle: oracle, backend: backend, timeout: timeout}
}

// Name implements Node.
func (n *GroupActivator) Name() string { return nodeGroupActivator }

// Run implements Node.
func (n *GroupActivator) Run(ctx context.Context, rec *models.ConversationRecord) {
	slog.Info("GroupActivator.Run: starting", "sessionID", rec.SessionID, "eventID", rec.EventID)

	// Hard precondition: only a record that just left the event creator may
	// trigger activation. Anything else is a routing fault, not a user error.
	if rec.ProcessingStatus != models.StatusCreatingGroup || rec.EventID == "" {
		rec.CurrentStep = models.StepError
		rec.ProcessingStatus = models.StatusError
		rec.BotResponse = msgActivateFailed
		slog.Error("GroupActivator.Run: precondition violated", "sessionID", rec.SessionID, "status", rec.ProcessingStatus, "eventID", rec.EventID)
		return
	}

	// Record the id before the call so a crash mid-activation still leaves
	// the user able to poll for the group later.
	rec.PendingEventID = rec.EventID

	if _, err := n.backend.ActivateEvent(ctx, rec.EventID); err != nil {
		rec.CurrentStep = models.StepError
		rec.ProcessingStatus = models.StatusError
		rec.BotResponse = msgActivateFailed
		slog.Error("GroupActivator.Run: backend activation failed", "error", err, "sessionID", rec.SessionID, "eventID", rec.EventID)
		return
	}

	rec.CurrentStep = models.StepPendingGroup
	rec.ProcessingStatus = models.StatusCompleted

	var reply groupActivatorReply
	prompt := fmt.Sprintf(groupActivatorPrompt, rec.EventID)
	if err := queryOracle(ctx, n.oracle, n.timeout, prompt, rec.LastUserMessage, &reply); err != nil || reply.BotResponse == "" {
		rec.BotResponse = msgGroupPending
	} else {
		rec.BotResponse = reply.BotResponse
	}
	slog.Info("GroupActivator.Run: event activated", "sessionID", rec.SessionID, "eventID", rec.EventID)
}
