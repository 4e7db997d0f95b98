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
	msgAskEventID   = "Para consultar el estado necesito el ID del evento. ¿Me lo compartes?"
	msgGroupReady   = "🎉 ¡Tu grupo de WhatsApp está listo! Aquí tienes el enlace: %s"
	msgGroupWaiting = "⏳ El grupo todavía se está generando. Suele tardar 2-3 minutos, pregúntame de nuevo en un momento."
	msgGroupLost    = "No encontré un grupo para ese evento. Puede que aún esté pendiente, o que el ID no sea correcto. ¿Quieres intentar de nuevo?"
	msgCheckFailed  = "Lo siento, no pude consultar el estado del grupo en este momento. Intenta de nuevo en unos minutos."
)

// Group lookup outcomes, used for the phrasing prompt and the logs.
const (
	outcomeReady    = "ready"
	outcomePending  = "pending"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

// statusCheckerReply is the oracle's gate on whether a lookup should run.
type statusCheckerReply struct {
	ShouldCheck *bool  `json:"should_check"`
	BotResponse string `json:"bot_response"`
}

// statusPhrasingReply carries the oracle's wording for a lookup result.
type statusPhrasingReply struct {
	BotResponse string `json:"bot_response"`
}

// StatusChecker polls the backend for the WhatsApp group of the current or
// pending event. The lookup outcome alone decides the step and status; the
// oracle only phrases the answer.
type StatusChecker struct {
	oracle  genai.ClientInterface
	backend CampaignBackend
	timeout time.Duration
}

// NewStatusChecker creates the group status node.
func NewStatusChecker(oracle genai.ClientInterface, backend CampaignBackend, timeout time.Duration) *StatusChecker {
	return &StatusChecker{oracle: oracle, backend: backend, timeout: timeout}
}

// Name implements Node.
func (n *StatusChecker) Name() string { return nodeStatusChecker }

// Run implements Node.
func (n *StatusChecker) Run(ctx context.Context, rec *models.ConversationRecord) {
	eventID := rec.EventID
	if eventID == "" {
		eventID = rec.PendingEventID
	}
	slog.Info("StatusChecker.Run: starting", "sessionID", rec.SessionID, "eventID", eventID)

	shouldCheck := true
	var gate statusCheckerReply
	prompt := fmt.Sprintf(statusCheckerPrompt, rec.LastUserMessage, eventID, rec.ProcessingStatus)
	if err := queryOracle(ctx, n.oracle, n.timeout, prompt, rec.LastUserMessage, &gate); err != nil {
		// A dead oracle must not block a user waiting for their link;
		// default to checking whenever an id exists.
		slog.Warn("StatusChecker.Run: gate oracle failed, defaulting to check", "error", err, "sessionID", rec.SessionID)
	} else if gate.ShouldCheck != nil {
		shouldCheck = *gate.ShouldCheck
	}

	if eventID == "" || !shouldCheck {
		rec.CurrentStep = models.StepWait
		rec.ProcessingStatus = models.StatusPending
		rec.BotResponse = gate.BotResponse
		if rec.BotResponse == "" {
			rec.BotResponse = msgAskEventID
		}
		slog.Info("StatusChecker.Run: no lookup performed", "sessionID", rec.SessionID, "hasEventID", eventID != "", "shouldCheck", shouldCheck)
		return
	}

	group, err := n.backend.GetGroupStatus(ctx, eventID)
	outcome := n.applyOutcome(rec, group, err)
	n.phrase(ctx, rec, eventID, outcome, group)
	slog.Info("StatusChecker.Run: lookup done", "sessionID", rec.SessionID, "eventID", eventID, "outcome", outcome, "step", rec.CurrentStep)
}

// applyOutcome maps the lookup result onto the record and returns the
// outcome label. These transitions are authoritative and idempotent: a
// repeated check on a ready group lands on the same (step, status) pair.
func (n *StatusChecker) applyOutcome(rec *models.ConversationRecord, group *models.MessageGroup, err error) string {
	switch {
	case err != nil:
		rec.CurrentStep = models.StepError
		rec.ProcessingStatus = models.StatusError
		slog.Error("StatusChecker.applyOutcome: backend lookup failed", "error", err, "sessionID", rec.SessionID)
		return outcomeError
	case group == nil:
		rec.CurrentStep = models.StepError
		rec.ProcessingStatus = models.StatusError
		return outcomeNotFound
	case group.Link == "":
		rec.CurrentStep = models.StepWait
		rec.ProcessingStatus = models.StatusPending
		return outcomePending
	default:
		rec.GroupURL = group.Link
		rec.CurrentStep = models.StepCompleted
		rec.ProcessingStatus = models.StatusCompleted
		return outcomeReady
	}
}

// phrase asks the oracle to word the answer for the outcome, falling back
// to the canned message per outcome when the oracle fails.
func (n *StatusChecker) phrase(ctx context.Context, rec *models.ConversationRecord, eventID, outcome string, group *models.MessageGroup) {
	link := ""
	if group != nil {
		link = group.Link
	}

	var reply statusPhrasingReply
	prompt := fmt.Sprintf(statusResponsePrompt, rec.LastUserMessage, eventID, outcome, link)
	if err := queryOracle(ctx, n.oracle, n.timeout, prompt, rec.LastUserMessage, &reply); err == nil && reply.BotResponse != "" {
		rec.BotResponse = reply.BotResponse
		return
	}

	switch outcome {
	case outcomeReady:
		rec.BotResponse = fmt.Sprintf(msgGroupReady, link)
	case outcomePending:
		rec.BotResponse = msgGroupWaiting
	case outcomeNotFound:
		rec.BotResponse = msgGroupLost
	default:
		rec.BotResponse = msgCheckFailed
	}
}
