package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lukia-marketing/campaignbot/internal/models"
)

const (
	msgEventCreateFailed    = "Lo siento, hubo un problema creando el evento. ¿Puedes intentarlo de nuevo en unos minutos?"
	msgEventMissingCampaign = "Algo salió mal: no tengo la campaña asociada. Empecemos de nuevo, ¿cómo quieres llamar la campaña?"
)

// EventCreator creates the event under the freshly created campaign. The
// event date is re-validated here even though the router already nudged the
// user, so a stale or past date can never reach the backend.
type EventCreator struct {
	backend CampaignBackend
	now     func() time.Time
}

// NewEventCreator creates the event creation node. nowFn defaults to
// time.Now and exists for tests.
func NewEventCreator(backend CampaignBackend, nowFn func() time.Time) *EventCreator {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &EventCreator{backend: backend, now: nowFn}
}

// Name implements Node.
func (n *EventCreator) Name() string { return nodeEventCreator }

// Run implements Node.
func (n *EventCreator) Run(ctx context.Context, rec *models.ConversationRecord) {
	slog.Info("EventCreator.Run: starting", "sessionID", rec.SessionID, "campaignID", rec.CampaignID, "eventName", rec.EventName)

	if rec.CampaignID == "" {
		rec.CurrentStep = models.StepCampaignName
		rec.ProcessingStatus = models.StatusIdle
		rec.BotResponse = msgEventMissingCampaign
		slog.Warn("EventCreator.Run: reached without a campaign id", "sessionID", rec.SessionID)
		return
	}

	targetDate, err := ValidateEventDate(rec.EventDate, rec.Timezone, n.now())
	if err != nil {
		var dateErr *InvalidEventDateError
		if errors.As(err, &dateErr) {
			rec.CurrentStep = models.StepEventDate
			rec.ProcessingStatus = models.StatusIdle
			rec.BotResponse = dateErr.BotMessage
			slog.Info("EventCreator.Run: event date rejected", "sessionID", rec.SessionID, "reason", dateErr.Reason)
			return
		}
		rec.CurrentStep = models.StepError
		rec.ProcessingStatus = models.StatusError
		rec.BotResponse = msgEventCreateFailed
		slog.Error("EventCreator.Run: date validation failed", "error", err, "sessionID", rec.SessionID)
		return
	}

	input := models.EventInput{
		CampaignID:     rec.CampaignID,
		Name:           rec.EventName,
		EventDate:      targetDate,
		Timezone:       rec.Timezone,
		Administrators: rec.Administrators,
		Context:        rec.Context,
	}
	event, err := n.backend.CreateEvent(ctx, input)
	if err != nil {
		rec.CurrentStep = models.StepError
		rec.ProcessingStatus = models.StatusError
		rec.BotResponse = msgEventCreateFailed
		slog.Error("EventCreator.Run: backend create failed", "error", err, "sessionID", rec.SessionID)
		return
	}

	rec.EventID = event.ID
	rec.CurrentStep = models.StepCreateWhatsAppGroup
	rec.ProcessingStatus = models.StatusCreatingGroup
	rec.BotResponse = fmt.Sprintf("✅ Evento '%s' creado. Activando la generación del grupo de WhatsApp...", rec.EventName)
	slog.Info("EventCreator.Run: event created", "sessionID", rec.SessionID, "eventID", event.ID)
}
