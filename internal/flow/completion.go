package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lukia-marketing/campaignbot/internal/genai"
	"github.com/lukia-marketing/campaignbot/internal/models"
)

// Completion actions understood from the oracle reply.
const (
	actionNewCampaign     = "new_campaign"
	actionShowSummary     = "show_summary"
	actionGeneralResponse = "general_response"
)

// completionReply is the oracle's read of a message on a finished campaign.
type completionReply struct {
	Action      string `json:"action"`
	BotResponse string `json:"bot_response"`
	ResetState  *bool  `json:"reset_state"`
}

// Completion handles conversation on a finished campaign: summaries,
// celebration, and resetting the record when the user wants a new one.
type Completion struct {
	oracle  genai.ClientInterface
	timeout time.Duration
}

// NewCompletion creates the completion node.
func NewCompletion(oracle genai.ClientInterface, timeout time.Duration) *Completion {
	return &Completion{oracle: oracle, timeout: timeout}
}

// Name implements Node.
func (n *Completion) Name() string { return nodeCompletion }

// Run implements Node.
func (n *Completion) Run(ctx context.Context, rec *models.ConversationRecord) {
	slog.Info("Completion.Run: starting", "sessionID", rec.SessionID, "campaignName", rec.CampaignName)

	var reply completionReply
	prompt := fmt.Sprintf(completionPrompt, rec.LastUserMessage, rec.CampaignName, rec.EventName, rec.GroupURL, rec.EventID)
	if err := queryOracle(ctx, n.oracle, n.timeout, prompt, rec.LastUserMessage, &reply); err != nil {
		rec.BotResponse = n.summary(rec)
		rec.CurrentStep = models.StepCompleted
		rec.ProcessingStatus = models.StatusCompleted
		slog.Warn("Completion.Run: oracle failed, showing summary", "error", err, "sessionID", rec.SessionID)
		return
	}

	if reply.Action == actionNewCampaign || (reply.ResetState != nil && *reply.ResetState) {
		rec.ResetForNewCampaign()
		if reply.BotResponse != "" {
			rec.BotResponse = reply.BotResponse
		}
		slog.Info("Completion.Run: record reset for new campaign", "sessionID", rec.SessionID)
		return
	}

	rec.CurrentStep = models.StepCompleted
	rec.ProcessingStatus = models.StatusCompleted
	rec.BotResponse = reply.BotResponse
	if rec.BotResponse == "" || reply.Action == actionShowSummary {
		rec.BotResponse = n.summary(rec)
	}
	slog.Info("Completion.Run: done", "sessionID", rec.SessionID, "action", reply.Action)
}

// summary builds the canned campaign recap shown when the oracle is down or
// the user asks for details.
func (n *Completion) summary(rec *models.ConversationRecord) string {
	link := rec.GroupURL
	if link == "" {
		link = "pendiente"
	}
	return fmt.Sprintf(
		"🎊 Resumen de tu campaña:\n- Campaña: %s\n- Evento: %s\n- Fecha: %s\n- Grupo de WhatsApp: %s\n\n¿Quieres crear otra campaña?",
		rec.CampaignName, rec.EventName, rec.EventDate, link,
	)
}
