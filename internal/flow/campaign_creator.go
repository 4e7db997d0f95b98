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
	msgCampaignCreateFailed = "Lo siento, hubo un problema creando la campaña. ¿Puedes intentarlo de nuevo en unos minutos?"
	msgCampaignMissingName  = "Necesito el nombre de la campaña antes de crearla. ¿Cómo quieres llamarla?"
)

// campaignCreatorReply is the oracle's go/no-go on campaign creation.
type campaignCreatorReply struct {
	ShouldCreate *bool  `json:"should_create"`
	BotResponse  string `json:"bot_response"`
}

// CampaignCreator creates the campaign on the backend once the router has
// signaled that collection is complete and confirmed.
type CampaignCreator struct {
	oracle  genai.ClientInterface
	backend CampaignBackend
	timeout time.Duration
}

// NewCampaignCreator creates the campaign creation node.
func NewCampaignCreator(oracle genai.ClientInterface, backend CampaignBackend, timeout time.Duration) *CampaignCreator {
	return &CampaignCreator{oracle: oracle, backend: backend, timeout: timeout}
}

// Name implements Node.
func (n *CampaignCreator) Name() string { return nodeCampaignCreator }

// Run implements Node.
func (n *CampaignCreator) Run(ctx context.Context, rec *models.ConversationRecord) {
	slog.Info("CampaignCreator.Run: starting", "sessionID", rec.SessionID, "campaignName", rec.CampaignName)

	if rec.CampaignName == "" {
		rec.CurrentStep = models.StepCampaignName
		rec.ProcessingStatus = models.StatusIdle
		rec.BotResponse = msgCampaignMissingName
		slog.Warn("CampaignCreator.Run: reached without a campaign name", "sessionID", rec.SessionID)
		return
	}

	// The oracle can veto creation when the collected data looks wrong, but
	// it cannot force it: a veto keeps the user in the confirmation step.
	var reply campaignCreatorReply
	prompt := fmt.Sprintf(campaignCreatorPrompt, rec.CampaignName, rec.ProcessingStatus)
	if err := queryOracle(ctx, n.oracle, n.timeout, prompt, rec.LastUserMessage, &reply); err != nil {
		slog.Warn("CampaignCreator.Run: oracle failed, proceeding with creation", "error", err, "sessionID", rec.SessionID)
	} else if reply.ShouldCreate != nil && !*reply.ShouldCreate {
		rec.CurrentStep = models.StepConfirmation
		rec.ProcessingStatus = models.StatusIdle
		rec.BotResponse = reply.BotResponse
		if rec.BotResponse == "" {
			rec.BotResponse = msgMissingFields
		}
		slog.Info("CampaignCreator.Run: creation vetoed", "sessionID", rec.SessionID)
		return
	}

	campaign, err := n.backend.CreateCampaign(ctx, rec.CampaignName)
	if err != nil {
		rec.CurrentStep = models.StepError
		rec.ProcessingStatus = models.StatusError
		rec.BotResponse = msgCampaignCreateFailed
		slog.Error("CampaignCreator.Run: backend create failed", "error", err, "sessionID", rec.SessionID)
		return
	}

	rec.CampaignID = campaign.ID
	rec.CurrentStep = models.StepCreateEvent
	rec.ProcessingStatus = models.StatusCreatingEvent
	rec.BotResponse = fmt.Sprintf("✅ Campaña '%s' creada. Ahora voy a crear el evento '%s'...", rec.CampaignName, rec.EventName)
	slog.Info("CampaignCreator.Run: campaign created", "sessionID", rec.SessionID, "campaignID", campaign.ID)
}
