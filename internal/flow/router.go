package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/lukia-marketing/campaignbot/internal/genai"
	"github.com/lukia-marketing/campaignbot/internal/models"
)

// Fixed router fallback messages.
const (
	msgRouterApology = "Disculpa, no entendí completamente tu mensaje. ¿Puedes repetirlo? Soy un asistente para crear campañas y eventos."
	msgOutOfContext  = "Disculpa, soy un asistente especializado en la creación de campañas con eventos y grupos de WhatsApp. ¿Te gustaría crear una campaña?"
	msgMissingFields = "Faltan algunos datos. Te ayudo a completarlos."
	msgGenericHelp   = "¿Cómo puedo ayudarte?"
)

// phoneRe matches phone numbers the mechanical administrator fallback
// accepts: 7 to 15 digits with an optional leading plus.
var phoneRe = regexp.MustCompile(`\+?\d{7,15}`)

// routerReply is the oracle's classification of one user message.
type routerReply struct {
	NextStep          string       `json:"next_step"`
	BotResponse       string       `json:"bot_response"`
	ProcessingStatus  string       `json:"processing_status"`
	IsCampaignRelated *bool        `json:"is_campaign_related"`
	Parsed            routerParsed `json:"parsed"`
}

// routerParsed carries the field values the oracle extracted; null fields
// mean "nothing new".
type routerParsed struct {
	CampaignName string     `json:"campaign_name"`
	EventName    string     `json:"event_name"`
	EventDate    string     `json:"event_date"`
	Timezone     string     `json:"timezone"`
	Admins       stringList `json:"admins"`
	Context      string     `json:"context"`
	EventID      string     `json:"event_id"`
	UserConfirms *bool      `json:"user_confirms"`
}

// Router classifies the incoming message against the record, decides
// whether it is in-domain, and applies extracted field values.
type Router struct {
	oracle  genai.ClientInterface
	timeout time.Duration
}

// NewRouter creates the router node.
func NewRouter(oracle genai.ClientInterface, timeout time.Duration) *Router {
	return &Router{oracle: oracle, timeout: timeout}
}

// Name implements Node.
func (n *Router) Name() string { return nodeRouter }

// Run implements Node.
func (n *Router) Run(ctx context.Context, rec *models.ConversationRecord) {
	userMessage := rec.LastUserMessage
	slog.Info("Router.Run: classifying message", "sessionID", rec.SessionID, "step", rec.CurrentStep, "messageLength", len(userMessage))

	collected, _ := json.Marshal(map[string]any{
		"campaign_id":   rec.CampaignID,
		"event_id":      rec.EventID,
		"campaign_name": rec.CampaignName,
		"event_name":    rec.EventName,
		"event_date":    rec.EventDate,
		"timezone":      rec.Timezone,
		"admins":        rec.Administrators,
		"context":       rec.Context,
	})

	var reply routerReply
	prompt := fmt.Sprintf(routerPrompt, rec.CurrentStep, userMessage, string(collected))
	if err := queryOracle(ctx, n.oracle, n.timeout, prompt, userMessage, &reply); err != nil {
		// Oracle unavailable or unparseable: apologize, keep the step,
		// stay idle. Never surfaces as an error to the caller.
		slog.Error("Router.Run: oracle failed, using apology fallback", "error", err, "sessionID", rec.SessionID)
		rec.BotResponse = msgRouterApology
		rec.ProcessingStatus = models.StatusIdle
		return
	}

	if reply.IsCampaignRelated != nil && !*reply.IsCampaignRelated {
		rec.CurrentStep = models.StepOutOfContext
		rec.ProcessingStatus = models.StatusOutOfContext
		rec.BotResponse = reply.BotResponse
		if rec.BotResponse == "" {
			rec.BotResponse = msgOutOfContext
		}
		slog.Info("Router.Run: message out of context", "sessionID", rec.SessionID)
		return
	}

	if next := models.Step(reply.NextStep); models.IsValidStep(next) {
		rec.CurrentStep = next
	}
	rec.BotResponse = reply.BotResponse
	if rec.BotResponse == "" {
		rec.BotResponse = msgGenericHelp
	}

	// The router only adopts the statuses it owns; the creation trigger is
	// decided below from the confirmation check, not from oracle optimism.
	switch models.Status(reply.ProcessingStatus) {
	case models.StatusCheckingStatus, models.StatusOutOfContext:
		rec.ProcessingStatus = models.Status(reply.ProcessingStatus)
	}

	n.applyParsed(rec, reply.Parsed, userMessage)

	if reply.Parsed.UserConfirms != nil {
		if *reply.Parsed.UserConfirms {
			if rec.CollectedComplete() {
				rec.ProcessingStatus = models.StatusCreatingCampaign
				slog.Info("Router.Run: all data complete, starting campaign creation", "sessionID", rec.SessionID)
			} else {
				rec.BotResponse = msgMissingFields
				rec.ProcessingStatus = models.StatusIdle
				slog.Info("Router.Run: confirmation with incomplete data", "sessionID", rec.SessionID, "missing", rec.MissingFields())
			}
		} else {
			rec.ProcessingStatus = models.StatusIdle
		}
	}

	slog.Info("Router.Run: routed", "sessionID", rec.SessionID, "step", rec.CurrentStep, "status", rec.ProcessingStatus)
}

// applyParsed copies each non-empty extracted field onto the record.
// Administrators is the only field with a mechanical fallback: when the
// oracle extracted nothing and none are set yet, phone-number-looking
// digit runs in the raw text are taken as-is.
func (n *Router) applyParsed(rec *models.ConversationRecord, parsed routerParsed, userMessage string) {
	if v := strings.TrimSpace(parsed.CampaignName); v != "" {
		rec.CampaignName = v
	}
	if v := strings.TrimSpace(parsed.EventName); v != "" {
		rec.EventName = v
	}
	if v := strings.TrimSpace(parsed.EventDate); v != "" {
		rec.EventDate = v
	}
	if v := strings.TrimSpace(parsed.Timezone); v != "" {
		rec.Timezone = v
	}
	if v := strings.TrimSpace(parsed.Context); v != "" {
		rec.Context = v
	}
	if v := strings.TrimSpace(parsed.EventID); v != "" {
		rec.EventID = v
	}

	if len(parsed.Admins) > 0 {
		admins := make([]string, 0, len(parsed.Admins))
		for _, a := range parsed.Admins {
			if a = strings.TrimSpace(a); a != "" {
				admins = append(admins, a)
			}
		}
		if len(admins) > 0 {
			rec.Administrators = admins
		}
	} else if len(rec.Administrators) == 0 && rec.CurrentStep == models.StepAdmins {
		if nums := phoneRe.FindAllString(userMessage, -1); len(nums) > 0 {
			rec.Administrators = nums
			slog.Debug("Router.applyParsed: mechanical phone extraction", "sessionID", rec.SessionID, "count", len(nums))
		}
	}
}
