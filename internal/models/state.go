// Package models defines the shared data types for the campaign bot:
// the per-session conversation record, its step/status enums, and the
// campaign/event/group models exchanged with the Lukia API.
package models

import "time"

// Step identifies the conversation phase a session is in. It drives which
// graph node runs next.
type Step string

// Conversation steps.
const (
	StepGreeting            Step = "greeting"
	StepCampaignName        Step = "campaign_name"
	StepEventName           Step = "event_name"
	StepEventDate           Step = "event_date"
	StepTimezone            Step = "timezone"
	StepAdmins              Step = "admins"
	StepContext             Step = "context"
	StepConfirmation        Step = "confirmation"
	StepCreateCampaign      Step = "create_campaign"
	StepCreateEvent         Step = "create_event"
	StepCreateWhatsAppGroup Step = "create_whatsapp_group"
	StepPendingGroup        Step = "pending_group"
	StepCheckStatus         Step = "check_status"
	StepWait                Step = "wait"
	StepCompleted           Step = "completed"
	StepError               Step = "error"
	StepOutOfContext        Step = "out_of_context"
)

var validSteps = map[Step]struct{}{
	StepGreeting: {}, StepCampaignName: {}, StepEventName: {}, StepEventDate: {},
	StepTimezone: {}, StepAdmins: {}, StepContext: {}, StepConfirmation: {},
	StepCreateCampaign: {}, StepCreateEvent: {}, StepCreateWhatsAppGroup: {},
	StepPendingGroup: {}, StepCheckStatus: {}, StepWait: {}, StepCompleted: {},
	StepError: {}, StepOutOfContext: {},
}

// IsValidStep reports whether s is one of the known conversation steps.
func IsValidStep(s Step) bool {
	_, ok := validSteps[s]
	return ok
}

// Status is the pipeline sub-status, orthogonal to Step. Decision functions
// use the (Step, Status) pair to disambiguate outcomes that share a step.
//
// Note: StatusCompleted carries two meanings, exactly like the upstream
// system: "event activation completed" (step pending_group) and "campaign
// completed" (step completed). Keep Step and Status as two fields;
// collapsing them would merge those states.
type Status string

// Pipeline sub-statuses.
const (
	StatusIdle             Status = "idle"
	StatusCreatingCampaign Status = "creating_campaign"
	StatusCreatingEvent    Status = "creating_event"
	StatusCreatingGroup    Status = "creating_group"
	StatusCreating         Status = "creating"
	StatusCheckingStatus   Status = "checking_status"
	StatusPending          Status = "pending"
	StatusCompleted        Status = "completed"
	StatusError            Status = "error"
	StatusOutOfContext     Status = "out_of_context"
)

// MessageEntry is one exchanged message in a session's audit log.
type MessageEntry struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// DefaultGreeting is the canned first message for a fresh session, used
// before any oracle call has happened and as the oracle-failure greeting.
const DefaultGreeting = "¡Hola! Soy LukiaBot, te ayudo a armar tu campaña y obtener enlaces de WhatsApp en minutos. ¿Cómo se llamará tu campaña?"

// NewCampaignPrompt is the message attached to a record reset for a new
// campaign by the completion node.
const NewCampaignPrompt = "¡Nueva campaña! ¿Cuál será el nombre?"

// ConversationRecord is the mutable per-session state. It is owned by the
// flow engine and mutated only by graph nodes during a turn.
type ConversationRecord struct {
	SessionID        string `json:"session_id"`
	CurrentStep      Step   `json:"current_step"`
	ProcessingStatus Status `json:"processing_status"`

	// Collected campaign data; empty until filled.
	CampaignName   string   `json:"campaign_name,omitempty"`
	EventName      string   `json:"event_name,omitempty"`
	EventDate      string   `json:"event_date,omitempty"` // raw until validated by the event creator
	Timezone       string   `json:"timezone,omitempty"`
	Administrators []string `json:"administrators,omitempty"`
	Context        string   `json:"context,omitempty"`

	// External identifiers from the Lukia API.
	CampaignID     string `json:"campaign_id,omitempty"`
	EventID        string `json:"event_id,omitempty"`
	PendingEventID string `json:"pending_event_id,omitempty"`
	GroupURL       string `json:"group_url,omitempty"`

	// Per-turn fields. BotResponse is the only field the transport layer
	// reads back after a turn.
	LastUserMessage string         `json:"last_user_message,omitempty"`
	BotResponse     string         `json:"bot_response"`
	MessageLog      []MessageEntry `json:"message_log,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversationRecord creates the initial record for a session.
func NewConversationRecord(sessionID string) *ConversationRecord {
	now := time.Now().UTC()
	return &ConversationRecord{
		SessionID:        sessionID,
		CurrentStep:      StepGreeting,
		ProcessingStatus: StatusIdle,
		BotResponse:      DefaultGreeting,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// ResetForNewCampaign clears every collected and external field but keeps
// the session identity and message log, moving the conversation straight to
// the campaign-name step.
func (r *ConversationRecord) ResetForNewCampaign() {
	*r = ConversationRecord{
		SessionID:        r.SessionID,
		CurrentStep:      StepCampaignName,
		ProcessingStatus: StatusIdle,
		BotResponse:      NewCampaignPrompt,
		MessageLog:       r.MessageLog,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        time.Now().UTC(),
	}
}

// CollectedComplete reports whether every field required to start the
// creation pipeline has been collected.
func (r *ConversationRecord) CollectedComplete() bool {
	return r.CampaignName != "" &&
		r.EventName != "" &&
		r.EventDate != "" &&
		r.Timezone != "" &&
		len(r.Administrators) > 0 &&
		r.Context != ""
}

// MissingFields returns the names of required fields that are still empty.
func (r *ConversationRecord) MissingFields() []string {
	var missing []string
	if r.CampaignName == "" {
		missing = append(missing, "campaign_name")
	}
	if r.EventName == "" {
		missing = append(missing, "event_name")
	}
	if r.EventDate == "" {
		missing = append(missing, "event_date")
	}
	if r.Timezone == "" {
		missing = append(missing, "timezone")
	}
	if len(r.Administrators) == 0 {
		missing = append(missing, "administrators")
	}
	if r.Context == "" {
		missing = append(missing, "context")
	}
	return missing
}

// AppendMessage appends one entry to the audit log. The log is append-only;
// nothing ever truncates or reorders it.
func (r *ConversationRecord) AppendMessage(role, content string) {
	r.MessageLog = append(r.MessageLog, MessageEntry{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}
