package flow

import (
	"log/slog"

	"github.com/lukia-marketing/campaignbot/internal/models"
)

// Graph node names.
const (
	nodeRouter          = "router"
	nodeCampaignCreator = "campaign_creator"
	nodeEventCreator    = "event_creator"
	nodeGroupActivator  = "whatsapp_group_creator"
	nodeStatusChecker   = "group_status_checker"
	nodeCompletion      = "completion"
)

// endSignal is the sentinel a decision function returns to finish the turn.
const endSignal = "__end__"

// decisionFunc picks the next node (or endSignal) from the record after a
// node has run. Decisions read state only; they never mutate the record.
type decisionFunc func(rec *models.ConversationRecord) string

// routerDecision dispatches after classification. Pipeline statuses chain
// into their worker nodes; conversational steps end the turn so the bot
// response reaches the user.
func routerDecision(rec *models.ConversationRecord) string {
	if rec.ProcessingStatus == models.StatusOutOfContext || rec.CurrentStep == models.StepOutOfContext {
		return endSignal
	}
	if rec.CurrentStep == models.StepCheckStatus || rec.ProcessingStatus == models.StatusCheckingStatus {
		return nodeStatusChecker
	}
	if rec.ProcessingStatus == models.StatusCreatingCampaign {
		return nodeCampaignCreator
	}
	if rec.CurrentStep == models.StepCreateCampaign && rec.ProcessingStatus == models.StatusIdle {
		return nodeCampaignCreator
	}
	switch rec.CurrentStep {
	case models.StepPendingGroup:
		return endSignal
	case models.StepCompleted:
		return nodeCompletion
	case models.StepError:
		return endSignal
	}
	return endSignal
}

// campaignCreatorDecision continues to the event creator only when the
// campaign actually got created.
func campaignCreatorDecision(rec *models.ConversationRecord) string {
	if rec.ProcessingStatus == models.StatusCreatingEvent && rec.CampaignID != "" {
		return nodeEventCreator
	}
	return endSignal
}

// eventCreatorDecision continues to the activator only when the event
// actually got created.
func eventCreatorDecision(rec *models.ConversationRecord) string {
	if rec.ProcessingStatus == models.StatusCreatingGroup && rec.EventID != "" {
		return nodeGroupActivator
	}
	return endSignal
}

// groupActivatorDecision always ends the turn: activation is asynchronous
// and the user polls for the link in later turns.
func groupActivatorDecision(rec *models.ConversationRecord) string {
	return endSignal
}

// statusCheckerDecision always ends the turn: the checker already phrased
// the reply for its outcome, and a ready group must deliver its link as-is.
func statusCheckerDecision(rec *models.ConversationRecord) string {
	return endSignal
}

// completionDecision is terminal.
func completionDecision(rec *models.ConversationRecord) string {
	return endSignal
}

// defaultDecisions wires the decision function of every node.
func defaultDecisions() map[string]decisionFunc {
	return map[string]decisionFunc{
		nodeRouter:          routerDecision,
		nodeCampaignCreator: campaignCreatorDecision,
		nodeEventCreator:    eventCreatorDecision,
		nodeGroupActivator:  groupActivatorDecision,
		nodeStatusChecker:   statusCheckerDecision,
		nodeCompletion:      completionDecision,
	}
}

// logDecision traces one graph hop at debug level.
func logDecision(from, to string, rec *models.ConversationRecord) {
	slog.Debug("flow.decision", "from", from, "to", to, "sessionID", rec.SessionID, "step", rec.CurrentStep, "status", rec.ProcessingStatus)
}
