// Package flow implements the conversation orchestration graph for the
// campaign bot: a fixed directed graph of nodes that mutate a shared
// ConversationRecord, decision functions that pick the next node from the
// record's (step, status) pair, and the engine that runs one user turn at a
// time with per-session persistence.
package flow

import (
	"context"

	"github.com/lukia-marketing/campaignbot/internal/models"
)

// Node is a single-responsibility state transformer in the graph. Run
// mutates the record in place and must always leave it valid: nodes catch
// their own failures and degrade to user-facing apology messages, they
// never abort a turn.
type Node interface {
	Name() string
	Run(ctx context.Context, rec *models.ConversationRecord)
}

// CampaignBackend is the remote marketing API consumed by the creation and
// status nodes. Every call may fail transiently; nodes treat any failure as
// terminal for the turn and do not retry.
type CampaignBackend interface {
	CreateCampaign(ctx context.Context, name string) (*models.Campaign, error)
	CreateEvent(ctx context.Context, input models.EventInput) (*models.Event, error)
	ActivateEvent(ctx context.Context, eventID string) (*models.Event, error)
	GetGroupStatus(ctx context.Context, eventID string) (*models.MessageGroup, error)
}
