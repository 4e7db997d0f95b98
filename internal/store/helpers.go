package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lukia-marketing/campaignbot/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// recordColumns is the column list shared by both SQL backends, in the
// order expected by recordArgs and scanRecordRow.
const recordColumns = `session_id, current_step, processing_status, campaign_name, event_name,
	event_date, timezone, administrators, context, campaign_id, event_id,
	pending_event_id, group_url, last_user_message, bot_response, message_log,
	created_at, updated_at`

// recordArgs flattens a record into SQL arguments matching recordColumns.
// Administrators and the message log are stored as JSON text.
func recordArgs(r models.ConversationRecord) ([]interface{}, error) {
	var adminsJSON, logJSON string
	if len(r.Administrators) > 0 {
		b, err := json.Marshal(r.Administrators)
		if err != nil {
			return nil, fmt.Errorf("marshal administrators for %s: %w", r.SessionID, err)
		}
		adminsJSON = string(b)
	}
	if len(r.MessageLog) > 0 {
		b, err := json.Marshal(r.MessageLog)
		if err != nil {
			return nil, fmt.Errorf("marshal message log for %s: %w", r.SessionID, err)
		}
		logJSON = string(b)
	}
	return []interface{}{
		r.SessionID, string(r.CurrentStep), string(r.ProcessingStatus),
		nilIfEmpty(r.CampaignName), nilIfEmpty(r.EventName), nilIfEmpty(r.EventDate),
		nilIfEmpty(r.Timezone), nilIfEmpty(adminsJSON), nilIfEmpty(r.Context),
		nilIfEmpty(r.CampaignID), nilIfEmpty(r.EventID), nilIfEmpty(r.PendingEventID),
		nilIfEmpty(r.GroupURL), nilIfEmpty(r.LastUserMessage), r.BotResponse,
		nilIfEmpty(logJSON), r.CreatedAt, r.UpdatedAt,
	}, nil
}

// scanRecordRow scans a session row into a ConversationRecord.
func scanRecordRow(row *sql.Row) (*models.ConversationRecord, error) {
	var r models.ConversationRecord
	var step, status string
	var campaignName, eventName, eventDate, tz, adminsJSON, recContext sql.NullString
	var campaignID, eventID, pendingEventID, groupURL, lastMsg, logJSON sql.NullString

	err := row.Scan(
		&r.SessionID, &step, &status, &campaignName, &eventName,
		&eventDate, &tz, &adminsJSON, &recContext, &campaignID, &eventID,
		&pendingEventID, &groupURL, &lastMsg, &r.BotResponse, &logJSON,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.CurrentStep = models.Step(step)
	r.ProcessingStatus = models.Status(status)
	r.CampaignName = campaignName.String
	r.EventName = eventName.String
	r.EventDate = eventDate.String
	r.Timezone = tz.String
	r.Context = recContext.String
	r.CampaignID = campaignID.String
	r.EventID = eventID.String
	r.PendingEventID = pendingEventID.String
	r.GroupURL = groupURL.String
	r.LastUserMessage = lastMsg.String

	if adminsJSON.String != "" {
		if err := json.Unmarshal([]byte(adminsJSON.String), &r.Administrators); err != nil {
			slog.Error("store.scanRecordRow: administrators unmarshal failed", "error", err, "sessionID", r.SessionID)
			r.Administrators = nil
		}
	}
	if logJSON.String != "" {
		if err := json.Unmarshal([]byte(logJSON.String), &r.MessageLog); err != nil {
			slog.Error("store.scanRecordRow: message log unmarshal failed", "error", err, "sessionID", r.SessionID)
			r.MessageLog = nil
		}
	}
	return &r, nil
}
