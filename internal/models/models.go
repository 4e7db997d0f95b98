// Package models defines types shared across the campaign bot modules.
//
// This file holds the campaign/event/group models mirroring the Lukia API
// wire format, and the JSON envelope used by the HTTP transport.
package models

import "time"

// CampaignInput is the payload for creating a campaign.
type CampaignInput struct {
	Name               string         `json:"name"`
	CompanyID          string         `json:"companyId"`
	IntegrationID      string         `json:"messagingIntegrationId"`
	ExternalCampaignID string         `json:"externalCampaignId,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

// Campaign is a campaign as returned by the Lukia API.
type Campaign struct {
	ID                 string         `json:"_id"`
	Name               string         `json:"name"`
	CompanyID          string         `json:"companyId"`
	IntegrationID      string         `json:"messagingIntegrationId"`
	ExternalCampaignID string         `json:"externalCampaignId,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	CreatedAt          *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt          *time.Time     `json:"updatedAt,omitempty"`
}

// EventInput is the payload for creating an event within a campaign.
type EventInput struct {
	Name           string         `json:"name"`
	CampaignID     string         `json:"campaignId"`
	EventDate      time.Time      `json:"targetDate"`
	Timezone       string         `json:"targetTimezone"`
	Administrators []string       `json:"administrators"`
	ImageURL       string         `json:"imageUrl,omitempty"`
	Context        string         `json:"context,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Event is an event as returned by the Lukia API.
type Event struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	CampaignID     string     `json:"campaignId"`
	EventDate      *time.Time `json:"targetDate,omitempty"`
	Timezone       string     `json:"targetTimezone,omitempty"`
	Administrators []string   `json:"administrators,omitempty"`
	Status         string     `json:"status,omitempty"` // draft until activated, then scheduled
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
}

// MessageGroup is a WhatsApp group provisioned for an event. Link is empty
// while provisioning is still in progress.
type MessageGroup struct {
	ID                  string     `json:"id"`
	EventID             string     `json:"eventId"`
	ExternalID          string     `json:"externalId,omitempty"`
	Link                string     `json:"link,omitempty"`
	Status              string     `json:"status,omitempty"`
	Capacity            int        `json:"capacity,omitempty"`
	CurrentParticipants int        `json:"currentParticipants,omitempty"`
	CreatedAt           *time.Time `json:"createdAt,omitempty"`
}

// APIStatus enumerates the status values of the HTTP JSON envelope.
type APIStatus string

// API response statuses.
const (
	APIStatusOK    APIStatus = "ok"
	APIStatusError APIStatus = "error"
)

// APIResponse is the standard JSON envelope returned by the HTTP transport.
type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Result  any    `json:"result,omitempty"`
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result any) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result any) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and
// optional result data.
func SuccessWithMessage(message string, result any) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}
