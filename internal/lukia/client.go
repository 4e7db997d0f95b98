// Package lukia implements the REST client for the Lukia marketing API.
//
// It covers the four calls the conversation pipeline needs: create campaign,
// create event, activate event (which triggers WhatsApp group provisioning
// on the remote side), and group status lookup. Calls are idempotent by id
// on the remote side; the client performs no retries of its own.
package lukia

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lukia-marketing/campaignbot/internal/models"
)

// placeholderImage is the 1x1 transparent PNG attached to events that have
// no image of their own; the API requires the field.
const placeholderImage = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// DefaultTimeout bounds each API call when the caller's context has no
// earlier deadline.
const DefaultTimeout = 30 * time.Second

// APIError is returned for failed Lukia API calls.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("lukia api error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("lukia api error: %s", e.Message)
}

// Opts holds configuration options for the client.
type Opts struct {
	BaseURL            string
	Token              string
	DefaultCompany     string
	DefaultIntegration string
	HTTPClient         *http.Client
}

// Option configures client construction.
type Option func(*Opts)

// WithBaseURL sets the API base URL.
func WithBaseURL(u string) Option {
	return func(o *Opts) { o.BaseURL = u }
}

// WithToken sets the bearer token.
func WithToken(token string) Option {
	return func(o *Opts) { o.Token = token }
}

// WithDefaults sets the default company and messaging integration attached
// to new campaigns.
func WithDefaults(company, integration string) Option {
	return func(o *Opts) {
		o.DefaultCompany = company
		o.DefaultIntegration = integration
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Client talks to the Lukia API.
type Client struct {
	baseURL            string
	token              string
	defaultCompany     string
	defaultIntegration string
	http               *http.Client
}

// NewClient creates a Lukia API client.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("lukia base URL not set")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("lukia API token not set")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	slog.Debug("lukia.NewClient: creating client", "baseURL", cfg.BaseURL)
	return &Client{
		baseURL:            strings.TrimRight(cfg.BaseURL, "/"),
		token:              cfg.Token,
		defaultCompany:     cfg.DefaultCompany,
		defaultIntegration: cfg.DefaultIntegration,
		http:               httpClient,
	}, nil
}

// CreateCampaign creates a campaign with the configured default company and
// integration, and a fresh external campaign id.
func (c *Client) CreateCampaign(ctx context.Context, name string) (*models.Campaign, error) {
	input := models.CampaignInput{
		Name:               name,
		CompanyID:          c.defaultCompany,
		IntegrationID:      c.defaultIntegration,
		ExternalCampaignID: strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
	slog.Info("lukia.CreateCampaign: request", "name", name)

	var campaign models.Campaign
	if err := c.do(ctx, http.MethodPost, "/campaign", input, &campaign); err != nil {
		return nil, err
	}
	slog.Info("lukia.CreateCampaign: created", "campaignID", campaign.ID)
	return &campaign, nil
}

// eventEnvelope unwraps the {"data": {...}} envelope the event endpoint uses.
type eventEnvelope struct {
	Data models.Event `json:"data"`
}

// CreateEvent creates an event for a campaign.
func (c *Client) CreateEvent(ctx context.Context, input models.EventInput) (*models.Event, error) {
	if input.ImageURL == "" {
		input.ImageURL = placeholderImage
	}
	slog.Info("lukia.CreateEvent: request", "name", input.Name, "campaignID", input.CampaignID, "date", input.EventDate)

	var envelope eventEnvelope
	if err := c.do(ctx, http.MethodPost, "/event", input, &envelope); err != nil {
		return nil, err
	}
	slog.Info("lukia.CreateEvent: created", "eventID", envelope.Data.ID)
	return &envelope.Data, nil
}

// ActivateEvent sets the event status to "scheduled", which asynchronously
// triggers WhatsApp group provisioning on the Lukia side.
func (c *Client) ActivateEvent(ctx context.Context, eventID string) (*models.Event, error) {
	payload := map[string]string{"status": "scheduled"}
	slog.Info("lukia.ActivateEvent: request", "eventID", eventID)

	var event models.Event
	if err := c.do(ctx, http.MethodPatch, "/event/"+url.PathEscape(eventID), payload, &event); err != nil {
		return nil, err
	}
	slog.Info("lukia.ActivateEvent: activated", "eventID", eventID, "status", event.Status)
	return &event, nil
}

// groupSearchResponse is the paginated shape of the group search endpoint.
type groupSearchResponse struct {
	MessageGroups []models.MessageGroup `json:"messageGroups"`
}

// GetGroupStatus looks up the message group provisioned for an event.
// Returns (nil, nil) when no group exists yet.
func (c *Client) GetGroupStatus(ctx context.Context, eventID string) (*models.MessageGroup, error) {
	q := url.Values{}
	q.Set("page", "1")
	q.Set("limit", "1")
	q.Set("search", eventID)
	slog.Info("lukia.GetGroupStatus: request", "eventID", eventID)

	var resp groupSearchResponse
	if err := c.do(ctx, http.MethodGet, "/messaging-app/groups?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.MessageGroups) == 0 {
		slog.Debug("lukia.GetGroupStatus: no group found", "eventID", eventID)
		return nil, nil
	}
	group := resp.MessageGroups[0]
	slog.Info("lukia.GetGroupStatus: found", "eventID", eventID, "status", group.Status, "link_set", group.Link != "")
	return &group, nil
}

// do performs one JSON request/response cycle against the API.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &APIError{Message: fmt.Sprintf("marshal request: %v", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("lukia.do: request failed", "error", err, "method", method, "path", path)
		return &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("read response: %v", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("lukia.do: non-2xx response", "method", method, "path", path, "status", resp.StatusCode)
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			slog.Error("lukia.do: decode response failed", "error", err, "method", method, "path", path)
			return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
		}
	}
	return nil
}
