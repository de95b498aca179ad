package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// AckResponse is the body of every webhook delivery response.
type AckResponse struct {
	Status  string `json:"status" example:"success"`
	Message string `json:"message" example:"Webhook received"`
}

// CRCResponse answers a Twitter CRC check.
type CRCResponse struct {
	ResponseToken string `json:"response_token" example:"sha256=x2bXgD5p4v4dZqJ4Ww0pQp7+3lJl3r0eE6Jk0w8QH1c="`
}

// LinkedInChallengeResponse answers a LinkedIn validation request.
type LinkedInChallengeResponse struct {
	ChallengeCode     string `json:"challengeCode" example:"890e4d1d-2a4e-4b1f-9d5a-1b0c7e3b6f2a"`
	ChallengeResponse string `json:"challengeResponse" example:"6a8f1c0e..."`
}

// ErrorResponse represents a standard operator API error
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

// HealthResponse is returned by /health and /ready.
type HealthResponse struct {
	Status string            `json:"status" example:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

// CreateConfigRequest connects an integration.
type CreateConfigRequest struct {
	SocialAccountID string   `json:"social_account_id" example:"3f1c2b7e-7d4a-4b36-9c6e-2a9d5f0b8c11"`
	Platform        string   `json:"platform" example:"instagram"`
	WebhookURL      string   `json:"webhook_url" example:"https://hooks.example.com/instagram"`
	Events          []string `json:"events" example:"comment_added,mention"`
}

// WebhookConfigData is a connected integration.
type WebhookConfigData struct {
	ID              string   `json:"id" example:"8d0f5a6e-1a2b-4c3d-9e8f-7a6b5c4d3e2f"`
	SocialAccountID string   `json:"social_account_id" example:"3f1c2b7e-7d4a-4b36-9c6e-2a9d5f0b8c11"`
	Platform        string   `json:"platform" example:"instagram"`
	WebhookURL      string   `json:"webhook_url" example:"https://hooks.example.com/instagram"`
	Events          []string `json:"events" example:"comment_added"`
	IsActive        bool     `json:"is_active" example:"true"`
	CreatedAt       string   `json:"created_at" example:"2025-01-01T00:00:00Z"`
}

// CreateConfigResponse carries the secret exactly once.
type CreateConfigResponse struct {
	Config      WebhookConfigData `json:"config"`
	Secret      string            `json:"secret" example:"9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"`
	VerifyToken string            `json:"verify_token,omitempty" example:"5d41402abc4b2a76b9719d911017c592"`
}

// DailyMetricData is one delivery metric row.
type DailyMetricData struct {
	Date                  string           `json:"date" example:"2025-01-01T00:00:00Z"`
	Platform              string           `json:"platform" example:"facebook"`
	TotalReceived         int64            `json:"total_received" example:"120"`
	SuccessfullyProcessed int64            `json:"successfully_processed" example:"115"`
	Failed                int64            `json:"failed" example:"3"`
	Ignored               int64            `json:"ignored" example:"2"`
	RetryAttempts         int64            `json:"retry_attempts" example:"3"`
	AverageProcessingTime float64          `json:"average_processing_time" example:"12.5"`
	EventTypes            map[string]int64 `json:"event_types"`
}

// MetricsSummaryData rolls the daily rows up.
type MetricsSummaryData struct {
	Days                  int     `json:"days" example:"30"`
	TotalReceived         int64   `json:"total_received" example:"3600"`
	SuccessfullyProcessed int64   `json:"successfully_processed" example:"3500"`
	Failed                int64   `json:"failed" example:"60"`
	Ignored               int64   `json:"ignored" example:"40"`
	AverageProcessingTime float64 `json:"average_processing_time" example:"11.2"`
	SuccessRate           float64 `json:"success_rate" example:"97.2"`
}

// ConfigMetricsResponse is the metrics read for one config.
type ConfigMetricsResponse struct {
	ConfigID string             `json:"config_id" example:"8d0f5a6e-1a2b-4c3d-9e8f-7a6b5c4d3e2f"`
	Daily    []DailyMetricData  `json:"daily"`
	Summary  MetricsSummaryData `json:"summary"`
}

// FailedEventData is a failed webhook event.
type FailedEventData struct {
	ID              string `json:"id" example:"0b9e3c1d-4f2a-4e6b-8c7d-1a2b3c4d5e6f"`
	WebhookConfigID string `json:"webhook_config_id" example:"8d0f5a6e-1a2b-4c3d-9e8f-7a6b5c4d3e2f"`
	Platform        string `json:"platform" example:"twitter"`
	EventType       string `json:"event_type" example:"tweet_created"`
	Status          string `json:"status" example:"failed"`
	ErrorMessage    string `json:"error_message" example:"nats: timeout"`
	RetryCount      int    `json:"retry_count" example:"5"`
	ReceivedAt      string `json:"received_at" example:"2025-01-01T00:00:00Z"`
}

// FailedEventsResponse is a page of failed events.
type FailedEventsResponse struct {
	Events []FailedEventData `json:"events"`
}

// BlockInfoResponse is the block state of one IP.
type BlockInfoResponse struct {
	IP        string `json:"ip" example:"203.0.113.9"`
	Blocked   bool   `json:"blocked" example:"true"`
	Reason    string `json:"reason,omitempty" example:"auto-blocked after 20 violations"`
	ExpiresAt string `json:"expires_at,omitempty" example:"2025-01-01T01:00:00Z"`
}

var (
	operatorAuth = []map[string][]string{{"BearerAuth": {}}}

	operatorErrors = []response.Response{
		response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Authentication required"}, "401", "Unauthorized"),
		response.New(ErrorResponse{Code: "FORBIDDEN", Message: "Access denied"}, "403", "Forbidden"),
		response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
	}
)

func withOperatorErrors(extra ...response.Response) []response.Response {
	return append(extra, operatorErrors...)
}

func webhookEndpoints() []*endpoint.EndPoint {
	platform := parameter.StrParam("platform", parameter.Path,
		parameter.WithDescription("facebook, instagram, twitter (x) or linkedin"))

	return []*endpoint.EndPoint{
		endpoint.New(
			endpoint.POST,
			"/webhooks/{platform}",
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("Receive a webhook delivery"),
			endpoint.WithDescription("Authenticates the delivery with the platform signature, applies the security gate, stores the event and acknowledges it. Processing is asynchronous."),
			endpoint.WithConsume([]mime.MIME{mime.JSON, mime.MIME("application/x-www-form-urlencoded")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				platform,
				parameter.StrParam("config_id", parameter.Query, parameter.WithDescription("Webhook config id when the platform has more than one active config")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AckResponse{}, "200", "Webhook received"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(AckResponse{Status: "error", Message: "Invalid signature"}, "401", "Invalid signature or replayed delivery"),
				response.New(AckResponse{Status: "error", Message: "IP blocked"}, "403", "Blocked or not allowlisted"),
				response.New(AckResponse{Status: "error", Message: "Webhook config not found"}, "404", "No active config"),
				response.New(AckResponse{Status: "error", Message: "Payload too large"}, "422", "Payload or content type rejected"),
				response.New(AckResponse{Status: "error", Message: "Rate limit exceeded"}, "429", "Too Many Requests"),
				response.New(AckResponse{Status: "error", Message: "Internal server error"}, "500", "Internal Server Error"),
			}),
		),
		endpoint.New(
			endpoint.GET,
			"/webhooks/{platform}",
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("Answer a subscription handshake"),
			endpoint.WithDescription("Meta hub.challenge echo, Twitter CRC response token or LinkedIn challenge response."),
			endpoint.WithProduce([]mime.MIME{mime.JSON, mime.MIME("text/plain")}),
			endpoint.WithParams(
				platform,
				parameter.StrParam("hub.mode", parameter.Query),
				parameter.StrParam("hub.verify_token", parameter.Query),
				parameter.StrParam("hub.challenge", parameter.Query),
				parameter.StrParam("crc_token", parameter.Query),
				parameter.StrParam("challengeCode", parameter.Query),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(CRCResponse{}, "200", "Handshake answered"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(AckResponse{Status: "error", Message: "Challenge verification failed"}, "403", "Handshake rejected"),
				response.New(AckResponse{Status: "error", Message: "Webhook config not found"}, "404", "No active config"),
			}),
		),
	}
}

func operatorEndpoints() []*endpoint.EndPoint {
	configID := parameter.StrParam("id", parameter.Path, parameter.WithDescription("Webhook config id"))

	return []*endpoint.EndPoint{
		endpoint.New(
			endpoint.POST,
			"/v1/admin/configs",
			endpoint.WithTags("Operator"),
			endpoint.WithSummary("Connect an integration"),
			endpoint.WithDescription("Creates a webhook config. The secret and verify token are returned only in this response."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithBody(CreateConfigRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(CreateConfigResponse{}, "201", "Config created"),
			}),
			endpoint.WithErrors(withOperatorErrors(
				response.New(ErrorResponse{Code: "CONFIG_ALREADY_EXISTS", Message: "Webhook config already exists"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
			)),
			endpoint.WithSecurity(operatorAuth),
		),
		endpoint.New(
			endpoint.POST,
			"/v1/admin/configs/{id}/deactivate",
			endpoint.WithTags("Operator"),
			endpoint.WithSummary("Deactivate an integration"),
			endpoint.WithParams(configID),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Config deactivated"),
			}),
			endpoint.WithErrors(withOperatorErrors(
				response.New(ErrorResponse{Code: "CONFIG_NOT_FOUND", Message: "Webhook config not found"}, "404", "Not Found"),
			)),
			endpoint.WithSecurity(operatorAuth),
		),
		endpoint.New(
			endpoint.DELETE,
			"/v1/admin/configs/{id}",
			endpoint.WithTags("Operator"),
			endpoint.WithSummary("Delete an integration and its events"),
			endpoint.WithParams(configID),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Config deleted"),
			}),
			endpoint.WithErrors(withOperatorErrors(
				response.New(ErrorResponse{Code: "CONFIG_NOT_FOUND", Message: "Webhook config not found"}, "404", "Not Found"),
			)),
			endpoint.WithSecurity(operatorAuth),
		),
		endpoint.New(
			endpoint.GET,
			"/v1/admin/configs/{id}/metrics",
			endpoint.WithTags("Operator"),
			endpoint.WithSummary("Daily delivery metrics"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				configID,
				parameter.StrParam("from", parameter.Query, parameter.WithDescription("Start date (YYYY-MM-DD, default: 30 days ago)")),
				parameter.StrParam("to", parameter.Query, parameter.WithDescription("End date (YYYY-MM-DD, default: today)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ConfigMetricsResponse{}, "200", "Metrics"),
			}),
			endpoint.WithErrors(withOperatorErrors(
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "CONFIG_NOT_FOUND", Message: "Webhook config not found"}, "404", "Not Found"),
			)),
			endpoint.WithSecurity(operatorAuth),
		),
		endpoint.New(
			endpoint.GET,
			"/v1/admin/events/failed",
			endpoint.WithTags("Operator"),
			endpoint.WithSummary("List failed events"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.BoolParam("terminal", parameter.Query, parameter.WithDescription("Only events that exhausted automatic retries (default: true)")),
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Page size (default: 50, max: 500)")),
				parameter.IntParam("offset", parameter.Query, parameter.WithDescription("Page offset (default: 0)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(FailedEventsResponse{}, "200", "Failed events"),
			}),
			endpoint.WithErrors(withOperatorErrors()),
			endpoint.WithSecurity(operatorAuth),
		),
		endpoint.New(
			endpoint.POST,
			"/v1/admin/events/{id}/retry",
			endpoint.WithTags("Operator"),
			endpoint.WithSummary("Re-arm a failed event"),
			endpoint.WithParams(parameter.StrParam("id", parameter.Path, parameter.WithDescription("Webhook event id"))),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "202", "Event re-queued"),
			}),
			endpoint.WithErrors(withOperatorErrors(
				response.New(ErrorResponse{Code: "EVENT_NOT_FOUND", Message: "Webhook event not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "INVALID_STATUS_TRANSITION", Message: "Event is not in a retryable state"}, "409", "Conflict"),
			)),
			endpoint.WithSecurity(operatorAuth),
		),
		endpoint.New(
			endpoint.GET,
			"/v1/admin/blocks/{ip}",
			endpoint.WithTags("Operator"),
			endpoint.WithSummary("Inspect an IP block"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(parameter.StrParam("ip", parameter.Path)),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(BlockInfoResponse{}, "200", "Block state"),
			}),
			endpoint.WithErrors(withOperatorErrors(
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request"),
			)),
			endpoint.WithSecurity(operatorAuth),
		),
		endpoint.New(
			endpoint.DELETE,
			"/v1/admin/blocks/{ip}",
			endpoint.WithTags("Operator"),
			endpoint.WithSummary("Lift an IP block"),
			endpoint.WithParams(parameter.StrParam("ip", parameter.Path)),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Block lifted"),
			}),
			endpoint.WithErrors(withOperatorErrors(
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request"),
			)),
			endpoint.WithSecurity(operatorAuth),
		),
	}
}

// NewSwagger creates and configures the Swagger documentation
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Social Webhook Gateway",
		Version:     "v1.0.0",
		Description: "Receives, authenticates and normalizes Facebook, Instagram, Twitter and LinkedIn webhooks",
		Host:        "localhost:3000",
		Path:        "/",
	})

	sw.AddEndpoints(webhookEndpoints())
	sw.AddEndpoints(operatorEndpoints())

	return sw
}
