// Package challenge answers the subscription handshakes platforms send
// before (and periodically after) they start delivering events.
package challenge

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/signature"
)

const (
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeJSON = "application/json"

	modeSubscribe = "subscribe"
)

// triggers are the query parameters that mark a request as a handshake.
// Meta sends "hub.challenge"; some proxies rewrite dots to underscores.
var triggers = []string{"hub.challenge", "hub_challenge", "challenge", "crc_token", "challenge_code"}

// Is reports whether query carries a handshake trigger.
func Is(query url.Values) bool {
	for _, name := range triggers {
		if query.Has(name) {
			return true
		}
	}
	return false
}

// Verifier records successful handshakes.
type Verifier interface {
	TouchVerified(ctx context.Context, id uuid.UUID) (time.Time, error)
}

// Response is the handshake reply, ready to be written as-is.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

type crcResponse struct {
	ResponseToken string `json:"response_token"`
}

type linkedInResponse struct {
	ChallengeCode     string `json:"challengeCode"`
	ChallengeResponse string `json:"challengeResponse"`
}

// Handler answers handshakes for one resolved config.
type Handler struct {
	verifier Verifier
	logger   *slog.Logger
}

func NewHandler(verifier Verifier, logger *slog.Logger) *Handler {
	return &Handler{verifier: verifier, logger: logger}
}

// Handle computes the platform handshake response for cfg. A nil cfg yields
// ErrConfigNotFound; any mismatch yields ErrChallengeFailed. The response
// depends only on cfg and query, so repeated handshakes get identical
// answers.
func (h *Handler) Handle(ctx context.Context, cfg *domain.WebhookConfig, query url.Values) (*Response, error) {
	if cfg == nil || !cfg.IsActive {
		return nil, domain.ErrConfigNotFound
	}

	var (
		resp *Response
		err  error
	)

	switch cfg.Platform {
	case domain.PlatformFacebook, domain.PlatformInstagram:
		resp, err = metaHandshake(cfg, query)
	case domain.PlatformTwitter:
		resp, err = crcHandshake(cfg, query)
	case domain.PlatformLinkedIn:
		resp, err = linkedInHandshake(cfg, query)
	default:
		return nil, domain.ErrUnknownPlatform
	}

	if err != nil {
		h.logger.Warn("webhook handshake rejected",
			"platform", cfg.Platform,
			"config_id", cfg.ID,
			"error", err,
		)
		return nil, err
	}

	if _, err := h.verifier.TouchVerified(ctx, cfg.ID); err != nil {
		return nil, domain.ErrInternal.WithError(fmt.Errorf("touch verified: %w", err))
	}

	h.logger.Info("webhook handshake completed",
		"platform", cfg.Platform,
		"config_id", cfg.ID,
	)
	return resp, nil
}

func first(query url.Values, names ...string) string {
	for _, name := range names {
		if v := query.Get(name); v != "" {
			return v
		}
	}
	return ""
}

func metaHandshake(cfg *domain.WebhookConfig, query url.Values) (*Response, error) {
	mode := first(query, "hub.mode", "hub_mode")
	token := first(query, "hub.verify_token", "hub_verify_token")
	challenge := first(query, "hub.challenge", "hub_challenge", "challenge")

	if mode != modeSubscribe {
		return nil, domain.ErrChallengeFailed.WithError(fmt.Errorf("unexpected hub.mode %q", mode))
	}

	expected := cfg.VerifyToken()
	if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		return nil, domain.ErrChallengeFailed.WithError(fmt.Errorf("verify token mismatch"))
	}

	if challenge == "" {
		return nil, domain.ErrChallengeFailed.WithError(fmt.Errorf("missing hub.challenge"))
	}

	return &Response{
		StatusCode:  200,
		ContentType: ContentTypeText,
		Body:        []byte(challenge),
	}, nil
}

// CRCToken computes the X Account Activity API response token.
func CRCToken(secret, crcToken string) string {
	return "sha256=" + base64.StdEncoding.EncodeToString(signature.Compute(secret, []byte(crcToken)))
}

func crcHandshake(cfg *domain.WebhookConfig, query url.Values) (*Response, error) {
	token := query.Get("crc_token")
	if token == "" {
		return nil, domain.ErrChallengeFailed.WithError(fmt.Errorf("missing crc_token"))
	}
	if !cfg.HasSecret() {
		return nil, domain.ErrChallengeFailed.WithError(fmt.Errorf("config has no secret"))
	}

	return jsonResponse(crcResponse{ResponseToken: CRCToken(cfg.Secret, token)})
}

// ChallengeResponse computes the LinkedIn challengeResponse value.
func ChallengeResponse(secret, code string) string {
	return hex.EncodeToString(signature.Compute(secret, []byte(code)))
}

func linkedInHandshake(cfg *domain.WebhookConfig, query url.Values) (*Response, error) {
	code := first(query, "challenge_code", "challengeCode")
	if code == "" {
		return nil, domain.ErrChallengeFailed.WithError(fmt.Errorf("missing challenge_code"))
	}
	if !cfg.HasSecret() {
		return nil, domain.ErrChallengeFailed.WithError(fmt.Errorf("config has no secret"))
	}

	return jsonResponse(linkedInResponse{
		ChallengeCode:     code,
		ChallengeResponse: ChallengeResponse(cfg.Secret, code),
	})
}

func jsonResponse(v interface{}) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, domain.ErrInternal.WithError(err)
	}
	return &Response{
		StatusCode:  200,
		ContentType: ContentTypeJSON,
		Body:        body,
	}, nil
}
