// Package signature authenticates inbound webhook deliveries.
//
// Each platform signs the raw request body with HMAC-SHA256 keyed by the
// shared secret, but places the result in a different header and encodes it
// differently:
//
//	facebook, instagram  X-Hub-Signature-256: sha256=<hex>
//	twitter              X-Twitter-Webhooks-Signature: sha256=<base64>
//	linkedin             X-LI-Signature: <hex>
//
// All comparisons are constant time. An empty secret never verifies.
//
// Several spellings decode to the same MAC (hex case, the optional LinkedIn
// prefix), so anything keyed on a signature must use Digest, never the raw
// header text.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
)

const (
	HeaderHub      = "X-Hub-Signature-256"
	HeaderTwitter  = "X-Twitter-Webhooks-Signature"
	HeaderLinkedIn = "X-LI-Signature"
)

// Verifier checks that body was signed with secret.
type Verifier interface {
	// Header is the request header carrying the signature.
	Header() string
	// Digest decodes the MAC carried in headers.
	Digest(headers http.Header) ([]byte, bool)
	// Verify reports whether the signature in headers matches body.
	Verify(body []byte, headers http.Header, secret string) bool
	// Sign produces the header value a genuine sender would attach.
	Sign(body []byte, secret string) string
}

// For returns the verifier for platform.
func For(platform domain.Platform) (Verifier, error) {
	switch platform {
	case domain.PlatformFacebook, domain.PlatformInstagram:
		return HubVerifier{}, nil
	case domain.PlatformTwitter:
		return TwitterVerifier{}, nil
	case domain.PlatformLinkedIn:
		return LinkedInVerifier{}, nil
	default:
		return nil, domain.ErrUnknownPlatform
	}
}

// Sign is a convenience wrapper used by tooling and tests.
func Sign(platform domain.Platform, secret string, body []byte) (header, value string, err error) {
	v, err := For(platform)
	if err != nil {
		return "", "", err
	}
	return v.Header(), v.Sign(body, secret), nil
}

// Compute returns the raw HMAC-SHA256 of payload keyed by secret.
func Compute(secret string, payload []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return mac.Sum(nil)
}

func verify(v Verifier, body []byte, headers http.Header, secret string) bool {
	if secret == "" {
		return false
	}
	provided, ok := v.Digest(headers)
	if !ok {
		return false
	}
	return hmac.Equal(provided, Compute(secret, body))
}

// HubVerifier implements the Meta Graph X-Hub-Signature-256 scheme.
type HubVerifier struct{}

func (HubVerifier) Header() string { return HeaderHub }

func (HubVerifier) Sign(body []byte, secret string) string {
	return "sha256=" + hex.EncodeToString(Compute(secret, body))
}

func (HubVerifier) Digest(headers http.Header) ([]byte, bool) {
	value, ok := strings.CutPrefix(headers.Get(HeaderHub), "sha256=")
	if !ok {
		return nil, false
	}
	return decodeHex(value)
}

func (v HubVerifier) Verify(body []byte, headers http.Header, secret string) bool {
	return verify(v, body, headers, secret)
}

// TwitterVerifier implements the X Account Activity API scheme.
type TwitterVerifier struct{}

func (TwitterVerifier) Header() string { return HeaderTwitter }

func (TwitterVerifier) Sign(body []byte, secret string) string {
	return "sha256=" + base64.StdEncoding.EncodeToString(Compute(secret, body))
}

// Digest uses strict decoding: non-zero trailing bits would otherwise let
// one MAC travel under several spellings.
func (TwitterVerifier) Digest(headers http.Header) ([]byte, bool) {
	value, ok := strings.CutPrefix(headers.Get(HeaderTwitter), "sha256=")
	if !ok {
		return nil, false
	}
	mac, err := base64.StdEncoding.Strict().DecodeString(value)
	if err != nil || len(mac) != sha256.Size {
		return nil, false
	}
	return mac, true
}

func (v TwitterVerifier) Verify(body []byte, headers http.Header, secret string) bool {
	return verify(v, body, headers, secret)
}

// LinkedInVerifier implements the X-LI-Signature scheme. An optional
// "hmacsha256=" prefix is tolerated.
type LinkedInVerifier struct{}

func (LinkedInVerifier) Header() string { return HeaderLinkedIn }

func (LinkedInVerifier) Sign(body []byte, secret string) string {
	return hex.EncodeToString(Compute(secret, body))
}

func (LinkedInVerifier) Digest(headers http.Header) ([]byte, bool) {
	return decodeHex(strings.TrimPrefix(headers.Get(HeaderLinkedIn), "hmacsha256="))
}

func (v LinkedInVerifier) Verify(body []byte, headers http.Header, secret string) bool {
	return verify(v, body, headers, secret)
}

func decodeHex(value string) ([]byte, bool) {
	mac, err := hex.DecodeString(value)
	if err != nil || len(mac) != sha256.Size {
		return nil, false
	}
	return mac, true
}

// ReplayID is the canonical form of the MAC in headers, the same for every
// accepted spelling. It is empty when no MAC can be decoded.
func ReplayID(v Verifier, headers http.Header) string {
	mac, ok := v.Digest(headers)
	if !ok {
		return ""
	}
	return hex.EncodeToString(mac)
}

// Extract returns the raw signature header value for platform, or "".
func Extract(platform domain.Platform, headers http.Header) string {
	v, err := For(platform)
	if err != nil {
		return ""
	}
	return headers.Get(v.Header())
}
