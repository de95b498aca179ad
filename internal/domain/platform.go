package domain

import "strings"

// Platform identifies the social network a webhook delivery comes from.
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
)

// Platforms lists every supported platform in a stable order.
var Platforms = []Platform{
	PlatformFacebook,
	PlatformInstagram,
	PlatformTwitter,
	PlatformLinkedIn,
}

// ParsePlatform resolves a path segment or header value into a Platform.
// "x" is accepted as an alias for Twitter.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "facebook", "fb":
		return PlatformFacebook, nil
	case "instagram", "ig":
		return PlatformInstagram, nil
	case "twitter", "x":
		return PlatformTwitter, nil
	case "linkedin":
		return PlatformLinkedIn, nil
	default:
		return "", ErrUnknownPlatform
	}
}

func (p Platform) String() string {
	return string(p)
}

// IsMeta reports whether the platform uses the Meta Graph webhook protocol.
func (p Platform) IsMeta() bool {
	return p == PlatformFacebook || p == PlatformInstagram
}
