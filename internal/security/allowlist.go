package security

import (
	"fmt"
	"net/netip"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
)

type allowlist map[domain.Platform][]netip.Prefix

func parseAllowlist(raw map[domain.Platform][]string) (allowlist, error) {
	out := make(allowlist, len(raw))
	for platform, cidrs := range raw {
		for _, cidr := range cidrs {
			prefix, err := netip.ParsePrefix(cidr)
			if err != nil {
				return nil, fmt.Errorf("parse %s range %q: %w", platform, cidr, err)
			}
			out[platform] = append(out[platform], prefix.Masked())
		}
	}
	return out, nil
}

// contains reports whether ip falls in any range of platform. Platforms
// without configured ranges admit everything.
func (a allowlist) contains(platform domain.Platform, ip string) bool {
	prefixes, ok := a[platform]
	if !ok || len(prefixes) == 0 {
		return true
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
