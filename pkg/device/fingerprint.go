package device

import (
	"regexp"
	"strings"

	"github.com/sentra-id/sentra/pkg/utils"
)

var versionPattern = regexp.MustCompile(`\d+(\.\d+)*`)

// Fingerprint derives a stable identifier from the user agent. Version
// numbers are stripped so browser auto-updates do not spawn new devices.
// A non-empty ipSalt folds the client IP in, trading stability across
// networks for stricter matching.
func Fingerprint(userAgent, ipSalt string) string {
	normalized := normalizeUserAgent(userAgent)
	if ipSalt != "" {
		normalized += "|" + ipSalt
	}
	return utils.HashSHA256Hex(normalized)
}

func normalizeUserAgent(userAgent string) string {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	ua = versionPattern.ReplaceAllString(ua, "")
	return strings.Join(strings.Fields(ua), " ")
}

// ParseUserAgent extracts a coarse OS, browser and device type from the
// user agent string. Best-effort substring matching; unknown inputs
// yield "Unknown".
func ParseUserAgent(userAgent string) (os, browser, deviceType string) {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "windows"):
		os = "Windows"
	case strings.Contains(ua, "android"):
		os = "Android"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ios"):
		os = "iOS"
	case strings.Contains(ua, "mac os"), strings.Contains(ua, "macintosh"):
		os = "macOS"
	case strings.Contains(ua, "linux"):
		os = "Linux"
	default:
		os = "Unknown"
	}

	switch {
	case strings.Contains(ua, "edg/"), strings.Contains(ua, "edge"):
		browser = "Edge"
	case strings.Contains(ua, "opr/"), strings.Contains(ua, "opera"):
		browser = "Opera"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	default:
		browser = "Unknown"
	}

	switch {
	case strings.Contains(ua, "ipad"), strings.Contains(ua, "tablet"):
		deviceType = "Tablet"
	case strings.Contains(ua, "mobile"), strings.Contains(ua, "iphone"), strings.Contains(ua, "android"):
		deviceType = "Mobile"
	default:
		deviceType = "Desktop"
	}
	return os, browser, deviceType
}
