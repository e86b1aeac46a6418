package analyzer

import (
	"net/url"
	"strings"
)

// ValidateURL checks that raw is an absolute http(s) URL and returns it trimmed.
func ValidateURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", newError(KindValidation, "empty URL", nil)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", newError(KindValidation, "unparseable URL", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", newError(KindValidation, "unsupported scheme "+strings.TrimSpace(u.Scheme), nil)
	}
	if u.Host == "" || strings.ContainsAny(u.Host, " \t") {
		return "", newError(KindValidation, "missing host", nil)
	}

	return trimmed, nil
}
