package application

import (
	"net/url"
	"strings"
)

// CodeResolver turns a subject's meeting-link field into the meeting code
// used as the session key. An empty result means the link is unresolvable
// and the subject must be skipped.
type CodeResolver interface {
	ResolveCode(link string) string
}

// LinkResolver resolves full meeting URLs as well as bare codes.
type LinkResolver struct{}

// NewLinkResolver returns the default resolver.
func NewLinkResolver() LinkResolver {
	return LinkResolver{}
}

// ResolveCode extracts the meeting code from a link. For URLs the code is the
// last non-empty path segment; anything else is treated as a bare code as
// long as it contains no whitespace or slashes.
func (LinkResolver) ResolveCode(link string) string {
	trimmed := strings.TrimSpace(link)
	if trimmed == "" {
		return ""
	}

	if strings.Contains(trimmed, "://") {
		parsed, err := url.Parse(trimmed)
		if err != nil || parsed.Host == "" {
			return ""
		}
		segments := strings.Split(parsed.Path, "/")
		for i := len(segments) - 1; i >= 0; i-- {
			if segment := strings.TrimSpace(segments[i]); segment != "" {
				return segment
			}
		}
		return ""
	}

	if strings.ContainsAny(trimmed, " \t/") {
		return ""
	}
	return trimmed
}
