package api

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// clientKey picks the rate-limit key for a request. Proxy headers are
// how the client address reaches a reverse-proxied deployment; callers
// without either share one bucket.
func clientKey(xForwardedFor, xRealIP string) string {
	if xForwardedFor != "" {
		// First address in the chain is the client.
		if i := strings.IndexByte(xForwardedFor, ','); i >= 0 {
			return strings.TrimSpace(xForwardedFor[:i])
		}
		return strings.TrimSpace(xForwardedFor)
	}
	if xRealIP != "" {
		return xRealIP
	}
	return "unknown"
}

// allowCounter rate limits the unauthenticated counter endpoints
// (play/like/dislike) per client address.
func (s *Server) allowCounter(xForwardedFor, xRealIP string) error {
	if s.counterLimiter == nil {
		return nil
	}
	key := clientKey(xForwardedFor, xRealIP)
	if !s.counterLimiter.Allow(key) {
		s.logger.Warn("rate limit exceeded", "ip", key)
		return huma.Error429TooManyRequests("Too many requests. Please try again later.")
	}
	return nil
}
