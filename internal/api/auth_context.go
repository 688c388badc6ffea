package api

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/playforge/playforge-server/internal/auth"
)

// authenticateRequest validates the Authorization header and returns
// the verified identity. Used by every owner-scoped write: the verified
// identity, never a client-asserted field, becomes the owner.
func (s *Server) authenticateRequest(authHeader string) (*auth.Identity, error) {
	if authHeader == "" {
		return nil, huma.Error401Unauthorized("Missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, huma.Error401Unauthorized("Invalid authorization header format")
	}

	identity, err := s.tokens.VerifyToken(parts[1])
	if err != nil {
		return nil, huma.Error401Unauthorized("Invalid or expired token")
	}

	return identity, nil
}

// optionalIdentity resolves the caller for reads and counter bumps:
// a valid Authorization header wins, otherwise the client-asserted
// fallback (a userId query field) is accepted. Returns "" when neither
// is present.
func (s *Server) optionalIdentity(authHeader, fallbackUserID string) string {
	if authHeader != "" {
		if identity, err := s.authenticateRequest(authHeader); err == nil {
			return identity.UserID
		}
	}
	return fallbackUserID
}
