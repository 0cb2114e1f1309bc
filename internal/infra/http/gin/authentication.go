package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"tripnest/internal/app/services/auth"
	domainauth "tripnest/internal/domain/auth"
	"tripnest/internal/domain/identity"
	domainuser "tripnest/internal/domain/user"
)

const principalContextKey = "tripnest.principal"

type principal struct {
	ID           string
	Email        string
	Name         string
	Roles        []string
	Capabilities []identity.Capability
	Token        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p principal) Actor() identity.Actor {
	return identity.Actor{ID: p.ID, Capabilities: p.Capabilities}
}

type AuthMiddleware struct {
	Service *auth.Service
	Logger  *slog.Logger
}

// Handle resolves a bearer token into a principal. Requests without a valid
// token continue anonymously; route guards decide what needs an actor.
func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Service == nil {
		c.Next()
		return
	}
	resolved, err := m.Service.ResolveToken(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, domainauth.ErrSessionNotFound) && m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	u := resolved.User
	setPrincipal(c, principal{
		ID:           string(u.ID),
		Email:        u.Email,
		Name:         u.Name,
		Roles:        mapRoles(u.Roles),
		Capabilities: domainuser.CapabilitiesFor(u.Roles),
		Token:        token,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	})
	c.Next()
}

func mapRoles(roles []domainuser.Role) []string {
	result := make([]string, 0, len(roles))
	for _, r := range roles {
		result = append(result, string(r))
	}
	return result
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

// requireActor aborts with 401 unless the request carries a resolved principal.
func requireActor(c *gin.Context) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return principal{}, false
	}
	return p, true
}

// requireCapability aborts with 401/403 unless the principal holds the
// capability. Authorization is capability-based: handlers never ask for roles.
func requireCapability(c *gin.Context, capability identity.Capability) (principal, bool) {
	p, ok := requireActor(c)
	if !ok {
		return principal{}, false
	}
	if !p.Actor().Can(capability) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func bearerTokenFromContext(c *gin.Context) string {
	if p, ok := currentPrincipal(c); ok && p.Token != "" {
		return p.Token
	}
	return extractBearerToken(c.GetHeader("Authorization"))
}
