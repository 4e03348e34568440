package identity

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerAuthorization = "Authorization"
	headerTraceID       = "X-Trace-Id"
	bearerPrefix        = "Bearer "
)

// RequireAuth returns Gin middleware that authenticates a request against a,
// extracts or mints a trace_id, and injects a Principal and TraceContext
// into both the Gin context and the request's context.Context — the
// request enters the MCP Gateway carrying both from the first line of
// handler code, per spec §4.2 step 1–2.
func RequireAuth(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := newTraceContext(c)
		c.Set("trace", tc)

		header := c.GetHeader(headerAuthorization)
		if !strings.HasPrefix(header, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		raw := strings.TrimPrefix(header, bearerPrefix)

		claims, err := a.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		principal := PrincipalFromClaims(claims)
		c.Set("principal", principal)

		ctx := ContextWithPrincipal(c.Request.Context(), principal)
		ctx = ContextWithTrace(ctx, tc)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// OptionalAuth behaves like RequireAuth but does not abort when no bearer
// token is present; it still mints a TraceContext. It is for endpoints that
// accept both anonymous and authenticated callers.
func OptionalAuth(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := newTraceContext(c)
		c.Set("trace", tc)
		ctx := ContextWithTrace(c.Request.Context(), tc)

		header := c.GetHeader(headerAuthorization)
		if strings.HasPrefix(header, bearerPrefix) {
			raw := strings.TrimPrefix(header, bearerPrefix)
			if claims, err := a.Verify(raw); err == nil {
				principal := PrincipalFromClaims(claims)
				c.Set("principal", principal)
				ctx = ContextWithPrincipal(ctx, principal)
			}
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the request's Principal carries one of
// the allowed roles. Must run after RequireAuth.
func RequireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := PrincipalFromGin(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		if !p.HasAnyRole(allowed) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

// PrincipalFromGin retrieves the Principal set by RequireAuth/OptionalAuth.
func PrincipalFromGin(c *gin.Context) (Principal, error) {
	v, ok := c.Get("principal")
	if !ok {
		return Principal{}, errNoPrincipal
	}
	p, ok := v.(Principal)
	if !ok {
		return Principal{}, errNoPrincipal
	}
	return p, nil
}

// TraceFromGin retrieves the TraceContext set by RequireAuth/OptionalAuth.
func TraceFromGin(c *gin.Context) TraceContext {
	v, ok := c.Get("trace")
	if !ok {
		return TraceContext{TraceID: uuid.NewString(), StartedAt: time.Now().UTC()}
	}
	tc, ok := v.(TraceContext)
	if !ok {
		return TraceContext{TraceID: uuid.NewString(), StartedAt: time.Now().UTC()}
	}
	return tc
}

func newTraceContext(c *gin.Context) TraceContext {
	id := c.GetHeader(headerTraceID)
	if id == "" {
		id = uuid.NewString()
	}
	return TraceContext{TraceID: id, StartedAt: time.Now().UTC()}
}

var errNoPrincipal = &authError{"no principal in context"}

type authError struct{ msg string }

func (e *authError) Error() string { return e.msg }
