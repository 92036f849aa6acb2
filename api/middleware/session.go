package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/podbrief/podbrief-api/pkg/relay"
)

// sessionKey is the gin context key holding the resolved relay session.
const sessionKey = "relaySession"

// SessionTier resolves the stream gating session for the request. Clients
// with full access send "X-Session-Tier: full"; everyone else gets the
// configured character budget.
func SessionTier(maxClientChars int) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := relay.Session{MaxClientChars: maxClientChars}
		if c.GetHeader("X-Session-Tier") == "full" {
			session.AllowFullStream = true
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}

// GetSession returns the relay session resolved by SessionTier. Requests
// that never passed through the middleware gate at relay defaults.
func GetSession(c *gin.Context) relay.Session {
	if v, ok := c.Get(sessionKey); ok {
		if session, ok := v.(relay.Session); ok {
			return session
		}
	}
	return relay.Session{}
}
