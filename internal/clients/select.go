package clients

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// clientCtxKey is the Gin context key holding the selected client ID.
const clientCtxKey = "client_id"

// Registry maps client identifiers to their sheet automation endpoints.
type Registry map[string]string

// URL returns the client's endpoint, or "" when the client is unknown.
func (r Registry) URL(client string) string { return r[client] }

// Names lists the configured client identifiers.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	return names
}

// SelectorMiddleware resolves the target client for the multi-client
// dispatcher: the `client` query parameter wins, falling back to the
// trailing path segment. The resolved ID may be empty or unknown — the
// handler decides what that means for the request.
func SelectorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := strings.ToLower(strings.TrimSpace(c.Query("client")))
		if client == "" {
			client = strings.ToLower(strings.Trim(c.Param("client"), "/"))
		}
		c.Set(clientCtxKey, client)
		c.Next()
	}
}

// ClientID returns the selected client ID from the request context.
func ClientID(c *gin.Context) string {
	v, _ := c.Get(clientCtxKey)
	s, _ := v.(string)
	return s
}
