package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderAPIKey carries the admin API key. "Authorization: Bearer <key>"
	// is accepted as well.
	HeaderAPIKey = "X-API-Key"
	clientKey    = "client"
)

// APIKeyAuth rejects requests that do not present one of keys. The caller's
// identity, a short fingerprint of the key, is stored for ClientFrom. With no
// keys configured every request passes.
func APIKeyAuth(keys []string) gin.HandlerFunc {
	digests := make([][32]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			digests = append(digests, sha256.Sum256([]byte(k)))
		}
	}

	return func(c *gin.Context) {
		if len(digests) == 0 {
			c.Next()
			return
		}
		presented := presentedKey(c)
		if presented == "" {
			abortUnauthorized(c, "missing API key")
			return
		}
		d := sha256.Sum256([]byte(presented))
		for _, want := range digests {
			if subtle.ConstantTimeCompare(d[:], want[:]) == 1 {
				c.Set(clientKey, "key:"+hex.EncodeToString(d[:4]))
				c.Next()
				return
			}
		}
		abortUnauthorized(c, "invalid API key")
	}
}

// ClientFrom returns the authenticated client fingerprint, or "".
func ClientFrom(c *gin.Context) string {
	v, _ := c.Get(clientKey)
	return asString(v)
}

func presentedKey(c *gin.Context) string {
	if k := strings.TrimSpace(c.GetHeader(HeaderAPIKey)); k != "" {
		return k
	}
	auth := c.GetHeader("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="outreach"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": RequestIDFrom(c),
		"code":       "unauthorized",
		"message":    msg,
	})
}
