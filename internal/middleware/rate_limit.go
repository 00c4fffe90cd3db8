package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"catalogue_back_end/internal/cache"
)

const (
	loginMaxAttempts = 5
	loginCooldown    = 15 * time.Minute
)

// LoginRateLimit limite les tentatives de connexion admin par nom
// d'utilisateur : au-delà de 5 échecs, l'utilisateur passe en cooldown de 15
// minutes. Sans Redis (cache nil), la limite est simplement désactivée.
func LoginRateLimit(rdb *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Lire le body sans le consommer pour le handler suivant.
		bodyBytes, _ := io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		var input struct {
			Username string `json:"username"`
		}
		if err := json.Unmarshal(bodyBytes, &input); err != nil || input.Username == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := "login_attempts:" + input.Username
		cooldownKey := "login_cooldown:" + input.Username

		if rdb.Exists(ctx, cooldownKey) {
			ttl := rdb.TTL(ctx, cooldownKey)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("Trop de tentatives échouées. Réessayez dans %d minutes", int(ttl.Minutes())),
				"retry_after": int(ttl.Seconds()),
			})
			c.Abort()
			return
		}

		attempts := rdb.GetInt(ctx, key)
		if attempts >= loginMaxAttempts {
			rdb.SetFlag(ctx, cooldownKey, loginCooldown)
			rdb.Del(ctx, key)

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("Trop de tentatives échouées. Compte bloqué pendant %d minutes", int(loginCooldown.Minutes())),
				"retry_after": int(loginCooldown.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()

		switch c.Writer.Status() {
		case http.StatusUnauthorized:
			rdb.Incr(ctx, key, loginCooldown)
			if remaining := loginMaxAttempts - attempts - 1; remaining > 0 {
				c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
			}
		case http.StatusOK:
			rdb.Del(ctx, key, cooldownKey)
		}
	}
}
