package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireAdmin reproduit le contrat de démonstration historique : toute
// requête portant un jeton Bearer préfixé "admin-" passe, sans autre
// vérification. Ce n'est pas une frontière de sécurité.
func RequireAdmin(c *gin.Context) {
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, "Bearer admin-") {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		c.Abort()
		return
	}
	c.Next()
}
