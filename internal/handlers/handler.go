package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"catalogue_back_end/internal/catalog"
	"catalogue_back_end/internal/services"
	"catalogue_back_end/internal/store"
)

// Handler regroupe les dépendances des routes HTTP : le moteur de catalogue
// et l'uploader d'images (optionnel).
type Handler struct {
	svc     *catalog.Service
	uploads *services.Uploader
}

func New(svc *catalog.Service, uploads *services.Uploader) *Handler {
	return &Handler{svc: svc, uploads: uploads}
}

// sessionID extrait l'identifiant de session anonyme : en-tête X-Session-Id
// d'abord, puis paramètre sessionId, sinon "guest".
func sessionID(c *gin.Context) string {
	if sid := c.GetHeader("X-Session-Id"); sid != "" {
		return sid
	}
	if sid := c.Query("sessionId"); sid != "" {
		return sid
	}
	return "guest"
}

// fail mappe la taxonomie d'erreurs du moteur vers les statuts HTTP :
// introuvable → 404, validation → 400, conflit/doublon → 409, identifiants
// → 401, tout le reste → 500 sans retry.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Ressource introuvable"})
	case errors.Is(err, catalog.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, catalog.ErrBadCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Nom d'utilisateur ou mot de passe incorrect"})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Opération refusée : la ressource est encore référencée"})
	case errors.Is(err, store.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "Doublon : cette valeur existe déjà"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
