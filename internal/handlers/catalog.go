package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"catalogue_back_end/internal/catalog"
)

// GetCategories liste les catégories, à plat par défaut, en arbre
// parent → enfants avec ?tree=1.
func (h *Handler) GetCategories(c *gin.Context) {
	if c.Query("tree") == "1" {
		tree, err := h.svc.CategoryTree(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, tree)
		return
	}

	cats, err := h.svc.ListCategories(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cats)
}

// GetProducts applique les filtres de la query string
// (q, category, brand, minPrice, maxPrice, sort, order).
func (h *Handler) GetProducts(c *gin.Context) {
	var spec catalog.FilterSpec
	if err := c.ShouldBindQuery(&spec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	products, err := h.svc.ListProducts(c.Request.Context(), spec)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) GetProduct(c *gin.Context) {
	view, err := h.svc.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// RecordView journalise la consultation d'un produit pour la session.
func (h *Handler) RecordView(c *gin.Context) {
	sid := sessionID(c)
	if sid == "guest" {
		// Les anciens clients envoient la session dans le corps.
		var body struct {
			SessionID string `json:"sessionId"`
		}
		if c.ShouldBindJSON(&body) == nil && body.SessionID != "" {
			sid = body.SessionID
		}
	}

	if err := h.svc.RecordView(c.Request.Context(), sid, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) AddReview(c *gin.Context) {
	var body struct {
		Author  string `json:"author"`
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	// Corps absent ou invalide : l'avis prend les valeurs par défaut.
	_ = c.ShouldBindJSON(&body)

	if err := h.svc.AddReview(c.Request.Context(), c.Param("id"), body.Author, body.Rating, body.Comment); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ----- Wishlist -----

func (h *Handler) GetWishlist(c *gin.Context) {
	views, err := h.svc.Wishlist(c.Request.Context(), sessionID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) AddToWishlist(c *gin.Context) {
	result, err := h.svc.AddToWishlist(c.Request.Context(), sessionID(c), c.Param("productId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) RemoveFromWishlist(c *gin.Context) {
	if err := h.svc.RemoveFromWishlist(c.Request.Context(), sessionID(c), c.Param("productId")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": true})
}

// ----- Historique & recommandations -----

func (h *Handler) GetHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	views, err := h.svc.History(c.Request.Context(), sessionID(c), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) GetRecommended(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	views, err := h.svc.Recommended(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}
