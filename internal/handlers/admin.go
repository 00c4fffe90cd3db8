package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"catalogue_back_end/internal/catalog"
	"catalogue_back_end/internal/models"
)

// AdminLogin vérifie les identifiants et délivre le jeton de démonstration
// "admin-" + username.
func (h *Handler) AdminLogin(c *gin.Context) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	_ = c.ShouldBindJSON(&body)

	result, err := h.svc.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ----- Produits -----

func (h *Handler) AdminProducts(c *gin.Context) {
	products, err := h.svc.AdminProducts(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// productInputFromForm lit les champs du formulaire (multipart ou
// urlencoded) : seuls les champs présents sont reportés, les autres gardent
// leur valeur par défaut ou existante.
func productInputFromForm(c *gin.Context) catalog.ProductInput {
	var in catalog.ProductInput

	str := func(field string, dst **string) {
		if v, ok := c.GetPostForm(field); ok {
			*dst = &v
		}
	}
	str("name", &in.Name)
	str("slug", &in.Slug)
	str("description", &in.Description)
	str("category_id", &in.CategoryID)
	str("brand", &in.Brand)
	str("image", &in.Image)

	if v, ok := c.GetPostForm("price"); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			in.Price = &f
		}
	}
	if v, ok := c.GetPostForm("stock"); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			in.Stock = &n
		}
	}
	if v, ok := c.GetPostForm("attributes"); ok && v != "" {
		var attrs models.Attributes
		// Un JSON illisible est ignoré, comme avant.
		if json.Unmarshal([]byte(v), &attrs) == nil {
			in.Attributes = attrs
		}
	}
	return in
}

// uploadImage envoie l'image jointe vers MinIO et reporte son URL dans
// l'input. Sans fichier joint, le champ image du formulaire fait foi.
func (h *Handler) uploadImage(c *gin.Context, in *catalog.ProductInput) error {
	file, err := c.FormFile("image")
	if err != nil {
		return nil // pas de fichier joint
	}
	url, err := h.uploads.UploadProductImage(c.Request.Context(), file)
	if err != nil {
		return err
	}
	in.Image = &url
	return nil
}

func (h *Handler) AdminCreateProduct(c *gin.Context) {
	in := productInputFromForm(c)
	if err := h.uploadImage(c, &in); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur upload image: " + err.Error()})
		return
	}

	created, err := h.svc.CreateProduct(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) AdminUpdateProduct(c *gin.Context) {
	in := productInputFromForm(c)
	if err := h.uploadImage(c, &in); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur upload image: " + err.Error()})
		return
	}

	updated, err := h.svc.UpdateProduct(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) AdminDeleteProduct(c *gin.Context) {
	if err := h.svc.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// SignImage délivre une URL de téléchargement signée (15 min) pour une image
// du bucket, à partir de son URL publique ou de son chemin d'objet.
func (h *Handler) SignImage(c *gin.Context) {
	objectPath := c.Query("url")
	if objectPath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le paramètre 'url' est obligatoire"})
		return
	}

	signed, err := h.uploads.SignedImageURL(c.Request.Context(), objectPath, 15*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur génération URL signée: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": signed})
}

// ----- Catégories -----

func (h *Handler) AdminCategories(c *gin.Context) {
	cats, err := h.svc.ListCategories(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cats)
}

func (h *Handler) AdminCreateCategory(c *gin.Context) {
	var in catalog.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.svc.CreateCategory(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) AdminUpdateCategory(c *gin.Context) {
	var in catalog.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.svc.UpdateCategory(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) AdminDeleteCategory(c *gin.Context) {
	if err := h.svc.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
