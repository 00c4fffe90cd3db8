package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"catalogue_back_end/internal/cache"
	"catalogue_back_end/internal/models"
	"catalogue_back_end/internal/search"
	"catalogue_back_end/internal/store"
	"catalogue_back_end/internal/utils"
)

var (
	// ErrValidation : requête incomplète ou invalide (→ 400).
	ErrValidation = errors.New("catalog: requête invalide")
	// ErrBadCredentials : identifiants admin refusés (→ 401).
	ErrBadCredentials = errors.New("catalog: identifiants invalides")
)

const (
	keyCategories  = "categories:all"
	keyRecommended = "products:recommended"

	recommendedDefault = 8
	recommendedMax     = 20
	historyDefault     = 20
)

// Service est le moteur de catalogue. Il compose le store injecté (SQLite ou
// ScyllaDB, indifféremment), un cache Redis optionnel et un index de
// recherche optionnel. Tout le filtrage, le tri et l'enrichissement se font
// ici, en mémoire, pour que les deux backends aient exactement la même
// sémantique.
type Service struct {
	store  store.Store
	cache  *cache.Cache
	search *search.Index
}

func New(st store.Store, c *cache.Cache, idx *search.Index) *Service {
	return &Service{store: st, cache: c, search: idx}
}

// ----- Catégories -----

// ListCategories retourne la liste plate, groupée par parent puis triée par
// nom.
func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cached []models.Category
	if s.cache.GetJSON(ctx, keyCategories, &cached) {
		return cached, nil
	}

	cats, err := s.store.Categories(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, keyCategories, cats, cache.CategoryTTL)
	return cats, nil
}

// CategoryTree retourne la forêt parent → enfants.
func (s *Service) CategoryTree(ctx context.Context) ([]*models.CategoryNode, error) {
	cats, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return BuildTree(cats), nil
}

// ----- Produits -----

func (s *Service) categoriesByID(ctx context.Context) (map[string]models.Category, error) {
	cats, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}
	return byID, nil
}

// enrich attache le nom et le slug de la catégorie au produit. Une catégorie
// manquante laisse simplement les champs vides, sans erreur.
func enrich(p models.Product, cats map[string]models.Category) models.ProductView {
	view := models.ProductView{Product: p}
	if c, ok := cats[p.CategoryID]; ok {
		view.CategoryName = c.Name
		view.CategorySlug = c.Slug
	}
	return view
}

func (s *Service) enrichAll(ctx context.Context, products []models.Product) ([]models.ProductView, error) {
	cats, err := s.categoriesByID(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]models.ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, enrich(p, cats))
	}
	return views, nil
}

// ListProducts applique le pipeline filtre → tri → enrichissement sur le
// catalogue complet. Le critère `q` passe d'abord par l'index de recherche
// quand il est disponible, sinon par le filtre en mémoire.
func (s *Service) ListProducts(ctx context.Context, spec FilterSpec) ([]models.ProductView, error) {
	products, err := s.store.Products(ctx)
	if err != nil {
		return nil, err
	}

	queryInMemory := true
	if spec.Query != "" {
		if ids, err := s.search.SearchIDs(ctx, spec.Query); err == nil && len(ids) > 0 {
			matched := make(map[string]bool, len(ids))
			for _, id := range ids {
				matched[id] = true
			}
			kept := products[:0:0]
			for _, p := range products {
				if matched[p.ID] {
					kept = append(kept, p)
				}
			}
			products = kept
			queryInMemory = false
		}
	}

	filtered := products[:0:0]
	for _, p := range products {
		if spec.matches(p, queryInMemory) {
			filtered = append(filtered, p)
		}
	}

	sortProducts(filtered, sortField(spec.Sort), spec.Order)
	return s.enrichAll(ctx, filtered)
}

// GetProduct retourne le produit enrichi avec ses avis.
func (s *Service) GetProduct(ctx context.Context, id string) (models.ProductView, error) {
	p, err := s.store.ProductByID(ctx, id)
	if err != nil {
		return models.ProductView{}, err
	}

	cats, err := s.categoriesByID(ctx)
	if err != nil {
		return models.ProductView{}, err
	}
	view := enrich(p, cats)

	reviews, err := s.store.Reviews(ctx, id)
	if err != nil {
		return models.ProductView{}, err
	}
	view.Reviews = reviews
	return view, nil
}

// RecordView journalise la consultation pour la session et incrémente la
// popularité de 1. Produit inconnu → ErrNotFound : pas d'événement fantôme.
func (s *Service) RecordView(ctx context.Context, sessionID, productID string) error {
	if err := s.store.IncrementPopularity(ctx, productID); err != nil {
		return err
	}
	return s.store.InsertHistoryEvent(ctx, sessionID, productID, time.Now().UTC())
}

// ----- Avis -----

// AddReview enregistre un avis. La note est ramenée dans [1, 5] ; absente,
// elle vaut 5. L'auteur anonyme devient "مهمان" (invité).
func (s *Service) AddReview(ctx context.Context, productID, author string, rating int, comment string) error {
	if _, err := s.store.ProductByID(ctx, productID); err != nil {
		return err
	}
	if rating <= 0 {
		rating = 5
	} else if rating > 5 {
		rating = 5
	}
	if author == "" {
		author = "مهمان"
	}
	_, err := s.store.InsertReview(ctx, models.Review{
		ProductID: productID,
		Author:    author,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now().UTC(),
	})
	return err
}

// ----- Wishlist -----

// WishlistResult est la réponse structurée d'un ajout : un doublon n'est pas
// une erreur, il est signalé par already.
type WishlistResult struct {
	Added   bool `json:"added"`
	Already bool `json:"already,omitempty"`
}

func wishlistKey(sessionID string) string { return "wishlist:" + sessionID }

// Wishlist retourne les produits de la session, enrichis, du plus récemment
// ajouté au plus ancien.
func (s *Service) Wishlist(ctx context.Context, sessionID string) ([]models.ProductView, error) {
	var cached []models.ProductView
	if s.cache.GetJSON(ctx, wishlistKey(sessionID), &cached) {
		return cached, nil
	}

	ids, err := s.store.WishlistProductIDs(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	views, err := s.viewsForIDs(ctx, ids, nil)
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, wishlistKey(sessionID), views, cache.WishlistTTL)
	return views, nil
}

// AddToWishlist ajoute la paire (session, produit). Ré-ajouter un produit
// déjà présent répond {added:false, already:true}, jamais une erreur.
func (s *Service) AddToWishlist(ctx context.Context, sessionID, productID string) (WishlistResult, error) {
	if _, err := s.store.ProductByID(ctx, productID); err != nil {
		return WishlistResult{}, err
	}

	err := s.store.WishlistInsert(ctx, sessionID, productID, time.Now().UTC())
	if errors.Is(err, store.ErrDuplicate) {
		return WishlistResult{Added: false, Already: true}, nil
	}
	if err != nil {
		return WishlistResult{}, err
	}

	s.cache.Del(ctx, wishlistKey(sessionID))
	return WishlistResult{Added: true}, nil
}

func (s *Service) RemoveFromWishlist(ctx context.Context, sessionID, productID string) error {
	if err := s.store.WishlistDelete(ctx, sessionID, productID); err != nil {
		return err
	}
	s.cache.Del(ctx, wishlistKey(sessionID))
	return nil
}

// ----- Historique -----

// History retourne les derniers produits consultés par la session : au plus
// `limit` événements récents, dédupliqués par produit en gardant la
// consultation la plus récente, du plus récent au plus ancien.
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]models.ProductView, error) {
	if limit <= 0 {
		limit = historyDefault
	}

	events, err := s.store.HistoryEvents(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}

	// Événements du plus récent au plus ancien : la première occurrence d'un
	// produit porte donc son dernier horodatage de consultation.
	seen := make(map[string]bool, len(events))
	var ids []string
	viewedAt := make(map[string]time.Time, len(events))
	for _, e := range events {
		if seen[e.ProductID] {
			continue
		}
		seen[e.ProductID] = true
		ids = append(ids, e.ProductID)
		viewedAt[e.ProductID] = e.ViewedAt
	}

	return s.viewsForIDs(ctx, ids, viewedAt)
}

// viewsForIDs résout une liste ordonnée d'identifiants en vues enrichies.
// Les produits supprimés entre-temps sont ignorés silencieusement.
func (s *Service) viewsForIDs(ctx context.Context, ids []string, viewedAt map[string]time.Time) ([]models.ProductView, error) {
	if len(ids) == 0 {
		return []models.ProductView{}, nil
	}

	products, err := s.store.Products(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	cats, err := s.categoriesByID(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]models.ProductView, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			continue
		}
		view := enrich(p, cats)
		if viewedAt != nil {
			if at, ok := viewedAt[id]; ok {
				t := at
				view.ViewedAt = &t
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// ----- Recommandations -----

// Recommended retourne les produits les plus consultés (popularité
// décroissante, puis plus récent d'abord).
func (s *Service) Recommended(ctx context.Context, limit int) ([]models.ProductView, error) {
	if limit <= 0 {
		limit = recommendedDefault
	}
	if limit > recommendedMax {
		limit = recommendedMax
	}

	var top []models.ProductView
	if !s.cache.GetJSON(ctx, keyRecommended, &top) {
		products, err := s.store.Products(ctx)
		if err != nil {
			return nil, err
		}
		sortProducts(products, "created_at", "desc")
		sortProducts(products, "popularity", "desc")
		if len(products) > recommendedMax {
			products = products[:recommendedMax]
		}
		top, err = s.enrichAll(ctx, products)
		if err != nil {
			return nil, err
		}
		s.cache.SetJSON(ctx, keyRecommended, top, cache.RecommendedTTL)
	}

	if len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

// ----- Admin : session -----

// LoginResult reprend le contrat historique du jeton de démonstration :
// "admin-" + username, sans signature ni expiration. Ce n'est pas une
// frontière de sécurité — un vrai déploiement le remplacerait par un jeton
// signé et expirable.
type LoginResult struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, fmt.Errorf("%w: nom d'utilisateur et mot de passe requis", ErrValidation)
	}

	admin, err := s.store.AdminByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return LoginResult{}, ErrBadCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if !utils.VerifyPassword(password, admin.PasswordHash) {
		return LoginResult{}, ErrBadCredentials
	}

	return LoginResult{Token: "admin-" + username, Username: username}, nil
}

// ----- Admin : produits -----

// ProductInput porte les champs modifiables d'un produit. Les pointeurs nil
// signifient "non fourni" : défauts à la création, champ inchangé en mise à
// jour.
type ProductInput struct {
	Name        *string
	Slug        *string
	Description *string
	Price       *float64
	Stock       *int
	CategoryID  *string
	Brand       *string
	Image       *string
	Attributes  models.Attributes
}

func strOr(p *string, fallback string) string {
	if p != nil {
		return *p
	}
	return fallback
}

// slugify reproduit la génération historique : base sans espaces, suffixée
// d'un horodatage pour l'unicité.
func slugify(base string) string {
	return strings.Join(strings.Fields(base), "-") + "-" + strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// AdminProducts liste tout le catalogue enrichi, plus récent d'abord.
func (s *Service) AdminProducts(ctx context.Context) ([]models.ProductView, error) {
	products, err := s.store.Products(ctx)
	if err != nil {
		return nil, err
	}
	sortProducts(products, "created_at", "desc")
	return s.enrichAll(ctx, products)
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (models.Product, error) {
	categoryID := strOr(in.CategoryID, "")
	if categoryID == "" {
		return models.Product{}, fmt.Errorf("%w: le champ 'category_id' est obligatoire", ErrValidation)
	}
	if _, err := s.store.CategoryByID(ctx, categoryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Product{}, fmt.Errorf("%w: catégorie introuvable", ErrValidation)
		}
		return models.Product{}, err
	}

	name := strOr(in.Name, "محصول")
	now := time.Now().UTC()
	p := models.Product{
		Name:        name,
		Slug:        slugify(strOr(in.Slug, name)),
		Description: strOr(in.Description, ""),
		CategoryID:  categoryID,
		Brand:       strOr(in.Brand, ""),
		Image:       strOr(in.Image, ""),
		Attributes:  in.Attributes,
		Popularity:  0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}

	created, err := s.store.CreateProduct(ctx, p)
	if err != nil {
		return models.Product{}, err
	}

	go s.search.IndexProduct(created)
	s.cache.Del(ctx, keyRecommended)
	log.Printf("🆕 Produit créé: %s (%s)", created.Name, created.ID)
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) (models.Product, error) {
	p, err := s.store.ProductByID(ctx, id)
	if err != nil {
		return models.Product{}, err
	}

	if in.CategoryID != nil && *in.CategoryID != p.CategoryID {
		if _, err := s.store.CategoryByID(ctx, *in.CategoryID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return models.Product{}, fmt.Errorf("%w: catégorie introuvable", ErrValidation)
			}
			return models.Product{}, err
		}
		p.CategoryID = *in.CategoryID
	}
	p.Name = strOr(in.Name, p.Name)
	p.Description = strOr(in.Description, p.Description)
	p.Brand = strOr(in.Brand, p.Brand)
	p.Image = strOr(in.Image, p.Image)
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Attributes != nil {
		p.Attributes = in.Attributes
	}
	p.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return models.Product{}, err
	}

	go s.search.IndexProduct(p)
	s.cache.Del(ctx, keyRecommended)
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	go s.search.DeleteProduct(id)
	s.cache.Del(ctx, keyRecommended)
	log.Printf("🗑️ Produit supprimé: %s", id)
	return nil
}

// ----- Admin : catégories -----

// CategoryInput porte les champs modifiables d'une catégorie.
type CategoryInput struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	ParentID    *string `json:"parent_id"`
	Description *string `json:"description"`
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (models.Category, error) {
	name := strOr(in.Name, "")
	slug := strOr(in.Slug, "")
	if name == "" || slug == "" {
		return models.Category{}, fmt.Errorf("%w: les champs 'name' et 'slug' sont obligatoires", ErrValidation)
	}

	cat := models.Category{
		Name:        name,
		Slug:        slug,
		Description: strOr(in.Description, ""),
	}
	if in.ParentID != nil && *in.ParentID != "" {
		if _, err := s.store.CategoryByID(ctx, *in.ParentID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return models.Category{}, fmt.Errorf("%w: catégorie parente introuvable", ErrValidation)
			}
			return models.Category{}, err
		}
		cat.ParentID = in.ParentID
	}

	created, err := s.store.CreateCategory(ctx, cat)
	if err != nil {
		return models.Category{}, err
	}
	s.cache.Del(ctx, keyCategories)
	return created, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id string, in CategoryInput) (models.Category, error) {
	cat, err := s.store.CategoryByID(ctx, id)
	if err != nil {
		return models.Category{}, err
	}

	cat.Name = strOr(in.Name, cat.Name)
	cat.Slug = strOr(in.Slug, cat.Slug)
	cat.Description = strOr(in.Description, cat.Description)
	if in.ParentID != nil {
		if *in.ParentID == "" {
			cat.ParentID = nil
		} else {
			if *in.ParentID == id {
				return models.Category{}, fmt.Errorf("%w: une catégorie ne peut pas être son propre parent", ErrValidation)
			}
			if _, err := s.store.CategoryByID(ctx, *in.ParentID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return models.Category{}, fmt.Errorf("%w: catégorie parente introuvable", ErrValidation)
				}
				return models.Category{}, err
			}
			cat.ParentID = in.ParentID
		}
	}

	if err := s.store.UpdateCategory(ctx, cat); err != nil {
		return models.Category{}, err
	}
	s.cache.Del(ctx, keyCategories)
	return cat, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.cache.Del(ctx, keyCategories)
	return nil
}
