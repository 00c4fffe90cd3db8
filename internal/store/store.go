package store

import (
	"context"
	"errors"
	"time"

	"catalogue_back_end/internal/models"
)

var (
	// ErrNotFound : l'identifiant ne résout aucune entité.
	ErrNotFound = errors.New("store: entité introuvable")
	// ErrDuplicate : violation d'unicité (slug, paire wishlist...).
	ErrDuplicate = errors.New("store: doublon")
	// ErrConflict : l'opération est refusée en l'état (catégorie encore
	// référencée par des produits, par exemple).
	ErrConflict = errors.New("store: conflit")
)

// Store est le contrat commun aux deux backends de persistance (SQLite
// embarqué et ScyllaDB). Le moteur de catalogue ne connaît que cette
// interface : tout le filtrage, le tri et l'enrichissement se font au-dessus,
// de façon identique quel que soit l'adaptateur. Le handle est ouvert une
// fois au démarrage, injecté dans le moteur, et fermé à l'arrêt.
type Store interface {
	// Categories retourne la liste plate, groupée par parent_id puis triée
	// par nom.
	Categories(ctx context.Context) ([]models.Category, error)
	CategoryByID(ctx context.Context, id string) (models.Category, error)
	CreateCategory(ctx context.Context, cat models.Category) (models.Category, error)
	UpdateCategory(ctx context.Context, cat models.Category) error
	// DeleteCategory refuse (ErrConflict) tant que des produits référencent
	// la catégorie.
	DeleteCategory(ctx context.Context, id string) error

	Products(ctx context.Context) ([]models.Product, error)
	ProductByID(ctx context.Context, id string) (models.Product, error)
	CreateProduct(ctx context.Context, p models.Product) (models.Product, error)
	UpdateProduct(ctx context.Context, p models.Product) error
	// DeleteProduct supprime aussi les entrées wishlist, historique et avis
	// qui référencent le produit.
	DeleteProduct(ctx context.Context, id string) error

	// IncrementPopularity incrémente atomiquement le compteur de vues de 1.
	// ErrNotFound si le produit n'existe pas.
	IncrementPopularity(ctx context.Context, productID string) error

	InsertHistoryEvent(ctx context.Context, sessionID, productID string, viewedAt time.Time) error
	// HistoryEvents retourne les `limit` événements les plus récents d'une
	// session, du plus récent au plus ancien, sans déduplication.
	HistoryEvents(ctx context.Context, sessionID string, limit int) ([]models.HistoryEvent, error)

	WishlistContains(ctx context.Context, sessionID, productID string) (bool, error)
	// WishlistInsert retourne ErrDuplicate si la paire existe déjà.
	WishlistInsert(ctx context.Context, sessionID, productID string, addedAt time.Time) error
	WishlistDelete(ctx context.Context, sessionID, productID string) error
	// WishlistProductIDs retourne les produits de la session, du plus
	// récemment ajouté au plus ancien.
	WishlistProductIDs(ctx context.Context, sessionID string) ([]string, error)

	// Reviews retourne les avis d'un produit, du plus récent au plus ancien.
	Reviews(ctx context.Context, productID string) ([]models.Review, error)
	InsertReview(ctx context.Context, review models.Review) (models.Review, error)

	AdminByUsername(ctx context.Context, username string) (models.AdminUser, error)

	Close() error
}
