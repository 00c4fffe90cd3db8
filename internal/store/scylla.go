package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"catalogue_back_end/internal/models"
)

// ScyllaConfig regroupe les paramètres de connexion ScyllaDB, chargés
// depuis l'environnement.
type ScyllaConfig struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	Timeout     time.Duration
	NumConns    int
	Consistency gocql.Consistency
}

// ScyllaConfigFromEnv charge la configuration depuis .env / l'environnement.
func ScyllaConfigFromEnv() ScyllaConfig {
	return ScyllaConfig{
		Hosts:       strings.Split(os.Getenv("SCYLLA_HOSTS"), ","),
		Keyspace:    os.Getenv("SCYLLA_KEYSPACE"),
		Username:    os.Getenv("SCYLLA_USERNAME"),
		Password:    os.Getenv("SCYLLA_PASSWORD"),
		Timeout:     5 * time.Second,
		NumConns:    10,
		Consistency: gocql.Quorum,
	}
}

// Scylla est l'adaptateur document (ScyllaDB/Cassandra via gocql). La
// popularité vit dans une table de compteurs dédiée : l'incrément est donc
// l'opération atomique native du store, pas un read-modify-write.
//
// Les tables doivent être créées via scripts/scylla_init.cql.
type Scylla struct {
	session *gocql.Session
}

var _ Store = (*Scylla)(nil)

// OpenScylla crée la session pour le keyspace configuré.
func OpenScylla(cfg ScyllaConfig) (*Scylla, error) {
	if cfg.Keyspace == "" {
		return nil, fmt.Errorf("SCYLLA_KEYSPACE non configuré")
	}

	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = cfg.Consistency
	cluster.Timeout = cfg.Timeout
	cluster.NumConns = cfg.NumConns
	cluster.ReconnectInterval = 1 * time.Second
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("création session ScyllaDB: %w", err)
	}

	log.Printf("✅ Session ScyllaDB ouverte sur le keyspace '%s'", cfg.Keyspace)
	return &Scylla{session: session}, nil
}

// ----- Catégories -----

func (s *Scylla) Categories(ctx context.Context) ([]models.Category, error) {
	iter := s.session.Query(
		`SELECT id, name, slug, parent_id, description FROM categories`).WithContext(ctx).Iter()

	var cats []models.Category
	var c models.Category
	var parentID string
	for iter.Scan(&c.ID, &c.Name, &c.Slug, &parentID, &c.Description) {
		if parentID != "" {
			pid := parentID
			c.ParentID = &pid
		}
		cats = append(cats, c)
		c = models.Category{}
		parentID = ""
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	// Scylla ne sait pas trier un scan complet : l'ordre du contrat
	// (groupe parent_id, puis nom) est rétabli ici.
	sort.SliceStable(cats, func(i, j int) bool {
		pi, pj := "", ""
		if cats[i].ParentID != nil {
			pi = *cats[i].ParentID
		}
		if cats[j].ParentID != nil {
			pj = *cats[j].ParentID
		}
		if pi != pj {
			return pi < pj
		}
		return cats[i].Name < cats[j].Name
	})
	return cats, nil
}

func (s *Scylla) CategoryByID(ctx context.Context, id string) (models.Category, error) {
	var c models.Category
	var parentID string
	err := s.session.Query(
		`SELECT id, name, slug, parent_id, description FROM categories WHERE id = ?`, id).
		WithContext(ctx).Scan(&c.ID, &c.Name, &c.Slug, &parentID, &c.Description)
	if errors.Is(err, gocql.ErrNotFound) {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if parentID != "" {
		c.ParentID = &parentID
	}
	return c, nil
}

func (s *Scylla) slugTaken(ctx context.Context, table, slug, excludeID string) (bool, error) {
	// Pas de contrainte d'unicité côté Cassandra : scan filtré.
	iter := s.session.Query(
		`SELECT id FROM `+table+` WHERE slug = ? ALLOW FILTERING`, slug).WithContext(ctx).Iter()
	var id string
	taken := false
	for iter.Scan(&id) {
		if id != excludeID {
			taken = true
		}
	}
	return taken, iter.Close()
}

func (s *Scylla) CreateCategory(ctx context.Context, cat models.Category) (models.Category, error) {
	if taken, err := s.slugTaken(ctx, "categories", cat.Slug, ""); err != nil {
		return cat, err
	} else if taken {
		return cat, ErrDuplicate
	}
	if cat.ID == "" {
		cat.ID = uuid.NewString()
	}
	parentID := ""
	if cat.ParentID != nil {
		parentID = *cat.ParentID
	}
	err := s.session.Query(
		`INSERT INTO categories (id, name, slug, parent_id, description) VALUES (?, ?, ?, ?, ?)`,
		cat.ID, cat.Name, cat.Slug, parentID, cat.Description).WithContext(ctx).Exec()
	return cat, err
}

func (s *Scylla) UpdateCategory(ctx context.Context, cat models.Category) error {
	// UPDATE est un upsert en CQL : vérifier l'existence d'abord.
	if _, err := s.CategoryByID(ctx, cat.ID); err != nil {
		return err
	}
	if taken, err := s.slugTaken(ctx, "categories", cat.Slug, cat.ID); err != nil {
		return err
	} else if taken {
		return ErrDuplicate
	}
	parentID := ""
	if cat.ParentID != nil {
		parentID = *cat.ParentID
	}
	return s.session.Query(
		`UPDATE categories SET name = ?, slug = ?, parent_id = ?, description = ? WHERE id = ?`,
		cat.Name, cat.Slug, parentID, cat.Description, cat.ID).WithContext(ctx).Exec()
}

func (s *Scylla) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.CategoryByID(ctx, id); err != nil {
		return err
	}
	iter := s.session.Query(
		`SELECT id FROM products WHERE category_id = ? LIMIT 1 ALLOW FILTERING`, id).WithContext(ctx).Iter()
	var pid string
	inUse := iter.Scan(&pid)
	if err := iter.Close(); err != nil {
		return err
	}
	if inUse {
		return ErrConflict
	}
	return s.session.Query(`DELETE FROM categories WHERE id = ?`, id).WithContext(ctx).Exec()
}

// ----- Produits -----

func (s *Scylla) popularityByProduct(ctx context.Context) (map[string]int64, error) {
	iter := s.session.Query(`SELECT id, views FROM product_popularity`).WithContext(ctx).Iter()
	views := make(map[string]int64)
	var id string
	var n int64
	for iter.Scan(&id, &n) {
		views[id] = n
	}
	return views, iter.Close()
}

func (s *Scylla) scanProduct(iter *gocql.Iter, p *models.Product) bool {
	var images []string
	var attrs string
	ok := iter.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Stock,
		&p.CategoryID, &p.Brand, &p.Image, &images, &attrs, &p.CreatedAt, &p.UpdatedAt)
	if ok {
		p.Images = models.StringList(images)
		if attrs != "" {
			if err := json.Unmarshal([]byte(attrs), &p.Attributes); err != nil {
				log.Printf("⚠️ Attributs illisibles pour le produit %s: %v", p.ID, err)
			}
		}
	}
	return ok
}

const scyllaProductColumns = `id, name, slug, description, price, stock, category_id, brand, image, images, attributes, created_at, updated_at`

func (s *Scylla) Products(ctx context.Context) ([]models.Product, error) {
	iter := s.session.Query(
		`SELECT ` + scyllaProductColumns + ` FROM products`).WithContext(ctx).Iter()

	var products []models.Product
	var p models.Product
	for s.scanProduct(iter, &p) {
		products = append(products, p)
		p = models.Product{}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	// La popularité vit dans la table de compteurs : fusion en mémoire.
	views, err := s.popularityByProduct(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].Popularity = views[products[i].ID]
	}

	// Ordre de lecture stable entre deux appels.
	sort.SliceStable(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (s *Scylla) ProductByID(ctx context.Context, id string) (models.Product, error) {
	var p models.Product
	var images []string
	var attrs string
	err := s.session.Query(
		`SELECT `+scyllaProductColumns+` FROM products WHERE id = ?`, id).WithContext(ctx).
		Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Stock,
			&p.CategoryID, &p.Brand, &p.Image, &images, &attrs, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.Images = models.StringList(images)
	if attrs != "" {
		if err := json.Unmarshal([]byte(attrs), &p.Attributes); err != nil {
			log.Printf("⚠️ Attributs illisibles pour le produit %s: %v", p.ID, err)
		}
	}

	var views int64
	err = s.session.Query(
		`SELECT views FROM product_popularity WHERE id = ?`, id).WithContext(ctx).Scan(&views)
	if err != nil && !errors.Is(err, gocql.ErrNotFound) {
		return p, err
	}
	p.Popularity = views
	return p, nil
}

func (s *Scylla) insertProduct(ctx context.Context, p models.Product) error {
	attrs, err := p.Attributes.MarshalJSON()
	if err != nil {
		return err
	}
	return s.session.Query(`
		INSERT INTO products (id, name, slug, description, price, stock, category_id, brand, image, images, attributes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Slug, p.Description, p.Price, p.Stock, p.CategoryID,
		p.Brand, p.Image, []string(p.Images), string(attrs), p.CreatedAt, p.UpdatedAt).
		WithContext(ctx).Exec()
}

func (s *Scylla) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	if taken, err := s.slugTaken(ctx, "products", p.Slug, ""); err != nil {
		return p, err
	} else if taken {
		return p, ErrDuplicate
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := s.insertProduct(ctx, p); err != nil {
		return p, err
	}
	if p.Popularity > 0 {
		// Un compteur ne s'initialise que par incrément.
		if err := s.session.Query(
			`UPDATE product_popularity SET views = views + ? WHERE id = ?`,
			p.Popularity, p.ID).WithContext(ctx).Exec(); err != nil {
			return p, err
		}
	}
	return p, nil
}

func (s *Scylla) UpdateProduct(ctx context.Context, p models.Product) error {
	current, err := s.ProductByID(ctx, p.ID)
	if err != nil {
		return err
	}
	p.Slug = current.Slug // le slug ne change pas après création
	attrs, err := p.Attributes.MarshalJSON()
	if err != nil {
		return err
	}
	return s.session.Query(`
		UPDATE products SET name = ?, description = ?, price = ?, stock = ?, category_id = ?,
			brand = ?, image = ?, images = ?, attributes = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Description, p.Price, p.Stock, p.CategoryID,
		p.Brand, p.Image, []string(p.Images), string(attrs), p.UpdatedAt, p.ID).
		WithContext(ctx).Exec()
}

func (s *Scylla) DeleteProduct(ctx context.Context, id string) error {
	if _, err := s.ProductByID(ctx, id); err != nil {
		return err
	}

	if err := s.session.Query(`DELETE FROM products WHERE id = ?`, id).WithContext(ctx).Exec(); err != nil {
		return err
	}
	if err := s.session.Query(`DELETE FROM product_popularity WHERE id = ?`, id).WithContext(ctx).Exec(); err != nil {
		return err
	}

	// Cascade wishlist : retrouver les sessions qui référencent le produit.
	iter := s.session.Query(
		`SELECT session_id FROM wishlist WHERE product_id = ? ALLOW FILTERING`, id).WithContext(ctx).Iter()
	var sessionID string
	var wishlistSessions []string
	for iter.Scan(&sessionID) {
		wishlistSessions = append(wishlistSessions, sessionID)
	}
	if err := iter.Close(); err != nil {
		return err
	}
	for _, sid := range wishlistSessions {
		if err := s.session.Query(
			`DELETE FROM wishlist WHERE session_id = ? AND product_id = ?`, sid, id).WithContext(ctx).Exec(); err != nil {
			return err
		}
	}

	// Cascade historique.
	type historyKey struct {
		sessionID string
		viewedAt  time.Time
	}
	iter = s.session.Query(
		`SELECT session_id, viewed_at FROM view_history WHERE product_id = ? ALLOW FILTERING`, id).WithContext(ctx).Iter()
	var keys []historyKey
	var viewedAt time.Time
	for iter.Scan(&sessionID, &viewedAt) {
		keys = append(keys, historyKey{sessionID, viewedAt})
	}
	if err := iter.Close(); err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.session.Query(
			`DELETE FROM view_history WHERE session_id = ? AND viewed_at = ? AND product_id = ?`,
			k.sessionID, k.viewedAt, id).WithContext(ctx).Exec(); err != nil {
			return err
		}
	}

	// Les avis sont partitionnés par produit : une seule suppression.
	return s.session.Query(`DELETE FROM reviews WHERE product_id = ?`, id).WithContext(ctx).Exec()
}

func (s *Scylla) IncrementPopularity(ctx context.Context, productID string) error {
	var id string
	err := s.session.Query(
		`SELECT id FROM products WHERE id = ?`, productID).WithContext(ctx).Scan(&id)
	if errors.Is(err, gocql.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return s.session.Query(
		`UPDATE product_popularity SET views = views + 1 WHERE id = ?`, productID).
		WithContext(ctx).Exec()
}

// ----- Historique -----

func (s *Scylla) InsertHistoryEvent(ctx context.Context, sessionID, productID string, viewedAt time.Time) error {
	return s.session.Query(
		`INSERT INTO view_history (session_id, viewed_at, product_id) VALUES (?, ?, ?)`,
		sessionID, viewedAt, productID).WithContext(ctx).Exec()
}

func (s *Scylla) HistoryEvents(ctx context.Context, sessionID string, limit int) ([]models.HistoryEvent, error) {
	// L'ordre de clustering (viewed_at DESC) donne directement le plus récent
	// en premier.
	iter := s.session.Query(
		`SELECT session_id, product_id, viewed_at FROM view_history WHERE session_id = ? LIMIT ?`,
		sessionID, limit).WithContext(ctx).Iter()

	var events []models.HistoryEvent
	var e models.HistoryEvent
	for iter.Scan(&e.SessionID, &e.ProductID, &e.ViewedAt) {
		events = append(events, e)
	}
	return events, iter.Close()
}

// ----- Wishlist -----

func (s *Scylla) WishlistContains(ctx context.Context, sessionID, productID string) (bool, error) {
	var pid string
	err := s.session.Query(
		`SELECT product_id FROM wishlist WHERE session_id = ? AND product_id = ?`,
		sessionID, productID).WithContext(ctx).Scan(&pid)
	if errors.Is(err, gocql.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Scylla) WishlistInsert(ctx context.Context, sessionID, productID string, addedAt time.Time) error {
	// LWT : l'unicité (session, produit) est garantie par le store.
	applied, err := s.session.Query(
		`INSERT INTO wishlist (session_id, product_id, created_at) VALUES (?, ?, ?) IF NOT EXISTS`,
		sessionID, productID, addedAt).WithContext(ctx).ScanCAS()
	if err != nil {
		return err
	}
	if !applied {
		return ErrDuplicate
	}
	return nil
}

func (s *Scylla) WishlistDelete(ctx context.Context, sessionID, productID string) error {
	return s.session.Query(
		`DELETE FROM wishlist WHERE session_id = ? AND product_id = ?`,
		sessionID, productID).WithContext(ctx).Exec()
}

func (s *Scylla) WishlistProductIDs(ctx context.Context, sessionID string) ([]string, error) {
	iter := s.session.Query(
		`SELECT product_id, created_at FROM wishlist WHERE session_id = ?`, sessionID).
		WithContext(ctx).Iter()

	type entry struct {
		productID string
		addedAt   time.Time
	}
	var entries []entry
	var e entry
	for iter.Scan(&e.productID, &e.addedAt) {
		entries = append(entries, e)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	// Le clustering est par product_id : le tri "plus récent d'abord" se
	// fait ici.
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].addedAt.After(entries[j].addedAt) })
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.productID
	}
	return ids, nil
}

// ----- Avis -----

func (s *Scylla) Reviews(ctx context.Context, productID string) ([]models.Review, error) {
	iter := s.session.Query(`
		SELECT id, product_id, author, rating, comment, created_at FROM reviews
		WHERE product_id = ?`, productID).WithContext(ctx).Iter()

	var reviews []models.Review
	var r models.Review
	for iter.Scan(&r.ID, &r.ProductID, &r.Author, &r.Rating, &r.Comment, &r.CreatedAt) {
		reviews = append(reviews, r)
	}
	return reviews, iter.Close()
}

func (s *Scylla) InsertReview(ctx context.Context, review models.Review) (models.Review, error) {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	err := s.session.Query(
		`INSERT INTO reviews (id, product_id, author, rating, comment, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		review.ID, review.ProductID, review.Author, review.Rating, review.Comment, review.CreatedAt).
		WithContext(ctx).Exec()
	return review, err
}

// ----- Admin -----

func (s *Scylla) AdminByUsername(ctx context.Context, username string) (models.AdminUser, error) {
	var admin models.AdminUser
	err := s.session.Query(
		`SELECT id, username, password_hash FROM admin_users WHERE username = ?`, username).
		WithContext(ctx).Scan(&admin.ID, &admin.Username, &admin.PasswordHash)
	if errors.Is(err, gocql.ErrNotFound) {
		return admin, ErrNotFound
	}
	return admin, err
}

func (s *Scylla) Close() error {
	s.session.Close()
	return nil
}
