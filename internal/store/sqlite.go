package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"

	"catalogue_back_end/internal/models"
	"catalogue_back_end/internal/utils"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS categories (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	slug TEXT UNIQUE NOT NULL,
	parent_id TEXT DEFAULT NULL,
	description TEXT DEFAULT '',
	FOREIGN KEY (parent_id) REFERENCES categories(id)
);
CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	slug TEXT UNIQUE NOT NULL,
	description TEXT DEFAULT '',
	price REAL NOT NULL,
	stock INTEGER DEFAULT 0,
	category_id TEXT NOT NULL,
	brand TEXT DEFAULT '',
	image TEXT DEFAULT '',
	images TEXT DEFAULT '[]',
	popularity INTEGER DEFAULT 0,
	attributes TEXT DEFAULT '{}',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (category_id) REFERENCES categories(id)
);
CREATE TABLE IF NOT EXISTS wishlist (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	product_id TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	UNIQUE(session_id, product_id)
);
CREATE TABLE IF NOT EXISTS view_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	product_id TEXT NOT NULL,
	viewed_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS reviews (
	id TEXT PRIMARY KEY,
	product_id TEXT NOT NULL,
	author TEXT DEFAULT '',
	rating INTEGER DEFAULT 5,
	comment TEXT DEFAULT '',
	created_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS admin_users (
	id TEXT PRIMARY KEY,
	username TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id);
CREATE INDEX IF NOT EXISTS idx_history_session ON view_history(session_id, viewed_at);
`

// SQLite est l'adaptateur SQL embarqué (mattn/go-sqlite3 via sqlx). Le schéma
// est créé à l'ouverture et la base est pré-remplie si elle est vide.
type SQLite struct {
	db *sqlx.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite ouvre (ou crée) la base au chemin donné.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := path + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("ouverture SQLite: %w", err)
	}
	// Une seule connexion : SQLite n'aime pas les écritures concurrentes et
	// l'incrément de popularité doit rester atomique.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("création schéma SQLite: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.seed(); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed SQLite: %w", err)
	}

	log.Println("✅ Base SQLite prête :", path)
	return s, nil
}

// seed insère les données de démonstration du catalogue si la base est vide.
func (s *SQLite) seed() error {
	var n int
	if err := s.db.Get(&n, `SELECT COUNT(*) FROM categories`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	parent := func(id string) *string { return &id }
	categories := []models.Category{
		{ID: "1", Name: "لباس", Slug: "clothing"},
		{ID: "2", Name: "مردانه", Slug: "mens", ParentID: parent("1")},
		{ID: "3", Name: "زنانه", Slug: "womens", ParentID: parent("1")},
		{ID: "4", Name: "پیراهن", Slug: "shirt", ParentID: parent("2")},
		{ID: "5", Name: "شلوار", Slug: "pants", ParentID: parent("2")},
		{ID: "6", Name: "لوازم الکترونیک", Slug: "electronics"},
		{ID: "7", Name: "موبایل", Slug: "mobile", ParentID: parent("6")},
		{ID: "8", Name: "لپ‌تاپ", Slug: "laptop", ParentID: parent("6")},
	}
	for _, c := range categories {
		if _, err := s.db.Exec(
			`INSERT INTO categories (id, name, slug, parent_id, description) VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Slug, c.ParentID, c.Description,
		); err != nil {
			return err
		}
	}

	const defaultImage = "/images/product-default.png"
	now := time.Now().UTC()
	products := []models.Product{
		{ID: "1", Name: "پیراهن مردانه کلاسیک", Slug: "mens-classic-shirt", Description: "پیراهن مردانه با پارچه مرغوب و دوخت دقیق. مناسب مجالس و محیط کار.", Price: 299000, Stock: 50, CategoryID: "4", Brand: "برند الف", Popularity: 120, Attributes: models.Attributes{{Key: "color", Value: "سفید"}, {Key: "size", Value: "M"}}},
		{ID: "2", Name: "شلوار جین مردانه", Slug: "mens-jeans", Description: "شلوار جین با کیفیت بالا و رنگ ثابت.", Price: 249000, Stock: 30, CategoryID: "5", Brand: "برند ب", Popularity: 95, Attributes: models.Attributes{{Key: "color", Value: "آبی"}, {Key: "size", Value: "32"}}},
		{ID: "3", Name: "موبایل هوشمند X1", Slug: "mobile-x1", Description: "گوشی هوشمند با دوربین ۴۸ مگاپیکسل و باتری ۵۰۰۰ میلی‌آمپر.", Price: 8500000, Stock: 20, CategoryID: "7", Brand: "سامسونگ", Popularity: 200, Attributes: models.Attributes{{Key: "color", Value: "مشکی"}, {Key: "storage", Value: "128GB"}}},
		{ID: "4", Name: "لپ‌تاپ ۱۵ اینچی", Slug: "laptop-15", Description: "لپ‌تاپ سبک با پردازنده قدرتمند و رم ۱۶ گیگابایت.", Price: 25000000, Stock: 10, CategoryID: "8", Brand: "ایسوس", Popularity: 80, Attributes: models.Attributes{{Key: "color", Value: "نقره‌ای"}, {Key: "ram", Value: "16GB"}}},
		{ID: "5", Name: "پیراهن مردانه اسپرت", Slug: "mens-sport-shirt", Description: "پیراهن اسپرت راحت برای روزهای گرم.", Price: 189000, Stock: 45, CategoryID: "4", Brand: "برند ج", Popularity: 60, Attributes: models.Attributes{{Key: "color", Value: "آبی"}, {Key: "size", Value: "L"}}},
		{ID: "6", Name: "بلوز زنانه", Slug: "womens-blouse", Description: "بلوز زنانه با طراحی شیک و پارچه نخی.", Price: 279000, Stock: 25, CategoryID: "3", Brand: "برند د", Popularity: 110, Attributes: models.Attributes{{Key: "color", Value: "گلدار"}, {Key: "size", Value: "S"}}},
	}
	for i, p := range products {
		p.Image = defaultImage
		// Dates décalées pour que le tri "newest" soit déterministe.
		p.CreatedAt = now.Add(-time.Duration(i) * time.Hour)
		p.UpdatedAt = p.CreatedAt
		if _, err := s.db.NamedExec(`
			INSERT INTO products (id, name, slug, description, price, stock, category_id, brand, image, images, popularity, attributes, created_at, updated_at)
			VALUES (:id, :name, :slug, :description, :price, :stock, :category_id, :brand, :image, :images, :popularity, :attributes, :created_at, :updated_at)`, p,
		); err != nil {
			return err
		}
	}

	hash, err := utils.HashPassword("admin123")
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(
		`INSERT INTO admin_users (id, username, password_hash) VALUES (?, ?, ?)`,
		uuid.NewString(), "admin", hash,
	); err != nil {
		return err
	}

	log.Println("🌱 Base SQLite initialisée avec les données de démonstration")
	return nil
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// ----- Catégories -----

func (s *SQLite) Categories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	err := s.db.SelectContext(ctx, &cats,
		`SELECT id, name, slug, parent_id, description FROM categories ORDER BY COALESCE(parent_id, ''), name`)
	return cats, err
}

func (s *SQLite) CategoryByID(ctx context.Context, id string) (models.Category, error) {
	var cat models.Category
	err := s.db.GetContext(ctx, &cat,
		`SELECT id, name, slug, parent_id, description FROM categories WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return cat, ErrNotFound
	}
	return cat, err
}

func (s *SQLite) CreateCategory(ctx context.Context, cat models.Category) (models.Category, error) {
	if cat.ID == "" {
		cat.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, slug, parent_id, description) VALUES (?, ?, ?, ?, ?)`,
		cat.ID, cat.Name, cat.Slug, cat.ParentID, cat.Description)
	if isUniqueViolation(err) {
		return cat, ErrDuplicate
	}
	return cat, err
}

func (s *SQLite) UpdateCategory(ctx context.Context, cat models.Category) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, slug = ?, parent_id = ?, description = ? WHERE id = ?`,
		cat.Name, cat.Slug, cat.ParentID, cat.Description, cat.ID)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) DeleteCategory(ctx context.Context, id string) error {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM products WHERE category_id = ?`, id); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ----- Produits -----

const productColumns = `id, name, slug, description, price, stock, category_id, brand, image, images, popularity, attributes, created_at, updated_at`

func (s *SQLite) Products(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		`SELECT `+productColumns+` FROM products ORDER BY id`)
	return products, err
}

func (s *SQLite) ProductByID(ctx context.Context, id string) (models.Product, error) {
	var p models.Product
	err := s.db.GetContext(ctx, &p,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

func (s *SQLite) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO products (id, name, slug, description, price, stock, category_id, brand, image, images, popularity, attributes, created_at, updated_at)
		VALUES (:id, :name, :slug, :description, :price, :stock, :category_id, :brand, :image, :images, :popularity, :attributes, :created_at, :updated_at)`, p)
	if isUniqueViolation(err) {
		return p, ErrDuplicate
	}
	return p, err
}

func (s *SQLite) UpdateProduct(ctx context.Context, p models.Product) error {
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE products SET
			name = :name, description = :description, price = :price, stock = :stock,
			category_id = :category_id, brand = :brand, image = :image, images = :images,
			attributes = :attributes, updated_at = :updated_at
		WHERE id = :id`, p)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) DeleteProduct(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	// Suppression en cascade des enregistrements dépendants.
	for _, q := range []string{
		`DELETE FROM wishlist WHERE product_id = ?`,
		`DELETE FROM view_history WHERE product_id = ?`,
		`DELETE FROM reviews WHERE product_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLite) IncrementPopularity(ctx context.Context, productID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET popularity = popularity + 1 WHERE id = ?`, productID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ----- Historique -----

func (s *SQLite) InsertHistoryEvent(ctx context.Context, sessionID, productID string, viewedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO view_history (session_id, product_id, viewed_at) VALUES (?, ?, ?)`,
		sessionID, productID, viewedAt)
	return err
}

func (s *SQLite) HistoryEvents(ctx context.Context, sessionID string, limit int) ([]models.HistoryEvent, error) {
	var events []models.HistoryEvent
	err := s.db.SelectContext(ctx, &events, `
		SELECT session_id, product_id, viewed_at FROM view_history
		WHERE session_id = ? ORDER BY viewed_at DESC, id DESC LIMIT ?`,
		sessionID, limit)
	return events, err
}

// ----- Wishlist -----

func (s *SQLite) WishlistContains(ctx context.Context, sessionID, productID string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM wishlist WHERE session_id = ? AND product_id = ?`, sessionID, productID)
	return n > 0, err
}

func (s *SQLite) WishlistInsert(ctx context.Context, sessionID, productID string, addedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wishlist (session_id, product_id, created_at) VALUES (?, ?, ?)`,
		sessionID, productID, addedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *SQLite) WishlistDelete(ctx context.Context, sessionID, productID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM wishlist WHERE session_id = ? AND product_id = ?`, sessionID, productID)
	return err
}

func (s *SQLite) WishlistProductIDs(ctx context.Context, sessionID string) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids,
		`SELECT product_id FROM wishlist WHERE session_id = ? ORDER BY created_at DESC, id DESC`, sessionID)
	return ids, err
}

// ----- Avis -----

func (s *SQLite) Reviews(ctx context.Context, productID string) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.SelectContext(ctx, &reviews, `
		SELECT id, product_id, author, rating, comment, created_at FROM reviews
		WHERE product_id = ? ORDER BY created_at DESC`, productID)
	return reviews, err
}

func (s *SQLite) InsertReview(ctx context.Context, review models.Review) (models.Review, error) {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reviews (id, product_id, author, rating, comment, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		review.ID, review.ProductID, review.Author, review.Rating, review.Comment, review.CreatedAt)
	return review, err
}

// ----- Admin -----

func (s *SQLite) AdminByUsername(ctx context.Context, username string) (models.AdminUser, error) {
	var admin models.AdminUser
	err := s.db.GetContext(ctx, &admin,
		`SELECT id, username, password_hash FROM admin_users WHERE username = ?`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return admin, ErrNotFound
	}
	return admin, err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
