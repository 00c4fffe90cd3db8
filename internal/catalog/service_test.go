package catalog

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"catalogue_back_end/internal/models"
	"catalogue_back_end/internal/store"
	"catalogue_back_end/internal/utils"
)

// memStore est un Store en mémoire pour tester le moteur sans base.
type memStore struct {
	categories []models.Category
	products   map[string]models.Product
	history    []models.HistoryEvent
	wishlist   []wishEntry
	reviews    []models.Review
	admins     map[string]models.AdminUser
	nextID     int
}

type wishEntry struct {
	sessionID string
	productID string
	addedAt   time.Time
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		products: map[string]models.Product{},
		admins:   map[string]models.AdminUser{},
		nextID:   100,
	}
}

func (m *memStore) genID() string {
	m.nextID++
	return "id-" + strconv.Itoa(m.nextID)
}

func (m *memStore) Categories(ctx context.Context) ([]models.Category, error) {
	return append([]models.Category(nil), m.categories...), nil
}

func (m *memStore) CategoryByID(ctx context.Context, id string) (models.Category, error) {
	for _, c := range m.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Category{}, store.ErrNotFound
}

func (m *memStore) CreateCategory(ctx context.Context, cat models.Category) (models.Category, error) {
	if cat.ID == "" {
		cat.ID = m.genID()
	}
	m.categories = append(m.categories, cat)
	return cat, nil
}

func (m *memStore) UpdateCategory(ctx context.Context, cat models.Category) error {
	for i := range m.categories {
		if m.categories[i].ID == cat.ID {
			m.categories[i] = cat
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) DeleteCategory(ctx context.Context, id string) error {
	for _, p := range m.products {
		if p.CategoryID == id {
			return store.ErrConflict
		}
	}
	for i := range m.categories {
		if m.categories[i].ID == id {
			m.categories = append(m.categories[:i], m.categories[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) Products(ctx context.Context) ([]models.Product, error) {
	out := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ProductByID(ctx context.Context, id string) (models.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return models.Product{}, store.ErrNotFound
	}
	return p, nil
}

func (m *memStore) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	if p.ID == "" {
		p.ID = m.genID()
	}
	m.products[p.ID] = p
	return p, nil
}

func (m *memStore) UpdateProduct(ctx context.Context, p models.Product) error {
	if _, ok := m.products[p.ID]; !ok {
		return store.ErrNotFound
	}
	m.products[p.ID] = p
	return nil
}

func (m *memStore) DeleteProduct(ctx context.Context, id string) error {
	if _, ok := m.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *memStore) IncrementPopularity(ctx context.Context, productID string) error {
	p, ok := m.products[productID]
	if !ok {
		return store.ErrNotFound
	}
	p.Popularity++
	m.products[productID] = p
	return nil
}

func (m *memStore) InsertHistoryEvent(ctx context.Context, sessionID, productID string, viewedAt time.Time) error {
	m.history = append(m.history, models.HistoryEvent{SessionID: sessionID, ProductID: productID, ViewedAt: viewedAt})
	return nil
}

func (m *memStore) HistoryEvents(ctx context.Context, sessionID string, limit int) ([]models.HistoryEvent, error) {
	var events []models.HistoryEvent
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].SessionID == sessionID {
			events = append(events, m.history[i])
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].ViewedAt.After(events[j].ViewedAt) })
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (m *memStore) WishlistContains(ctx context.Context, sessionID, productID string) (bool, error) {
	for _, e := range m.wishlist {
		if e.sessionID == sessionID && e.productID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) WishlistInsert(ctx context.Context, sessionID, productID string, addedAt time.Time) error {
	if ok, _ := m.WishlistContains(ctx, sessionID, productID); ok {
		return store.ErrDuplicate
	}
	m.wishlist = append(m.wishlist, wishEntry{sessionID, productID, addedAt})
	return nil
}

func (m *memStore) WishlistDelete(ctx context.Context, sessionID, productID string) error {
	for i, e := range m.wishlist {
		if e.sessionID == sessionID && e.productID == productID {
			m.wishlist = append(m.wishlist[:i], m.wishlist[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memStore) WishlistProductIDs(ctx context.Context, sessionID string) ([]string, error) {
	var ids []string
	for i := len(m.wishlist) - 1; i >= 0; i-- {
		if m.wishlist[i].sessionID == sessionID {
			ids = append(ids, m.wishlist[i].productID)
		}
	}
	return ids, nil
}

func (m *memStore) Reviews(ctx context.Context, productID string) ([]models.Review, error) {
	var out []models.Review
	for i := len(m.reviews) - 1; i >= 0; i-- {
		if m.reviews[i].ProductID == productID {
			out = append(out, m.reviews[i])
		}
	}
	return out, nil
}

func (m *memStore) InsertReview(ctx context.Context, review models.Review) (models.Review, error) {
	if review.ID == "" {
		review.ID = m.genID()
	}
	m.reviews = append(m.reviews, review)
	return review, nil
}

func (m *memStore) AdminByUsername(ctx context.Context, username string) (models.AdminUser, error) {
	admin, ok := m.admins[username]
	if !ok {
		return models.AdminUser{}, store.ErrNotFound
	}
	return admin, nil
}

func (m *memStore) Close() error { return nil }

// ----- Fixtures -----

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	m := newMemStore()

	m.categories = []models.Category{
		{ID: "1", Name: "Vêtements", Slug: "clothing"},
		{ID: "4", Name: "Chemises", Slug: "shirt", ParentID: parent("1")},
		{ID: "7", Name: "Mobile", Slug: "mobile", ParentID: parent("1")},
	}
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, p := range []models.Product{
		{ID: "1", Name: "Chemise", Slug: "chemise", CategoryID: "4", Price: 100, Popularity: 5, CreatedAt: base},
		{ID: "2", Name: "Jean", Slug: "jean", CategoryID: "4", Price: 50, Popularity: 9, CreatedAt: base.Add(time.Hour)},
		{ID: "3", Name: "Téléphone", Slug: "telephone", CategoryID: "7", Price: 800, Popularity: 9, CreatedAt: base.Add(2 * time.Hour)},
	} {
		m.products[p.ID] = p
	}

	return New(m, nil, nil), m
}

// ----- Vues & historique -----

func TestRecordViewIncrementsPopularity(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	before := m.products["1"].Popularity
	if err := svc.RecordView(ctx, "sess", "1"); err != nil {
		t.Fatal(err)
	}
	if err := svc.RecordView(ctx, "sess", "1"); err != nil {
		t.Fatal(err)
	}

	if got := m.products["1"].Popularity; got != before+2 {
		t.Fatalf("popularité = %d, attendu %d", got, before+2)
	}

	history, err := svc.History(ctx, "sess", 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Fatalf("historique = %d entrées, attendu 1 (dédupliqué)", len(history))
	}
	if history[0].ViewedAt == nil {
		t.Fatal("viewed_at manquant sur l'entrée d'historique")
	}
	// L'horodatage conservé est celui de la consultation la plus récente.
	latest := m.history[len(m.history)-1].ViewedAt
	if !history[0].ViewedAt.Equal(latest) {
		t.Fatalf("viewed_at = %v, attendu %v", history[0].ViewedAt, latest)
	}
}

func TestRecordViewUnknownProduct(t *testing.T) {
	svc, m := newTestService(t)

	err := svc.RecordView(context.Background(), "sess", "absent")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("erreur = %v, attendu ErrNotFound", err)
	}
	if len(m.history) != 0 {
		t.Fatal("aucun événement ne doit être journalisé pour un produit inconnu")
	}
}

func TestHistoryOrderedMostRecentFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "1", "3"} {
		if err := svc.RecordView(ctx, "sess", id); err != nil {
			t.Fatal(err)
		}
	}

	history, err := svc.History(ctx, "sess", 20)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]string, len(history))
	for i, v := range history {
		got[i] = v.ID
	}
	want := []string{"3", "1", "2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("historique = %v, attendu %v", got, want)
		}
	}
}

// ----- Wishlist -----

func TestWishlistLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.AddToWishlist(ctx, "sess", "1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Added || res.Already {
		t.Fatalf("premier ajout → %+v, attendu {added:true}", res)
	}

	res, err = svc.AddToWishlist(ctx, "sess", "1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Added || !res.Already {
		t.Fatalf("second ajout → %+v, attendu {added:false, already:true}", res)
	}

	views, err := svc.Wishlist(ctx, "sess")
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || views[0].ID != "1" {
		t.Fatalf("wishlist = %v, attendu [1]", views)
	}

	if err := svc.RemoveFromWishlist(ctx, "sess", "1"); err != nil {
		t.Fatal(err)
	}
	views, err = svc.Wishlist(ctx, "sess")
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 0 {
		t.Fatalf("wishlist après suppression = %v, attendu vide", views)
	}
}

func TestWishlistUnknownProduct(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AddToWishlist(context.Background(), "sess", "absent")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("erreur = %v, attendu ErrNotFound", err)
	}
}

// ----- Produits -----

func TestListProductsPopularityDesc(t *testing.T) {
	svc, m := newTestService(t)
	m.products = map[string]models.Product{
		"1": {ID: "1", CategoryID: "4", Price: 100, Popularity: 5},
		"2": {ID: "2", CategoryID: "4", Price: 50, Popularity: 9},
	}

	views, err := svc.ListProducts(context.Background(), FilterSpec{Sort: "popularity", Order: "desc"})
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 || views[0].ID != "2" || views[1].ID != "1" {
		t.Fatalf("tri popularité desc incorrect: %v", views)
	}
}

func TestListProductsEnrichment(t *testing.T) {
	svc, _ := newTestService(t)

	views, err := svc.ListProducts(context.Background(), FilterSpec{Category: "4", Sort: "price", Order: "asc"})
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 {
		t.Fatalf("category=4 → %d produits, attendu 2", len(views))
	}
	if views[0].CategoryName != "Chemises" || views[0].CategorySlug != "shirt" {
		t.Fatalf("enrichissement incorrect: %+v", views[0])
	}
}

func TestEnrichmentToleratesMissingCategory(t *testing.T) {
	svc, m := newTestService(t)
	m.products["9"] = models.Product{ID: "9", Name: "Sans catégorie", CategoryID: "zzz"}

	view, err := svc.GetProduct(context.Background(), "9")
	if err != nil {
		t.Fatal(err)
	}
	if view.CategoryName != "" || view.CategorySlug != "" {
		t.Fatalf("catégorie inconnue → champs vides attendus, obtenu %+v", view)
	}
}

func TestGetProductWithReviews(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.AddReview(ctx, "1", "Alice", 4, "Très bien"); err != nil {
		t.Fatal(err)
	}
	if err := svc.AddReview(ctx, "1", "", 99, ""); err != nil {
		t.Fatal(err)
	}

	view, err := svc.GetProduct(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Reviews) != 2 {
		t.Fatalf("avis = %d, attendu 2", len(view.Reviews))
	}
	// Note hors bornes ramenée à 5, auteur anonyme par défaut.
	if view.Reviews[0].Rating != 5 || view.Reviews[0].Author != "مهمان" {
		t.Fatalf("avis par défaut incorrect: %+v", view.Reviews[0])
	}

	if _, err := svc.GetProduct(ctx, "absent"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("produit inconnu → %v, attendu ErrNotFound", err)
	}
}

// ----- Recommandations -----

func TestRecommendedOrder(t *testing.T) {
	svc, _ := newTestService(t)

	views, err := svc.Recommended(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	// Popularité décroissante ; à popularité égale (2 et 3), le plus récent
	// d'abord.
	got := make([]string, len(views))
	for i, v := range views {
		got[i] = v.ID
	}
	want := []string{"3", "2", "1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("recommandés = %v, attendu %v", got, want)
		}
	}
}

func TestRecommendedLimitCapped(t *testing.T) {
	svc, m := newTestService(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		id := "p" + strconv.Itoa(i)
		m.products[id] = models.Product{ID: id, CategoryID: "4", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
	}

	views, err := svc.Recommended(context.Background(), 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 20 {
		t.Fatalf("limite plafonnée à 20, obtenu %d", len(views))
	}
}

// ----- Admin -----

func TestLoginIssuesDemoToken(t *testing.T) {
	svc, m := newTestService(t)
	hash, err := utils.HashPassword("admin123")
	if err != nil {
		t.Fatal(err)
	}
	m.admins["admin"] = models.AdminUser{ID: "a1", Username: "admin", PasswordHash: hash}
	ctx := context.Background()

	result, err := svc.Login(ctx, "admin", "admin123")
	if err != nil {
		t.Fatal(err)
	}
	if result.Token != "admin-admin" || result.Username != "admin" {
		t.Fatalf("login → %+v, attendu le jeton admin-admin", result)
	}

	// Le nom d'utilisateur est nettoyé avant la recherche.
	if _, err := svc.Login(ctx, "  admin  ", "admin123"); err != nil {
		t.Fatalf("username avec espaces refusé: %v", err)
	}

	if _, err := svc.Login(ctx, "admin", "mauvais"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("mauvais mot de passe → %v, attendu ErrBadCredentials", err)
	}
	if _, err := svc.Login(ctx, "inconnu", "x"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("utilisateur inconnu → %v, attendu ErrBadCredentials", err)
	}
	if _, err := svc.Login(ctx, "", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("identifiants manquants → %v, attendu ErrValidation", err)
	}
}

func TestLoginAcceptsLegacyPlaintext(t *testing.T) {
	svc, m := newTestService(t)
	m.admins["legacy"] = models.AdminUser{ID: "a2", Username: "legacy", PasswordHash: "motdepasse"}

	result, err := svc.Login(context.Background(), "legacy", "motdepasse")
	if err != nil {
		t.Fatal(err)
	}
	if result.Token != "admin-legacy" {
		t.Fatalf("jeton = %q, attendu admin-legacy", result.Token)
	}
}

func TestCreateProductDefaultsAndValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateProduct(ctx, ProductInput{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("catégorie manquante → %v, attendu ErrValidation", err)
	}

	cat := "4"
	name := "Nouvelle chemise"
	created, err := svc.CreateProduct(ctx, ProductInput{Name: &name, CategoryID: &cat})
	if err != nil {
		t.Fatal(err)
	}
	if created.Popularity != 0 {
		t.Fatalf("popularité initiale = %d, attendu 0", created.Popularity)
	}
	if !strings.HasPrefix(created.Slug, "Nouvelle-chemise-") {
		t.Fatalf("slug = %q, préfixe Nouvelle-chemise- attendu", created.Slug)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatal("horodatages manquants à la création")
	}
}

func TestUpdateProductPartial(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	price := 120.0
	updated, err := svc.UpdateProduct(ctx, "1", ProductInput{Price: &price})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Price != 120 {
		t.Fatalf("prix = %v, attendu 120", updated.Price)
	}
	// Les champs non fournis restent inchangés.
	if updated.Name != "Chemise" || updated.CategoryID != "4" {
		t.Fatalf("mise à jour partielle a écrasé d'autres champs: %+v", updated)
	}
	if m.products["1"].Price != 120 {
		t.Fatal("mise à jour non persistée dans le store")
	}
}

func TestDeleteCategoryStillReferenced(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.DeleteCategory(context.Background(), "4")
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("catégorie référencée → %v, attendu ErrConflict", err)
	}
}

func TestCategoryTreeFromService(t *testing.T) {
	svc, _ := newTestService(t)

	tree, err := svc.CategoryTree(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tree) != 1 || tree[0].ID != "1" {
		t.Fatalf("arbre = %v, attendu une racine '1'", tree)
	}
	if len(tree[0].Children) != 2 {
		t.Fatalf("enfants de la racine = %d, attendu 2", len(tree[0].Children))
	}
}
