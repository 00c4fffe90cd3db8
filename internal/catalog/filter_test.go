package catalog

import (
	"testing"
	"time"

	"catalogue_back_end/internal/models"
)

func sampleProducts() []models.Product {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []models.Product{
		{ID: "1", Name: "Chemise classique", Description: "Chemise en coton", Brand: "Alpha", CategoryID: "4", Price: 100, Popularity: 5, CreatedAt: base},
		{ID: "2", Name: "Jean brut", Description: "Denim épais", Brand: "Beta", CategoryID: "5", Price: 50, Popularity: 9, CreatedAt: base.Add(time.Hour)},
		{ID: "3", Name: "Smartphone X1", Description: "Écran OLED", Brand: "Gamma", CategoryID: "7", Price: 800, Popularity: 2, CreatedAt: base.Add(2 * time.Hour)},
	}
}

func applyFilter(products []models.Product, spec FilterSpec) []models.Product {
	var out []models.Product
	for _, p := range products {
		if spec.matches(p, true) {
			out = append(out, p)
		}
	}
	return out
}

func TestFilterQueryMatchesNameOrDescription(t *testing.T) {
	products := sampleProducts()

	got := applyFilter(products, FilterSpec{Query: "CHEMISE"})
	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("q=CHEMISE → %v, attendu [1]", ids(got))
	}

	// Correspondance sur la description uniquement.
	got = applyFilter(products, FilterSpec{Query: "oled"})
	if len(got) != 1 || got[0].ID != "3" {
		t.Fatalf("q=oled → %v, attendu [3]", ids(got))
	}
}

func TestFilterBrandAndCategory(t *testing.T) {
	products := sampleProducts()

	got := applyFilter(products, FilterSpec{Brand: "bet"})
	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("brand=bet → %v, attendu [2]", ids(got))
	}

	got = applyFilter(products, FilterSpec{Category: "7"})
	if len(got) != 1 || got[0].ID != "3" {
		t.Fatalf("category=7 → %v, attendu [3]", ids(got))
	}
}

func TestFilterPriceBoundsInclusive(t *testing.T) {
	products := sampleProducts()

	got := applyFilter(products, FilterSpec{MinPrice: "100", MaxPrice: "800"})
	if len(got) != 2 {
		t.Fatalf("bornes [100, 800] → %v, attendu [1 3]", ids(got))
	}
}

func TestFilterMinAboveMaxIsEmpty(t *testing.T) {
	got := applyFilter(sampleProducts(), FilterSpec{MinPrice: "500", MaxPrice: "100"})
	if len(got) != 0 {
		t.Fatalf("minPrice > maxPrice doit vider le résultat, obtenu %v", ids(got))
	}
}

func TestFilterConjunction(t *testing.T) {
	// Tous les critères s'appliquent en ET.
	got := applyFilter(sampleProducts(), FilterSpec{Query: "chemise", Brand: "gamma"})
	if len(got) != 0 {
		t.Fatalf("critères contradictoires → vide attendu, obtenu %v", ids(got))
	}
}

func TestSortPriceAscending(t *testing.T) {
	products := sampleProducts()
	sortProducts(products, sortField("price"), "asc")

	for i := 1; i < len(products); i++ {
		if products[i-1].Price > products[i].Price {
			t.Fatalf("tri prix croissant violé à l'indice %d: %v > %v", i, products[i-1].Price, products[i].Price)
		}
	}
}

func TestSortPopularityDescending(t *testing.T) {
	products := []models.Product{
		{ID: "1", Price: 100, Popularity: 5},
		{ID: "2", Price: 50, Popularity: 9},
	}
	sortProducts(products, sortField("popularity"), "desc")

	if products[0].ID != "2" || products[1].ID != "1" {
		t.Fatalf("tri popularité desc → %v, attendu [2 1]", ids(products))
	}
}

func TestSortUnknownFallsBackToNewest(t *testing.T) {
	if got := sortField("n'importe quoi"); got != "created_at" {
		t.Fatalf("sort inconnu → %q, attendu created_at", got)
	}

	products := sampleProducts()
	sortProducts(products, sortField(""), "desc")
	if products[0].ID != "3" {
		t.Fatalf("tri newest desc → premier %s, attendu 3", products[0].ID)
	}
}

func TestSortNameUsesCollation(t *testing.T) {
	products := []models.Product{
		{ID: "1", Name: "Écran"},
		{ID: "2", Name: "Clavier"},
		{ID: "3", Name: "Souris"},
	}
	sortProducts(products, sortField("name"), "asc")

	// Le collateur Unicode classe É entre C et S, contrairement au tri
	// d'octets bruts.
	if products[0].ID != "2" || products[1].ID != "1" || products[2].ID != "3" {
		t.Fatalf("tri nom asc → %v, attendu [2 1 3]", ids(products))
	}
}

func TestBadPriceBoundIsIgnored(t *testing.T) {
	got := applyFilter(sampleProducts(), FilterSpec{MinPrice: "abc"})
	if len(got) != 3 {
		t.Fatalf("borne illisible ignorée → 3 produits attendus, obtenu %v", ids(got))
	}
}

func ids(products []models.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}
