package catalog

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"catalogue_back_end/internal/models"
)

// FilterSpec reprend les paramètres de requête de GET /api/products. Les
// bornes de prix restent des chaînes : vide signifie "pas de borne".
type FilterSpec struct {
	Query    string `form:"q"`
	Category string `form:"category"`
	Brand    string `form:"brand"`
	MinPrice string `form:"minPrice"`
	MaxPrice string `form:"maxPrice"`
	Sort     string `form:"sort"`
	Order    string `form:"order"`
}

// sortField mappe le paramètre `sort` vers le champ trié. Toute valeur
// inconnue retombe sur created_at ("newest").
func sortField(sort string) string {
	switch sort {
	case "price", "popularity", "name":
		return sort
	default:
		return "created_at"
	}
}

func parsePrice(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Borne illisible : ignorée plutôt que de vider le résultat.
		return 0, false
	}
	return v, true
}

// matches applique tous les critères fournis (conjonction). Quand
// includeQuery est faux, le critère `q` a déjà été résolu en amont (index de
// recherche) et n'est pas réévalué.
func (spec FilterSpec) matches(p models.Product, includeQuery bool) bool {
	if includeQuery && spec.Query != "" {
		q := strings.ToLower(spec.Query)
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	if spec.Category != "" && p.CategoryID != spec.Category {
		return false
	}
	if spec.Brand != "" && !strings.Contains(strings.ToLower(p.Brand), strings.ToLower(spec.Brand)) {
		return false
	}
	if min, ok := parsePrice(spec.MinPrice); ok && p.Price < min {
		return false
	}
	if max, ok := parsePrice(spec.MaxPrice); ok && p.Price > max {
		return false
	}
	return true
}

// sortProducts trie sur place selon le champ choisi. Tri stable : les
// ex æquo gardent l'ordre de lecture du store. Les chaînes sont comparées
// avec le collateur Unicode, les nombres par soustraction.
func sortProducts(list []models.Product, field, order string) {
	dir := -1 // desc par défaut
	if order == "asc" {
		dir = 1
	}

	var less func(a, b models.Product) int
	switch field {
	case "price":
		less = func(a, b models.Product) int {
			switch {
			case a.Price < b.Price:
				return -1
			case a.Price > b.Price:
				return 1
			}
			return 0
		}
	case "popularity":
		less = func(a, b models.Product) int {
			switch {
			case a.Popularity < b.Popularity:
				return -1
			case a.Popularity > b.Popularity:
				return 1
			}
			return 0
		}
	case "name":
		collator := collate.New(language.Und)
		less = func(a, b models.Product) int {
			return collator.CompareString(a.Name, b.Name)
		}
	default: // created_at
		less = func(a, b models.Product) int {
			switch {
			case a.CreatedAt.Before(b.CreatedAt):
				return -1
			case a.CreatedAt.After(b.CreatedAt):
				return 1
			}
			return 0
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		return dir*less(list[i], list[j]) < 0
	})
}
