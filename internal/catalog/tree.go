package catalog

import (
	"catalogue_back_end/internal/models"
)

// BuildTree construit la forêt des catégories depuis la liste plate. Chaque
// nœud reprend les attributs de sa catégorie plus la liste ordonnée de ses
// enfants (l'ordre d'entrée — groupe parent puis nom — est conservé).
//
// Une catégorie dont le parent_id ne résout aucune catégorie de la liste est
// promue racine plutôt que perdue : le nombre de nœuds de la forêt est
// toujours égal au nombre de catégories en entrée.
func BuildTree(cats []models.Category) []*models.CategoryNode {
	nodes := make([]*models.CategoryNode, len(cats))
	byID := make(map[string]*models.CategoryNode, len(cats))
	for i, c := range cats {
		n := &models.CategoryNode{Category: c, Children: []*models.CategoryNode{}}
		nodes[i] = n
		byID[c.ID] = n
	}

	roots := []*models.CategoryNode{}
	for _, n := range nodes {
		if n.ParentID == nil || *n.ParentID == "" {
			roots = append(roots, n)
			continue
		}
		parent, ok := byID[*n.ParentID]
		if !ok || parent == n {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}
	return roots
}
