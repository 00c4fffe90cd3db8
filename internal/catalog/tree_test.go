package catalog

import (
	"testing"

	"catalogue_back_end/internal/models"
)

func parent(id string) *string { return &id }

func countNodes(nodes []*models.CategoryNode) int {
	n := 0
	for _, node := range nodes {
		n += 1 + countNodes(node.Children)
	}
	return n
}

func checkChildren(t *testing.T, nodes []*models.CategoryNode) {
	t.Helper()
	for _, node := range nodes {
		for _, child := range node.Children {
			if child.ParentID == nil || *child.ParentID != node.ID {
				t.Errorf("enfant %s rattaché à %s mais parent_id=%v", child.ID, node.ID, child.ParentID)
			}
		}
		checkChildren(t, node.Children)
	}
}

func TestBuildTreeSimple(t *testing.T) {
	tree := BuildTree([]models.Category{
		{ID: "1", Name: "A"},
		{ID: "2", Name: "B", ParentID: parent("1")},
	})

	if len(tree) != 1 {
		t.Fatalf("racines = %d, attendu 1", len(tree))
	}
	if tree[0].ID != "1" {
		t.Fatalf("racine = %s, attendu 1", tree[0].ID)
	}
	if len(tree[0].Children) != 1 || tree[0].Children[0].ID != "2" {
		t.Fatalf("enfants de la racine incorrects: %+v", tree[0].Children)
	}
	if len(tree[0].Children[0].Children) != 0 {
		t.Fatal("la feuille devrait avoir une liste d'enfants vide")
	}
}

func TestBuildTreeNodeCountAndParents(t *testing.T) {
	cats := []models.Category{
		{ID: "1", Name: "Vêtements"},
		{ID: "2", Name: "Homme", ParentID: parent("1")},
		{ID: "3", Name: "Femme", ParentID: parent("1")},
		{ID: "4", Name: "Chemises", ParentID: parent("2")},
		{ID: "5", Name: "Électronique"},
		{ID: "6", Name: "Mobile", ParentID: parent("5")},
	}

	tree := BuildTree(cats)
	if got := countNodes(tree); got != len(cats) {
		t.Fatalf("nombre de nœuds = %d, attendu %d", got, len(cats))
	}
	checkChildren(t, tree)
	if len(tree) != 2 {
		t.Fatalf("racines = %d, attendu 2", len(tree))
	}
}

func TestBuildTreeOrphanBecomesRoot(t *testing.T) {
	cats := []models.Category{
		{ID: "1", Name: "A"},
		{ID: "2", Name: "B", ParentID: parent("inexistant")},
	}

	tree := BuildTree(cats)
	if got := countNodes(tree); got != 2 {
		t.Fatalf("nombre de nœuds = %d, attendu 2 (l'orphelin doit rester présent)", got)
	}
	if len(tree) != 2 {
		t.Fatalf("racines = %d, attendu 2 (l'orphelin devient racine)", len(tree))
	}
}

func TestBuildTreeEmpty(t *testing.T) {
	tree := BuildTree(nil)
	if tree == nil || len(tree) != 0 {
		t.Fatalf("liste vide → forêt vide non nulle, obtenu %v", tree)
	}
}
