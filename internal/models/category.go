package models

type Category struct {
	ID          string  `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Slug        string  `json:"slug" db:"slug"`
	ParentID    *string `json:"parent_id" db:"parent_id"`
	Description string  `json:"description,omitempty" db:"description"`
}

// CategoryNode est un nœud de l'arbre des catégories, construit à la volée
// depuis la liste plate (jamais persisté).
type CategoryNode struct {
	Category
	Children []*CategoryNode `json:"children"`
}
