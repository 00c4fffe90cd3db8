package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList est une liste de chaînes stockée en JSON côté SQL (la colonne
// images de l'ancien schéma SQLite).
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *StringList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		if len(v) == 0 {
			*l = nil
			return nil
		}
		return json.Unmarshal(v, (*[]string)(l))
	case string:
		if v == "" {
			*l = nil
			return nil
		}
		return json.Unmarshal([]byte(v), (*[]string)(l))
	default:
		return fmt.Errorf("stringlist: type de colonne inattendu %T", src)
	}
}
