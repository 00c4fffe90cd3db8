package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Attribute est une paire clé/valeur d'un attribut libre de produit
// (couleur, taille, stockage...).
type Attribute struct {
	Key   string
	Value string
}

// Attributes est la table d'attributs ouverte d'un produit. Contrairement à
// une map, l'ordre d'insertion est conservé pour un affichage déterministe.
// Sur le fil JSON elle reste un objet classique {"clé":"valeur"}.
type Attributes []Attribute

func (a Attributes) Get(key string) (string, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// Set remplace la valeur si la clé existe déjà, sinon l'ajoute en fin.
func (a *Attributes) Set(key, value string) {
	for i := range *a {
		if (*a)[i].Key == key {
			(*a)[i].Value = value
			return
		}
	}
	*a = append(*a, Attribute{Key: key, Value: value})
}

func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, attr := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(attr.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(attr.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (a *Attributes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*a = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("attributes: objet JSON attendu, trouvé %v", tok)
	}

	out := Attributes{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("attributes: clé invalide %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		// Les valeurs non textuelles (nombres, booléens) sont gardées telles
		// quelles sous forme de texte.
		var val string
		if err := json.Unmarshal(raw, &val); err != nil {
			val = string(bytes.TrimSpace(raw))
		}
		out = append(out, Attribute{Key: key, Value: val})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*a = out
	return nil
}

// Value sérialise les attributs en JSON pour le stockage SQL.
func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	data, err := a.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (a *Attributes) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		if len(v) == 0 {
			*a = nil
			return nil
		}
		return a.UnmarshalJSON(v)
	case string:
		if v == "" {
			*a = nil
			return nil
		}
		return a.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("attributes: type de colonne inattendu %T", src)
	}
}
