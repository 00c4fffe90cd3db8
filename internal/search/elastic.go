package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"catalogue_back_end/internal/models"
)

const productIndex = "products"

// Index est l'index de recherche produits (Elasticsearch). Un *Index nil est
// valide : l'indexation devient un no-op et SearchIDs renvoie une erreur, ce
// qui fait retomber le moteur sur le filtre en mémoire.
type Index struct {
	client *elasticsearch.Client
}

// Connect crée le client si ELASTIC_URL est configuré.
func Connect() *Index {
	url := os.Getenv("ELASTIC_URL")
	if url == "" {
		log.Println("⚠️ ELASTIC_URL non configuré — recherche en mémoire uniquement")
		return nil
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  os.Getenv("ELASTIC_USER"),
		Password:  os.Getenv("ELASTIC_PASSWORD"),
	})
	if err != nil {
		log.Println("⚠️ Client Elasticsearch indisponible:", err)
		return nil
	}

	res, err := client.Info()
	if err != nil {
		log.Println("⚠️ Elasticsearch injoignable — recherche en mémoire uniquement:", err)
		return nil
	}
	defer res.Body.Close()

	log.Println("✅ Connecté à Elasticsearch")
	return &Index{client: client}
}

// IndexProduct indexe (ou réindexe) un produit. Appelé en tâche de fond
// après chaque écriture admin.
func (idx *Index) IndexProduct(p models.Product) {
	if idx == nil {
		return
	}

	data, err := json.Marshal(p)
	if err != nil {
		log.Println("❌ Erreur sérialisation produit pour Elastic:", err)
		return
	}
	req := esapi.IndexRequest{
		Index:      productIndex,
		DocumentID: p.ID,
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}

	res, err := req.Do(context.Background(), idx.client)
	if err != nil {
		log.Println("❌ Erreur envoi Elastic:", err)
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Printf("⚠️ Elastic a renvoyé une erreur pour %s: %s", p.Name, res.String())
	}
}

// DeleteProduct retire un produit de l'index.
func (idx *Index) DeleteProduct(id string) {
	if idx == nil {
		return
	}

	req := esapi.DeleteRequest{Index: productIndex, DocumentID: id}
	res, err := req.Do(context.Background(), idx.client)
	if err != nil {
		log.Println("❌ Erreur suppression Elastic:", err)
		return
	}
	res.Body.Close()
}

// SearchIDs retourne les identifiants des produits correspondant à la
// requête plein-texte, par pertinence décroissante.
func (idx *Index) SearchIDs(ctx context.Context, query string) ([]string, error) {
	if idx == nil {
		return nil, errors.New("index de recherche non initialisé")
	}

	var buf bytes.Buffer
	q := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"name", "description", "brand"},
			},
		},
		"_source": false,
		"size":    200,
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("erreur encodage requête: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{productIndex},
		Body:  &buf,
	}
	res, err := req.Do(ctx, idx.client)
	if err != nil {
		return nil, fmt.Errorf("erreur requête Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("erreur Elastic: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("erreur décodage réponse Elastic: %w", err)
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}
