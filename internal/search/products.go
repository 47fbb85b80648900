package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/tradepost/storefront/internal/models"
)

// ProductIndex is the elasticsearch index products are mirrored into.
const ProductIndex = "products"

// IndexProduct mirrors a product document into elasticsearch. Indexing is
// best effort: callers log failures and carry on.
func IndexProduct(ctx context.Context, es *elasticsearch.Client, p *models.Product) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("search: marshal product: %w", err)
	}

	res, err := es.Index(
		ProductIndex,
		bytes.NewReader(doc),
		es.Index.WithDocumentID(strconv.FormatUint(uint64(p.ID), 10)),
		es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("search: index product %d: %w", p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("search: index product %d: %s", p.ID, res.Status())
	}
	return nil
}

func DeleteProduct(ctx context.Context, es *elasticsearch.Client, id uint) error {
	res, err := es.Delete(
		ProductIndex,
		strconv.FormatUint(uint64(id), 10),
		es.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("search: delete product %d: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("search: delete product %d: %s", id, res.Status())
	}
	return nil
}

// Products runs a fuzzy multi-match query over product names and
// descriptions, optionally scoped to one store.
func Products(ctx context.Context, es *elasticsearch.Client, query string, storeID uint, from, size int) (int64, []models.Product, error) {
	match := map[string]interface{}{
		"multi_match": map[string]interface{}{
			"query":     query,
			"fields":    []string{"name^2", "description"},
			"fuzziness": "AUTO",
		},
	}

	var q map[string]interface{}
	if storeID > 0 {
		q = map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   match,
				"filter": map[string]interface{}{"term": map[string]interface{}{"store_id": storeID}},
			},
		}
	} else {
		q = match
	}

	body := map[string]interface{}{
		"query": q,
		"from":  from,
		"size":  size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search: encode query: %w", err)
	}

	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(ProductIndex),
		es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: query failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search: query failed: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Product `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	products := make([]models.Product, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		products[i] = hit.Source
	}
	return r.Hits.Total.Value, products, nil
}
