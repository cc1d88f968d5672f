// Package search maintains a Meilisearch index of resolved addresses for
// typo-tolerant lookup.
package search

import (
	"fmt"

	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"

	"github.com/address-kit/app/models"
)

const defaultIndex = "addresses"

// AddressSearcher indexes resolved addresses and serves fuzzy queries over
// them.
type AddressSearcher struct {
	client *meilisearch.Client
	index  *meilisearch.Index
	logger *zap.Logger
}

// Hit is one search result.
type Hit struct {
	ID         string  `json:"id"`
	Raw        string  `json:"raw"`
	Formatted  string  `json:"formatted"`
	Locality   string  `json:"locality"`
	StateCode  string  `json:"state_code"`
	PostalCode string  `json:"postal_code"`
	Score      float64 `json:"score"`
}

// NewAddressSearcher connects to Meilisearch. An empty index name falls back
// to "addresses".
func NewAddressSearcher(host, apiKey, indexName string, logger *zap.Logger) *AddressSearcher {
	if indexName == "" {
		indexName = defaultIndex
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := meilisearch.NewClient(meilisearch.ClientConfig{Host: host, APIKey: apiKey})
	return &AddressSearcher{
		client: client,
		index:  client.Index(indexName),
		logger: logger,
	}
}

// EnsureIndex applies the searchable/filterable attribute settings. Safe to
// call on every startup.
func (s *AddressSearcher) EnsureIndex() error {
	searchable := []string{"raw", "formatted", "locality", "state_code", "postal_code"}
	if _, err := s.index.UpdateSearchableAttributes(&searchable); err != nil {
		return fmt.Errorf("update searchable attributes: %w", err)
	}
	filterable := []string{"state_code", "postal_code"}
	if _, err := s.index.UpdateFilterableAttributes(&filterable); err != nil {
		return fmt.Errorf("update filterable attributes: %w", err)
	}
	return nil
}

// IndexAddress adds or replaces one resolved address in the index.
func (s *AddressSearcher) IndexAddress(detail *models.AddressDetail) error {
	return s.IndexAddresses([]*models.AddressDetail{detail})
}

// IndexAddresses bulk-indexes resolved addresses.
func (s *AddressSearcher) IndexAddresses(details []*models.AddressDetail) error {
	docs := make([]map[string]any, 0, len(details))
	for _, detail := range details {
		if detail == nil || detail.Address == nil {
			continue
		}
		doc := map[string]any{
			"id":        detail.Address.ID.Hex(),
			"raw":       detail.Address.Raw,
			"formatted": detail.Address.Formatted,
		}
		if detail.Locality != nil {
			doc["locality"] = detail.Locality.Name
			doc["postal_code"] = detail.Locality.PostalCode
		}
		if detail.State != nil {
			doc["state_code"] = detail.State.Code
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil
	}

	if _, err := s.index.AddDocuments(docs, "id"); err != nil {
		return fmt.Errorf("index addresses: %w", err)
	}
	s.logger.Debug("Indexed addresses", zap.Int("count", len(docs)))
	return nil
}

// Search runs a fuzzy query over the index.
func (s *AddressSearcher) Search(query string, limit int64) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	resp, err := s.index.Search(query, &meilisearch.SearchRequest{
		Limit:            limit,
		ShowRankingScore: true,
	})
	if err != nil {
		return nil, fmt.Errorf("search addresses: %w", err)
	}

	hits := make([]Hit, 0, len(resp.Hits))
	for _, raw := range resp.Hits {
		doc, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		hit := Hit{
			ID:         asDocString(doc["id"]),
			Raw:        asDocString(doc["raw"]),
			Formatted:  asDocString(doc["formatted"]),
			Locality:   asDocString(doc["locality"]),
			StateCode:  asDocString(doc["state_code"]),
			PostalCode: asDocString(doc["postal_code"]),
		}
		if score, ok := doc["_rankingScore"].(float64); ok {
			hit.Score = score
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// DeleteAddress removes an address document.
func (s *AddressSearcher) DeleteAddress(id string) error {
	if _, err := s.index.DeleteDocument(id); err != nil {
		return fmt.Errorf("delete address document: %w", err)
	}
	return nil
}

func asDocString(v any) string {
	s, _ := v.(string)
	return s
}
