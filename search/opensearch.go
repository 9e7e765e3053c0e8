// Package search provides the inverted-index lexical backend for case
// retrieval, backed by OpenSearch.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lexcite-backend/models"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

const casesIndex = "cases"

// caseMapping defines the cases index: an english analyzer over title
// and content plus the fields ranking needs
const caseMapping = `{
	"settings": {
		"number_of_shards": 1,
		"number_of_replicas": 0
	},
	"mappings": {
		"properties": {
			"title": {"type": "text", "analyzer": "english"},
			"content": {"type": "text", "analyzer": "english"},
			"reporter_cite": {"type": "keyword"},
			"court_name": {"type": "keyword"},
			"decision_date": {"type": "date", "ignore_malformed": true},
			"citation_count": {"type": "integer"}
		}
	}
}`

// Client wraps an OpenSearch connection with the case-search schema
type Client struct {
	os *opensearch.Client
}

// NewClient connects to OpenSearch and ensures the cases index exists
func NewClient(ctx context.Context, url string) (*Client, error) {
	osClient, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{url},
		Transport: &http.Transport{ResponseHeaderTimeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	c := &Client{os: osClient}
	if err := c.ensureIndex(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) ensureIndex(ctx context.Context) error {
	exists := opensearchapi.IndicesExistsRequest{Index: []string{casesIndex}}
	resp, err := exists.Do(ctx, c.os)
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	create := opensearchapi.IndicesCreateRequest{
		Index: casesIndex,
		Body:  strings.NewReader(caseMapping),
	}
	createResp, err := create.Do(ctx, c.os)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createResp.Body.Close()

	if createResp.IsError() {
		return fmt.Errorf("failed to create index: %s", createResp.String())
	}
	return nil
}

type caseDoc struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	ReporterCite  string `json:"reporter_cite,omitempty"`
	CourtName     string `json:"court_name,omitempty"`
	DecisionDate  string `json:"decision_date,omitempty"`
	CitationCount int    `json:"citation_count"`
}

// IndexCase writes or replaces a case document in the index
func (c *Client) IndexCase(ctx context.Context, cs *models.Case) error {
	doc := caseDoc{
		Title:         cs.Title,
		Content:       cs.Content,
		ReporterCite:  cs.ReporterCite,
		CourtName:     cs.CourtName,
		CitationCount: cs.CitationCount,
	}
	if cs.DecisionDate != nil {
		doc.DecisionDate = cs.DecisionDate.Format("2006-01-02")
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal case doc: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      casesIndex,
		DocumentID: cs.ID,
		Body:       bytes.NewReader(body),
	}
	resp, err := req.Do(ctx, c.os)
	if err != nil {
		return fmt.Errorf("failed to index case: %w", err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return fmt.Errorf("failed to index case: %s", resp.String())
	}
	return nil
}

// Search runs the function_score ranking: exact title phrases weigh
// 20x, title terms 10x, body terms 1x, with a log1p citation-count
// factor added on top
func (c *Client) Search(ctx context.Context, query string, limit int) ([]*models.SearchResult, error) {
	body := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"function_score": map[string]interface{}{
				"query": map[string]interface{}{
					"bool": map[string]interface{}{
						"should": []interface{}{
							map[string]interface{}{
								"match_phrase": map[string]interface{}{
									"title": map[string]interface{}{"query": query, "boost": 20},
								},
							},
							map[string]interface{}{
								"match": map[string]interface{}{
									"title": map[string]interface{}{"query": query, "boost": 10},
								},
							},
							map[string]interface{}{
								"match": map[string]interface{}{
									"content": map[string]interface{}{"query": query},
								},
							},
						},
					},
				},
				"functions": []interface{}{
					map[string]interface{}{
						"field_value_factor": map[string]interface{}{
							"field":    "citation_count",
							"modifier": "log1p",
							"factor":   1.0,
							"missing":  0,
						},
					},
				},
				"boost_mode": "sum",
			},
		},
		"highlight": map[string]interface{}{
			"fields": map[string]interface{}{
				"content": map[string]interface{}{
					"fragment_size":       150,
					"number_of_fragments": 1,
				},
			},
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search body: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{casesIndex},
		Body:  bytes.NewReader(data),
	}
	resp, err := req.Do(ctx, c.os)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return nil, fmt.Errorf("search failed: %s", resp.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID        string  `json:"_id"`
				Score     float64 `json:"_score"`
				Source    caseDoc `json:"_source"`
				Highlight struct {
					Content []string `json:"content"`
				} `json:"highlight"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := make([]*models.SearchResult, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		score := hit.Score
		res := &models.SearchResult{
			Case: models.Case{
				ID:            hit.ID,
				Title:         hit.Source.Title,
				ReporterCite:  hit.Source.ReporterCite,
				CourtName:     hit.Source.CourtName,
				CitationCount: hit.Source.CitationCount,
			},
			Score:        score,
			LexicalScore: &score,
		}
		if hit.Source.DecisionDate != "" {
			if t, err := time.Parse("2006-01-02", hit.Source.DecisionDate); err == nil {
				res.Case.DecisionDate = &t
			}
		}
		if len(hit.Highlight.Content) > 0 {
			res.Snippet = hit.Highlight.Content[0]
		}
		results = append(results, res)
	}
	return results, nil
}
