// Package search queries the product index in Elasticsearch.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/Skotchmaster/storefront/internal/backend"
	"github.com/Skotchmaster/storefront/internal/util"
)

var ErrUnavailable = errors.New("search: unavailable")

type Config struct {
	URL      string
	Username string
	Password string
	Index    string
}

type Client struct {
	es    *elasticsearch.Client
	index string
}

// NewClient connects and checks the cluster answers. An empty URL means
// search is switched off and yields a nil client.
func NewClient(cfg Config, log *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	if log == nil {
		log = slog.Default()
	}
	log.Info("connecting to elasticsearch", "url", cfg.URL, "index", cfg.Index)

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create es client: %w", err)
	}

	res, err := es.Info()
	if err != nil {
		return nil, fmt.Errorf("es info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("es info: %s: %s", res.Status(), strings.TrimSpace(string(body)))
	}

	index := cfg.Index
	if index == "" {
		index = "product"
	}
	return &Client{es: es, index: index}, nil
}

type Query struct {
	Text     string
	Category string
	Page     int
	Size     int
}

type Result struct {
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	TotalPages int               `json:"totalPages"`
	Products   []backend.Product `json:"products"`
}

func buildBody(q Query, from, size int) map[string]any {
	match := map[string]any{
		"multi_match": map[string]any{
			"query":     q.Text,
			"fields":    []string{"name^2", "description"},
			"fuzziness": "AUTO",
		},
	}
	query := match
	if q.Category != "" {
		query = map[string]any{
			"bool": map[string]any{
				"must":   []any{match},
				"filter": []any{map[string]any{"term": map[string]any{"category": q.Category}}},
			},
		}
	}
	return map[string]any{"query": query, "from": from, "size": size}
}

type hit struct {
	Source backend.Product `json:"_source"`
}

func (c *Client) Search(ctx context.Context, q Query) (*Result, error) {
	if c == nil {
		return nil, ErrUnavailable
	}
	from, size := util.Calculate(q.Page, q.Size)
	page := from/size + 1

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildBody(q, from, size)); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct{ Value int64 } `json:"total"`
			Hits  []hit                 `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	prods := make([]backend.Product, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		prods[i] = hit.Source
	}
	return &Result{
		Total:      r.Hits.Total.Value,
		Page:       page,
		TotalPages: util.Pages(r.Hits.Total.Value, size),
		Products:   prods,
	}, nil
}
