package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"eventhub/internal/domain"
)

// maxHits caps a single search response.
const maxHits = 100

// indexMapping keeps location and category exact-match so filters compare whole values.
const indexMapping = `{
  "mappings": {
    "properties": {
      "title":           {"type": "text"},
      "description":     {"type": "text"},
      "start_date":      {"type": "date"},
      "end_date":        {"type": "date"},
      "status":          {"type": "keyword"},
      "assistant_limit": {"type": "integer"},
      "assistant_count": {"type": "integer"},
      "location":        {"type": "keyword"},
      "category":        {"type": "keyword"}
    }
  }
}`

type elasticIndex struct {
	es     *elasticsearch.Client
	index  string
	logger *slog.Logger
}

// NewElasticIndex returns an EventIndex backed by Elasticsearch. The client
// spreads requests over hosts and retries on the next one when a node is unreachable.
// A nil transport uses the client default.
func NewElasticIndex(transport http.RoundTripper, hosts []string, index string, logger *slog.Logger) (domain.EventIndex, error) {
	if len(hosts) == 0 {
		return nil, errors.New("elastic: at least one host is required")
	}
	if index == "" {
		return nil, errors.New("elastic: index name is required")
	}
	addrs := make([]string, 0, len(hosts))
	for _, h := range hosts {
		addrs = append(addrs, strings.TrimRight(h, "/"))
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  addrs,
		Transport:  transport,
		MaxRetries: len(hosts),
	})
	if err != nil {
		return nil, fmt.Errorf("elastic: create client: %w", err)
	}
	return &elasticIndex{es: es, index: index, logger: logger.With("component", "elastic")}, nil
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func EnsureIndex(ctx context.Context, idx domain.EventIndex) error {
	e, ok := idx.(*elasticIndex)
	if !ok {
		return nil
	}
	res, err := e.es.Indices.Exists([]string{e.index}, e.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elastic: check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = e.es.Indices.Create(e.index,
		e.es.Indices.Create.WithContext(ctx),
		e.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("elastic: create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		if !bytes.Contains(body, []byte("resource_already_exists_exception")) {
			return fmt.Errorf("elastic: create index returned status %d: %s", res.StatusCode, body)
		}
	}
	e.logger.InfoContext(ctx, "search index ready", "index", e.index)
	return nil
}

func (e *elasticIndex) Index(ctx context.Context, doc *domain.EventDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode event document: %w", err)
	}
	res, err := e.es.Index(e.index, bytes.NewReader(body),
		e.es.Index.WithContext(ctx),
		e.es.Index.WithDocumentID(doc.ID),
		e.es.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("elastic: index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return statusError("index", res)
	}
	return nil
}

func (e *elasticIndex) Remove(ctx context.Context, id string) error {
	res, err := e.es.Delete(e.index, id,
		e.es.Delete.WithContext(ctx),
		e.es.Delete.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("elastic: delete: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return statusError("delete", res)
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

func (e *elasticIndex) Search(ctx context.Context, text string, filter domain.SearchFilter) ([]string, error) {
	body, err := json.Marshal(buildQuery(text, filter))
	if err != nil {
		return nil, fmt.Errorf("failed to encode search query: %w", err)
	}
	res, err := e.es.Search(
		e.es.Search.WithContext(ctx),
		e.es.Search.WithIndex(e.index),
		e.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("elastic: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, statusError("search", res)
	}
	var data searchResponse
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	ids := make([]string, 0, len(data.Hits.Hits))
	for _, h := range data.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

func statusError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(res.Body)
	return fmt.Errorf("elastic: %s returned status %d: %s", op, res.StatusCode, body)
}

func buildQuery(text string, f domain.SearchFilter) map[string]any {
	var must []any
	if t := strings.TrimSpace(text); t != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  t,
				"fields": []string{"title^2", "description"},
			},
		})
	} else {
		must = append(must, map[string]any{"match_all": map[string]any{}})
	}

	var filters []any
	if f.AssistantLimit != nil {
		filters = append(filters, term("assistant_limit", *f.AssistantLimit))
	}
	if r := rangeOf(f.StartDateFrom, f.StartDateTo); r != nil {
		filters = append(filters, map[string]any{"range": map[string]any{"start_date": r}})
	}
	if r := rangeOf(f.AssistantCountMin, f.AssistantCountMax); r != nil {
		filters = append(filters, map[string]any{"range": map[string]any{"assistant_count": r}})
	}
	if f.Location != "" {
		filters = append(filters, term("location", f.Location))
	}
	if f.Category != "" {
		filters = append(filters, term("category", f.Category))
	}

	boolQuery := map[string]any{"must": must}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	return map[string]any{
		"size":    maxHits,
		"_source": false,
		"query":   map[string]any{"bool": boolQuery},
	}
}

func term(field string, value any) map[string]any {
	return map[string]any{"term": map[string]any{field: value}}
}

func rangeOf[T any](from, to *T) map[string]any {
	if from == nil && to == nil {
		return nil
	}
	r := map[string]any{}
	if from != nil {
		r["gte"] = *from
	}
	if to != nil {
		r["lte"] = *to
	}
	return r
}

type noopIndex struct{}

// NewNoopIndex returns an EventIndex that stores nothing and finds nothing.
func NewNoopIndex() domain.EventIndex {
	return noopIndex{}
}

func (noopIndex) Search(context.Context, string, domain.SearchFilter) ([]string, error) {
	return []string{}, nil
}

func (noopIndex) Index(context.Context, *domain.EventDocument) error { return nil }

func (noopIndex) Remove(context.Context, string) error { return nil }
