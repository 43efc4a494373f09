package es

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"edu-archive-go/internal/config"
	"edu-archive-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  string
	body   string
}

type fakeES struct {
	mu       sync.Mutex
	requests []recorded
	handler  func(w http.ResponseWriter, r *http.Request, body string)
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: string(body)})
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	f.handler(w, r, string(body))
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body string)) (*Client, *fakeES) {
	t.Helper()
	fake := &fakeES{handler: handler}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.ElasticsearchConfig{Addresses: srv.URL, IndexName: "archive_test", Timeout: 2 * time.Second})
	require.NoError(t, err)
	return c, fake
}

func TestEnsureIndex_CreatesWhenMissing(t *testing.T) {
	c, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	})

	require.NoError(t, c.EnsureIndex(context.Background()))
	require.Len(t, fake.requests, 2)
	assert.Equal(t, http.MethodPut, fake.requests[1].method)
	assert.Equal(t, "/archive_test", fake.requests[1].path)
	assert.Contains(t, fake.requests[1].body, `"tags":              { "type": "keyword" }`)
}

func TestEnsureIndex_Exists(t *testing.T) {
	c, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, c.EnsureIndex(context.Background()))
	assert.Len(t, fake.requests, 1)
}

func TestUpsert_PutsProjectionByID(t *testing.T) {
	c, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	entry := model.SearchIndexEntry{ID: 42, Title: "Urgent memo", Tags: []string{"urgent"}, Category: "Finance"}
	require.NoError(t, c.Upsert(context.Background(), entry))

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/archive_test/_doc/42", req.path)
	assert.Contains(t, req.query, "refresh=true")

	var got model.SearchIndexEntry
	require.NoError(t, json.Unmarshal([]byte(req.body), &got))
	assert.Equal(t, entry, got)
}

func TestUpsert_Error(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"unavailable"}`))
	})
	assert.Error(t, c.Upsert(context.Background(), model.SearchIndexEntry{ID: 1}))
}

func TestDelete_NotFoundIsSuccess(t *testing.T) {
	c, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"not_found"}`))
	})
	require.NoError(t, c.Delete(context.Background(), 9))
	assert.Equal(t, "/archive_test/_doc/9", fake.requests[0].path)
	assert.Equal(t, http.MethodDelete, fake.requests[0].method)
}

func TestPurge(t *testing.T) {
	c, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		_, _ = w.Write([]byte(`{"deleted":3}`))
	})
	require.NoError(t, c.Purge(context.Background()))
	assert.Equal(t, "/archive_test/_delete_by_query", fake.requests[0].path)
	assert.Contains(t, fake.requests[0].body, "match_all")
}

func TestSearch_ParsesHitsAndBuildsFilters(t *testing.T) {
	c, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		_, _ = w.Write([]byte(`{
			"hits": {
				"total": {"value": 17, "relation": "eq"},
				"hits": [
					{"_id": "42", "_score": 3.5, "highlight": {"title": ["<mark>Urgent</mark> memo"]}},
					{"_id": "bogus", "_score": 1.0},
					{"_id": "7", "_score": 1.2}
				]
			}
		}`))
	})

	page, err := c.Search(context.Background(), model.SearchQuery{
		Text: "urgent", Category: "Finance", Tag: "budget", Limit: 10, Offset: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(17), page.Total)
	require.Len(t, page.Hits, 2)
	assert.Equal(t, uint(42), page.Hits[0].ID)
	assert.Equal(t, []string{"<mark>Urgent</mark> memo"}, page.Hits[0].Highlights["title"])
	assert.Equal(t, uint(7), page.Hits[1].ID)

	require.Len(t, fake.requests, 1)
	assert.Equal(t, "/archive_test/_search", fake.requests[0].path)

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(fake.requests[0].body), &sent))
	assert.EqualValues(t, 20, sent["from"])
	assert.EqualValues(t, 10, sent["size"])
	filters := sent["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
	assert.Equal(t, []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"category": "Finance"}},
		map[string]interface{}{"term": map[string]interface{}{"tags": "budget"}},
	}, filters)
}

func TestBuildQuery_EmptyTextMatchesAll(t *testing.T) {
	q := buildQuery(model.SearchQuery{Limit: 5})
	must := q["query"].(map[string]interface{})["bool"].(map[string]interface{})["must"].(map[string]interface{})
	_, ok := must["match_all"]
	assert.True(t, ok)
}
