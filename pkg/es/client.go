// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"edu-archive-go/internal/config"
	"edu-archive-go/internal/model"
	"edu-archive-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// 高亮标记
const (
	HighlightPre  = "<mark>"
	HighlightPost = "</mark>"
)

// indexMapping 定义归档索引的结构。过滤字段使用 keyword 以支持精确匹配。
const indexMapping = `{
	"settings": {
		"analysis": {
			"analyzer": {
				"archive_text": { "type": "standard" }
			}
		}
	},
	"mappings": {
		"properties": {
			"id":                { "type": "long" },
			"title":             { "type": "text", "analyzer": "archive_text" },
			"content":           { "type": "text", "analyzer": "archive_text" },
			"description":       { "type": "text", "analyzer": "archive_text" },
			"original_filename": { "type": "text", "analyzer": "archive_text" },
			"category":          { "type": "keyword" },
			"period":            { "type": "keyword" },
			"year":              { "type": "integer" },
			"month":             { "type": "integer" },
			"tags":              { "type": "keyword" },
			"uploaded_at":       { "type": "long" },
			"mime_type":         { "type": "keyword" }
		}
	}
}`

// Client 封装了 go-elasticsearch 客户端与目标索引。
type Client struct {
	es      *elasticsearch.Client
	index   string
	timeout time.Duration
}

// NewClient 初始化 Elasticsearch 客户端。Addresses 支持逗号分隔的多个地址。
func NewClient(esCfg config.ElasticsearchConfig) (*Client, error) {
	var addresses []string
	for _, a := range strings.Split(esCfg.Addresses, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addresses = append(addresses, a)
		}
	}
	cfg := elasticsearch.Config{
		Addresses: addresses,
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{es: client, index: esCfg.IndexName, timeout: esCfg.Timeout}, nil
}

// IndexName 返回目标索引名。
func (c *Client) IndexName() string {
	return c.index
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// EnsureIndex 检查索引是否存在，如果不存在则创建它
func (c *Client) EnsureIndex(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		log.Errorf("[ES] 检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()
	// 如果 res.StatusCode 是 200，说明索引已存在
	if res.StatusCode == http.StatusOK {
		log.Infof("[ES] 索引 '%s' 已存在", c.index)
		return nil
	}
	// 如果 res.StatusCode 是 404，说明索引不存在，需要创建
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("[ES] 检查索引 '%s' 是否存在时收到意外的状态码: %d", c.index, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		log.Errorf("[ES] 创建索引 '%s' 失败: %v", c.index, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("[ES] 创建索引 '%s' 时 Elasticsearch 返回错误: %s", c.index, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("[ES] 索引 '%s' 创建成功", c.index)
	return nil
}

// Upsert 以文档 ID 为键整体写入投影。
func (c *Client) Upsert(ctx context.Context, entry model.SearchIndexEntry) error {
	docBytes, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: entry.DocID(),
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index document %s: %s", entry.DocID(), res.String())
	}
	return nil
}

// Delete 删除指定 ID 的索引条目，条目不存在时视为成功。
func (c *Client) Delete(ctx context.Context, id uint) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req := esapi.DeleteRequest{
		Index:      c.index,
		DocumentID: strconv.FormatUint(uint64(id), 10),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("delete document %d: %s", id, res.String())
	}
	return nil
}

// Purge 删除索引中的全部条目，但保留索引本身与映射。
func (c *Client) Purge(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	res, err := c.es.DeleteByQuery(
		[]string{c.index},
		strings.NewReader(`{"query":{"match_all":{}}}`),
		c.es.DeleteByQuery.WithContext(ctx),
		c.es.DeleteByQuery.WithRefresh(true),
		c.es.DeleteByQuery.WithConflicts("proceed"),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("purge index %s: %s", c.index, res.String())
	}
	return nil
}

// buildQuery 构造 bool 查询：全文匹配 + 名称等值过滤 + <mark> 高亮。
func buildQuery(q model.SearchQuery) map[string]interface{} {
	var must interface{}
	if strings.TrimSpace(q.Text) == "" {
		must = map[string]interface{}{"match_all": map[string]interface{}{}}
	} else {
		must = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q.Text,
				"fields": []string{"title^3", "content", "description^2", "original_filename"},
			},
		}
	}

	filters := []interface{}{}
	for _, f := range [][2]string{{"category", q.Category}, {"period", q.Period}, {"tags", q.Tag}} {
		if f[1] != "" {
			filters = append(filters, map[string]interface{}{"term": map[string]interface{}{f[0]: f[1]}})
		}
	}

	return map[string]interface{}{
		"from":    q.Offset,
		"size":    q.Limit,
		"_source": []string{"id"},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filters,
			},
		},
		"highlight": map[string]interface{}{
			"pre_tags":  []string{HighlightPre},
			"post_tags": []string{HighlightPost},
			"fields": map[string]interface{}{
				"title":       map[string]interface{}{"number_of_fragments": 0},
				"description": map[string]interface{}{"number_of_fragments": 0},
				"content":     map[string]interface{}{"fragment_size": 200, "number_of_fragments": 3},
			},
		},
	}
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID        string              `json:"_id"`
			Score     float64             `json:"_score"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search 执行全文检索，只返回命中的文档 ID、得分与高亮片段。
func (c *Client) Search(ctx context.Context, q model.SearchQuery) (*model.SearchPage, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildQuery(q)); err != nil {
		return nil, fmt.Errorf("encode search query: %w", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(&buf),
		c.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		log.Errorf("[ES] Elasticsearch 返回错误, status: %s, body: %s", res.Status(), string(bodyBytes))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	page := &model.SearchPage{Total: parsed.Hits.Total.Value, Hits: make([]model.SearchHit, 0, len(parsed.Hits.Hits))}
	for _, h := range parsed.Hits.Hits {
		id, err := strconv.ParseUint(h.ID, 10, 64)
		if err != nil {
			log.Warnf("[ES] 忽略无法解析的文档 ID: %q", h.ID)
			continue
		}
		page.Hits = append(page.Hits, model.SearchHit{ID: uint(id), Score: h.Score, Highlights: h.Highlight})
	}
	return page, nil
}
