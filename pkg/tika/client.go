// Package tika 提供了一个与 Apache Tika 服务器交互的客户端。
// 归档系统主要用它做图片与扫描页的 OCR。
package tika

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"edu-archive-go/internal/config"
)

// Client 是 Tika 服务器的客户端。
type Client struct {
	serverURL  string
	language   string
	httpClient *http.Client
}

// NewClient 创建一个新的 Tika 客户端实例，timeout 约束单次请求的最长耗时。
func NewClient(cfg config.TikaConfig, ocr config.OCRConfig) *Client {
	return &Client{
		serverURL:  cfg.ServerURL,
		language:   ocr.Language,
		httpClient: &http.Client{Timeout: ocr.Timeout},
	}
}

// ExtractText 自动根据文件后缀推断 MIME 类型，并调用 Tika 提取文本。
func (c *Client) ExtractText(ctx context.Context, fileReader io.Reader, fileName string) (string, error) {
	return c.put(ctx, fileReader, detectMimeType(fileName))
}

// Recognize 对一张图片执行 OCR，contentType 为图片的媒体类型。
func (c *Client) Recognize(ctx context.Context, image io.Reader, contentType string) (string, error) {
	return c.put(ctx, image, contentType)
}

func (c *Client) put(ctx context.Context, body io.Reader, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.serverURL+"/tika", body)
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Content-Type", contentType)
	if c.language != "" {
		req.Header.Set("X-Tika-OCRLanguage", c.language)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("调用 Tika 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("Tika 返回错误 [%d]: %s", resp.StatusCode, string(body))
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		return "", fmt.Errorf("读取 Tika 响应失败 (耗时 %s): %w", time.Since(start), err)
	}

	return buf.String(), nil
}

// detectMimeType 根据文件扩展名判断 Content-Type
func detectMimeType(fileName string) string {
	ext := filepath.Ext(fileName)
	if ext == "" {
		return "application/octet-stream"
	}
	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		// fallback 默认
		return "application/octet-stream"
	}
	return mimeType
}
