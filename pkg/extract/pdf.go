package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF 逐页提取嵌入文本，没有文本的页面渲染为图片后走 OCR。
// 整个文件无法解析时，所有页面都交给 OCR。
func (e *Extractor) extractPDF(ctx context.Context, path string) Result {
	res := Result{Strategy: StrategyPDF}

	pages, err := readPDFPages(path)
	if err != nil {
		res.warn(fmt.Errorf("parse pdf: %w", err))
		res.Strategy = StrategyPDFOCR
		text, ocrErr := e.ocrPages(ctx, path, nil)
		res.Text = text
		res.warn(ocrErr)
		return res
	}

	var empty []int
	for i, text := range pages {
		if strings.TrimSpace(text) == "" {
			empty = append(empty, i+1)
		}
	}
	if len(empty) == 0 {
		res.Text = strings.Join(pages, "\n")
		return res
	}

	res.Strategy = StrategyPDFOCR
	images, renderErr := e.renderer.RenderPages(ctx, path, empty)
	if renderErr != nil {
		res.warn(fmt.Errorf("render pdf pages: %w", renderErr))
	}
	for i, page := range empty {
		if i >= len(images) {
			break
		}
		text, ocrErr := e.recognizer.Recognize(ctx, bytes.NewReader(images[i]), "image/png")
		if ocrErr != nil {
			res.warn(fmt.Errorf("ocr page %d: %w", page, ocrErr))
			continue
		}
		pages[page-1] = text
	}
	res.Text = strings.Join(pages, "\n")
	return res
}

// ocrPages 渲染指定页（nil 表示全部页）并逐页 OCR。
func (e *Extractor) ocrPages(ctx context.Context, path string, pages []int) (string, error) {
	images, err := e.renderer.RenderPages(ctx, path, pages)
	if err != nil {
		return "", fmt.Errorf("render pdf pages: %w", err)
	}
	var sb strings.Builder
	var firstErr error
	for i, img := range images {
		text, err := e.recognizer.Recognize(ctx, bytes.NewReader(img), "image/png")
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("ocr page %d: %w", i+1, err)
			}
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), firstErr
}

// readPDFPages 返回每一页的纯文本，页码从 1 开始对应下标 0。
func readPDFPages(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	total := r.NumPage()
	pages := make([]string, total)
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages[i-1] = content
	}
	return pages, nil
}
