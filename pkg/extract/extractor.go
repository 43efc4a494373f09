// Package extract 负责从归档文件中提取可检索的纯文本。
// 提取永远不会向调用方返回错误：失败会被降级为空文本或部分文本，并通过 Warnings 报告。
package extract

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"edu-archive-go/internal/config"
	"edu-archive-go/pkg/log"
)

// 常见媒体类型
const (
	MediaPDF        = "application/pdf"
	MediaDOCX       = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaXLSX       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MediaLegacyWord = "application/msword"
	MediaHTML       = "text/html"
)

// 提取策略名称，用于日志与指标。
const (
	StrategyPDF        = "pdf"
	StrategyPDFOCR     = "pdf+ocr"
	StrategyImageOCR   = "image-ocr"
	StrategyDOCX       = "docx"
	StrategyXLSX       = "xlsx"
	StrategyHTML       = "html"
	StrategyText       = "text"
	StrategyLegacyWord = "legacy-word"
	StrategyNone       = "unsupported"
)

// Result 是一次提取的结果。Warnings 非空表示部分或全部降级。
type Result struct {
	Text     string
	Strategy string
	Warnings []error
}

// Degraded 报告本次提取是否出现过降级。
func (r Result) Degraded() bool {
	return len(r.Warnings) > 0
}

func (r *Result) warn(err error) {
	if err != nil {
		r.Warnings = append(r.Warnings, err)
	}
}

// Extractor 按媒体类型分派提取策略，并在直接提取为空时回退到 OCR。
type Extractor struct {
	cfg        config.ExtractionConfig
	recognizer Recognizer
	renderer   PageRenderer
	parser     DocumentParser
}

// DocumentParser 是通用的文档解析服务（例如 Tika），用作外部工具缺失时的后备。
type DocumentParser interface {
	ExtractText(ctx context.Context, r io.Reader, fileName string) (string, error)
}

// WithParser 为旧版 Word 等依赖外部工具的格式设置后备解析器。
func (e *Extractor) WithParser(p DocumentParser) *Extractor {
	e.parser = p
	return e
}

// NewExtractor 创建 Extractor。recognizer 与 renderer 为 nil 时视为不可用。
func NewExtractor(cfg config.ExtractionConfig, recognizer Recognizer, renderer PageRenderer) *Extractor {
	if recognizer == nil {
		recognizer = NoopRecognizer{}
	}
	if renderer == nil {
		renderer = unavailableRenderer{}
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 100000
	}
	return &Extractor{cfg: cfg, recognizer: recognizer, renderer: renderer}
}

// Extract 提取 path 处文件的文本。结果已去除首尾空白并按字符数截断。
func (e *Extractor) Extract(ctx context.Context, path, mediaType string) (res Result) {
	mt := normalizeMediaType(mediaType)

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[Extractor] 提取过程发生 panic, path: %s, mediaType: %s, panic: %v", path, mt, r)
			res = Result{Strategy: res.Strategy, Warnings: append(res.Warnings, fmt.Errorf("extract panic: %v", r))}
		}
		res.Text = truncateRunes(strings.TrimSpace(res.Text), e.cfg.MaxChars)
	}()

	switch {
	case mt == MediaPDF:
		res = e.extractPDF(ctx, path)
	case strings.HasPrefix(mt, "image/"):
		res.Strategy = StrategyImageOCR
		text, err := e.recognizeFile(ctx, path, mt)
		res.Text = text
		res.warn(err)
	case mt == MediaDOCX:
		res.Strategy = StrategyDOCX
		text, err := extractDOCX(path)
		res.Text = text
		res.warn(err)
	case mt == MediaXLSX:
		res.Strategy = StrategyXLSX
		text, err := extractXLSX(path)
		res.Text = text
		res.warn(err)
	case mt == MediaHTML:
		res.Strategy = StrategyHTML
		text, err := extractHTML(path)
		res.Text = text
		res.warn(err)
	case strings.HasPrefix(mt, "text/"):
		res.Strategy = StrategyText
		text, err := extractPlainText(path)
		res.Text = text
		res.warn(err)
	case mt == MediaLegacyWord:
		res.Strategy = StrategyLegacyWord
		text, err := e.extractLegacyWord(ctx, path)
		res.Text = text
		res.warn(err)
	default:
		res.Strategy = StrategyNone
	}

	for _, w := range res.Warnings {
		log.Warnf("[Extractor] 提取降级, path: %s, strategy: %s, warning: %v", path, res.Strategy, w)
	}
	return res
}

// normalizeMediaType 去除参数并转为小写，例如 "text/plain; charset=utf-8" -> "text/plain"。
func normalizeMediaType(mediaType string) string {
	mt, _, _ := strings.Cut(mediaType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
