package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"edu-archive-go/internal/config"
	"edu-archive-go/pkg/tika"
)

// ErrOCRUnavailable 表示没有可用的 OCR 引擎。
var ErrOCRUnavailable = errors.New("ocr engine unavailable")

// ErrRendererUnavailable 表示无法把 PDF 页面渲染成图片。
var ErrRendererUnavailable = errors.New("pdf renderer unavailable")

// Recognizer 对一张图片执行 OCR。
type Recognizer interface {
	Recognize(ctx context.Context, image io.Reader, contentType string) (string, error)
}

// PageRenderer 把 PDF 的指定页渲染为 PNG。pages 为 nil 时渲染全部页面。
type PageRenderer interface {
	RenderPages(ctx context.Context, pdfPath string, pages []int) ([][]byte, error)
}

// NoopRecognizer 在 OCR 被禁用时使用。
type NoopRecognizer struct{}

func (NoopRecognizer) Recognize(context.Context, io.Reader, string) (string, error) {
	return "", ErrOCRUnavailable
}

type unavailableRenderer struct{}

func (unavailableRenderer) RenderPages(context.Context, string, []int) ([][]byte, error) {
	return nil, ErrRendererUnavailable
}

// NewRecognizer 根据配置选择 OCR 引擎。
func NewRecognizer(ocr config.OCRConfig, tikaClient *tika.Client) Recognizer {
	switch strings.ToLower(ocr.Engine) {
	case "tika":
		if tikaClient == nil {
			return NoopRecognizer{}
		}
		return tikaClient
	case "tesseract":
		return &TesseractRecognizer{Command: ocr.TesseractCommand, Language: ocr.Language, Timeout: ocr.Timeout}
	default:
		return NoopRecognizer{}
	}
}

// TesseractRecognizer 调用本地 tesseract 命令行。
type TesseractRecognizer struct {
	Command  string
	Language string
	Timeout  time.Duration
}

func (t *TesseractRecognizer) Recognize(ctx context.Context, image io.Reader, contentType string) (string, error) {
	tmp, err := os.CreateTemp("", "ocr-*"+imageExt(contentType))
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, image); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	args := []string{tmp.Name(), "stdout"}
	if t.Language != "" {
		args = append(args, "-l", t.Language)
	}
	out, err := runBounded(ctx, t.Timeout, t.Command, args...)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// PdftoppmRenderer 使用 poppler 的 pdftoppm 渲染页面。
type PdftoppmRenderer struct {
	Command string
	DPI     int
	Timeout time.Duration
}

// NewPdftoppmRenderer 由配置创建渲染器，命令为空时返回 nil。
func NewPdftoppmRenderer(cfg config.PDFRender) PageRenderer {
	if cfg.Command == "" {
		return nil
	}
	return &PdftoppmRenderer{Command: cfg.Command, DPI: cfg.DPI, Timeout: cfg.Timeout}
}

func (r *PdftoppmRenderer) RenderPages(ctx context.Context, pdfPath string, pages []int) ([][]byte, error) {
	dir, err := os.MkdirTemp("", "pdf-render-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	dpi := strconv.Itoa(r.dpi())
	if pages == nil {
		prefix := filepath.Join(dir, "page")
		if _, err := runBounded(ctx, r.Timeout, r.Command, "-r", dpi, "-png", pdfPath, prefix); err != nil {
			return nil, err
		}
		return readPNGs(dir)
	}

	images := make([][]byte, 0, len(pages))
	for _, p := range pages {
		n := strconv.Itoa(p)
		prefix := filepath.Join(dir, "page-"+n)
		if _, err := runBounded(ctx, r.Timeout, r.Command, "-r", dpi, "-png", "-f", n, "-l", n, "-singlefile", pdfPath, prefix); err != nil {
			return images, err
		}
		data, err := os.ReadFile(prefix + ".png")
		if err != nil {
			return images, err
		}
		images = append(images, data)
	}
	return images, nil
}

func (r *PdftoppmRenderer) dpi() int {
	if r.DPI <= 0 {
		return 300
	}
	return r.DPI
}

func readPNGs(dir string) ([][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".png") {
			names = append(names, e.Name())
		}
	}
	// pdftoppm 按总页数补零，字典序即页序
	sort.Strings(names)
	images := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return images, err
		}
		images = append(images, data)
	}
	return images, nil
}

// runBounded 在超时约束下执行外部命令并返回 stdout。
func runBounded(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s timed out: %w", name, ctx.Err())
		}
		return nil, fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func imageExt(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/tiff":
		return ".tif"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	default:
		return ""
	}
}
