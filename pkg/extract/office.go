package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractDOCX 读取 DOCX（ZIP+XML）并按段落拼接文本。
func extractDOCX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx zip: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		return parseDOCXXML(rc)
	}
	return "", errors.New("word/document.xml not found in docx")
}

func parseDOCXXML(r io.Reader) (string, error) {
	var sb strings.Builder
	decoder := xml.NewDecoder(r)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			// 保留已解析的部分
			return sb.String(), fmt.Errorf("parse docx xml: %w", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				var content struct {
					Text string `xml:",chardata"`
				}
				if err := decoder.DecodeElement(&content, &el); err == nil {
					sb.WriteString(content.Text)
				}
			}
		case xml.EndElement:
			if el.Name.Local == "p" {
				sb.WriteString("\n")
			}
		}
	}
	return sb.String(), nil
}

// extractXLSX 读取所有工作表，单元格以 tab 分隔、行以换行分隔。
func extractXLSX(path string) (string, error) {
	xf, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer xf.Close()

	var sb strings.Builder
	for _, sheet := range xf.GetSheetList() {
		rows, err := xf.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// extractLegacyWord 调用外部工具（默认 antiword）提取 .doc 文本，受超时约束。
func (e *Extractor) extractLegacyWord(ctx context.Context, path string) (string, error) {
	command := e.cfg.LegacyWordCommand
	if command == "" {
		return e.parseWithFallback(ctx, path, errors.New("legacy word extractor not configured"))
	}
	if _, err := exec.LookPath(command); err != nil {
		return e.parseWithFallback(ctx, path, fmt.Errorf("legacy word extractor %q unavailable: %w", command, err))
	}
	out, err := runBounded(ctx, e.cfg.LegacyWordTimeout, command, path)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// parseWithFallback 在外部工具不可用时交给后备解析器；没有后备时返回 cause。
func (e *Extractor) parseWithFallback(ctx context.Context, path string, cause error) (string, error) {
	if e.parser == nil {
		return "", cause
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if e.cfg.LegacyWordTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.LegacyWordTimeout)
		defer cancel()
	}
	text, err := e.parser.ExtractText(ctx, f, filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("%v; fallback parser: %w", cause, err)
	}
	return text, nil
}

// recognizeFile 直接对图片文件执行 OCR。
func (e *Extractor) recognizeFile(ctx context.Context, path, mediaType string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return e.recognizer.Recognize(ctx, f, mediaType)
}
