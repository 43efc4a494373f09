package extract

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"edu-archive-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeRecognizer struct {
	text  string
	err   error
	calls int
}

func (f *fakeRecognizer) Recognize(_ context.Context, image io.Reader, _ string) (string, error) {
	f.calls++
	_, _ = io.ReadAll(image)
	return f.text, f.err
}

type fakeRenderer struct {
	images   [][]byte
	err      error
	gotPages []int
}

func (f *fakeRenderer) RenderPages(_ context.Context, _ string, pages []int) ([][]byte, error) {
	f.gotPages = pages
	return f.images, f.err
}

type panicRecognizer struct{}

func (panicRecognizer) Recognize(context.Context, io.Reader, string) (string, error) {
	panic("decoder exploded")
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func newTestExtractor(rec Recognizer, ren PageRenderer) *Extractor {
	return NewExtractor(config.ExtractionConfig{MaxChars: 100000, LegacyWordCommand: "definitely-not-installed-antiword"}, rec, ren)
}

func TestExtract_PlainTextHello(t *testing.T) {
	p := writeFile(t, "a.txt", []byte("hello"))
	res := newTestExtractor(nil, nil).Extract(context.Background(), p, "text/plain; charset=utf-8")
	assert.Equal(t, "hello", res.Text)
	assert.Equal(t, StrategyText, res.Strategy)
	assert.False(t, res.Degraded())
}

func TestExtract_PlainTextLossy(t *testing.T) {
	p := writeFile(t, "bad.txt", []byte("ok\xff\xfeend"))
	res := newTestExtractor(nil, nil).Extract(context.Background(), p, "text/plain")
	assert.True(t, strings.HasPrefix(res.Text, "ok"))
	assert.True(t, strings.HasSuffix(res.Text, "end"))
	assert.Contains(t, res.Text, "�")
}

func TestExtract_TruncatesAndTrims(t *testing.T) {
	p := writeFile(t, "long.txt", []byte("  "+strings.Repeat("é", 50)+"  "))
	ex := NewExtractor(config.ExtractionConfig{MaxChars: 10}, nil, nil)
	res := ex.Extract(context.Background(), p, "text/plain")
	assert.Equal(t, strings.Repeat("é", 10), res.Text)
}

func TestExtract_PDFWithoutTextAndNoOCR(t *testing.T) {
	p := writeFile(t, "scan.pdf", []byte("%PDF-1.4 garbage without xref"))
	res := newTestExtractor(nil, nil).Extract(context.Background(), p, MediaPDF)
	assert.Equal(t, "", res.Text)
	assert.True(t, res.Degraded())
}

func TestExtract_PDFFallsBackToOCR(t *testing.T) {
	p := writeFile(t, "scan.pdf", []byte("not really a pdf"))
	rec := &fakeRecognizer{text: "scanned words"}
	ren := &fakeRenderer{images: [][]byte{[]byte("png1"), []byte("png2")}}

	res := newTestExtractor(rec, ren).Extract(context.Background(), p, MediaPDF)
	assert.Equal(t, "scanned words\nscanned words", res.Text)
	assert.Equal(t, StrategyPDFOCR, res.Strategy)
	assert.Nil(t, ren.gotPages, "unparseable pdf renders every page")
	assert.Equal(t, 2, rec.calls)
}

func TestExtract_ImageOCR(t *testing.T) {
	p := writeFile(t, "photo.png", []byte("png"))
	rec := &fakeRecognizer{text: "  Surat Keputusan  "}
	res := newTestExtractor(rec, nil).Extract(context.Background(), p, "image/png")
	assert.Equal(t, "Surat Keputusan", res.Text)
	assert.Equal(t, StrategyImageOCR, res.Strategy)
}

func TestExtract_ImageOCRUnavailable(t *testing.T) {
	p := writeFile(t, "photo.png", []byte("png"))
	res := newTestExtractor(nil, nil).Extract(context.Background(), p, "image/jpeg")
	assert.Empty(t, res.Text)
	require.Len(t, res.Warnings, 1)
	assert.True(t, errors.Is(res.Warnings[0], ErrOCRUnavailable))
}

func TestExtract_RecoversPanic(t *testing.T) {
	p := writeFile(t, "photo.png", []byte("png"))
	res := newTestExtractor(panicRecognizer{}, nil).Extract(context.Background(), p, "image/png")
	assert.Empty(t, res.Text)
	assert.True(t, res.Degraded())
}

func TestExtract_DOCX(t *testing.T) {
	p := filepath.Join(t.TempDir(), "memo.docx")
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?><w:document xmlns:w="urn:w"><w:body>` +
		`<w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve"> world</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Second</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	res := newTestExtractor(nil, nil).Extract(context.Background(), p, MediaDOCX)
	assert.Equal(t, "Hello world\nSecond", res.Text)
}

func TestExtract_XLSX(t *testing.T) {
	p := filepath.Join(t.TempDir(), "budget.xlsx")
	xf := excelize.NewFile()
	require.NoError(t, xf.SetCellValue("Sheet1", "A1", "item"))
	require.NoError(t, xf.SetCellValue("Sheet1", "B1", "amount"))
	require.NoError(t, xf.SetCellValue("Sheet1", "A2", "paper"))
	require.NoError(t, xf.SetCellValue("Sheet1", "B2", 12))
	require.NoError(t, xf.SaveAs(p))
	require.NoError(t, xf.Close())

	res := newTestExtractor(nil, nil).Extract(context.Background(), p, MediaXLSX)
	assert.Equal(t, "item\tamount\npaper\t12", res.Text)
}

func TestExtract_HTML(t *testing.T) {
	p := writeFile(t, "page.html", []byte(`<html><head><style>p{}</style><script>var x=1</script></head>
<body><h1>Notice</h1>
<p>Rapat   dosen</p></body></html>`))
	res := newTestExtractor(nil, nil).Extract(context.Background(), p, "text/html; charset=utf-8")
	assert.Equal(t, "Notice\nRapat dosen", res.Text)
}

func TestExtract_LegacyWordUnavailable(t *testing.T) {
	p := writeFile(t, "old.doc", []byte{0xD0, 0xCF, 0x11, 0xE0})
	res := newTestExtractor(nil, nil).Extract(context.Background(), p, MediaLegacyWord)
	assert.Empty(t, res.Text)
	assert.True(t, res.Degraded())
}

type fakeParser struct {
	text     string
	gotName  string
	gotBytes int
}

func (f *fakeParser) ExtractText(_ context.Context, r io.Reader, fileName string) (string, error) {
	b, _ := io.ReadAll(r)
	f.gotBytes = len(b)
	f.gotName = fileName
	return f.text, nil
}

func TestExtract_LegacyWordFallsBackToParser(t *testing.T) {
	p := writeFile(t, "old.doc", []byte{0xD0, 0xCF, 0x11, 0xE0})
	parser := &fakeParser{text: "Surat Keputusan Rektor"}
	res := newTestExtractor(nil, nil).WithParser(parser).Extract(context.Background(), p, MediaLegacyWord)

	assert.Equal(t, "Surat Keputusan Rektor", res.Text)
	assert.Equal(t, StrategyLegacyWord, res.Strategy)
	assert.Equal(t, "old.doc", parser.gotName)
	assert.Equal(t, 4, parser.gotBytes)
}

func TestExtract_Unsupported(t *testing.T) {
	p := writeFile(t, "blob.bin", []byte{1, 2, 3})
	res := newTestExtractor(nil, nil).Extract(context.Background(), p, "application/octet-stream")
	assert.Empty(t, res.Text)
	assert.Equal(t, StrategyNone, res.Strategy)
	assert.False(t, res.Degraded())
}

func TestExtract_MissingFile(t *testing.T) {
	res := newTestExtractor(nil, nil).Extract(context.Background(), filepath.Join(t.TempDir(), "nope.txt"), "text/plain")
	assert.Empty(t, res.Text)
	assert.True(t, res.Degraded())
}
