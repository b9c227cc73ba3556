package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-processor/constants"
)

const scannedText = `XYZ Traders Inc.
Invoice No: INV123456
Date: 03/29/2024
Total Amount: $1195.00`

type call struct {
	name string
	args []string
}

// stubRunner fakes poppler and tesseract. pdftoppm writes real PNG pages.
type stubRunner struct {
	mu        sync.Mutex
	calls     []call
	pdftotext string
	pages     int
	tesseract string
	failTess  bool
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, call{name: name, args: args})
	s.mu.Unlock()

	switch name {
	case "pdftotext":
		return []byte(s.pdftotext), nil, nil
	case "pdftoppm":
		prefix := args[len(args)-1]
		for i := 1; i <= s.pages; i++ {
			if err := writePNG(prefix + "-" + string(rune('0'+i)) + ".png"); err != nil {
				return nil, []byte(err.Error()), err
			}
		}
		return nil, nil, nil
	case "tesseract":
		if s.failTess {
			return nil, []byte("boom"), errors.New("exit status 1")
		}
		if slices.Contains(args, "tsv") {
			tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
				"5\t1\t1\t1\t1\t1\t0\t0\t10\t10\t90\tInvoice\n" +
				"5\t1\t1\t1\t1\t2\t0\t0\t10\t10\t70\tNo\n" +
				"4\t1\t1\t1\t1\t0\t0\t0\t10\t10\t-1\t\n"
			return []byte(tsv), nil, nil
		}
		return []byte(s.tesseract), nil, nil
	}
	return nil, nil, errors.New("unexpected command " + name)
}

func (s *stubRunner) called(name string) []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []call
	for _, c := range s.calls {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func writePNG(path string) error {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func newTestExtractor(t *testing.T, r Runner, cfg Config) *Extractor {
	t.Helper()
	cfg.ArtifactCacheDir = t.TempDir()
	return NewExtractor(cfg, nil, WithRunner(r))
}

func TestExtractImageUsesPreprocessedPage(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "scan.png")
	require.NoError(t, writePNG(img))

	r := &stubRunner{tesseract: scannedText}
	res, err := newTestExtractor(t, r, Config{}).Extract(context.Background(), img)
	require.NoError(t, err)

	assert.Equal(t, constants.IMAGE, res.SourceType)
	assert.Equal(t, "image-ocr", res.Method)
	assert.Contains(t, res.Text, "INV123456")
	assert.Greater(t, res.Confidence, float32(0.5))

	calls := r.called("tesseract")
	require.Len(t, calls, 1)
	assert.True(t, strings.HasSuffix(calls[0].args[0], "scan-prep.png"), calls[0].args[0])
	assert.Subset(t, calls[0].args, []string{"--psm", "6", "--oem", "3", "-l", "eng"})
}

func TestExtractImageBlendsTSVConfidence(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "scan.jpg")
	require.NoError(t, writePNG(img))

	r := &stubRunner{tesseract: scannedText}
	res, err := newTestExtractor(t, r, Config{EnableTSVConfidence: true, DisablePreprocess: true}).
		Extract(context.Background(), img)
	require.NoError(t, err)

	heur := heuristicConfidence(res.Text)
	assert.InDelta(t, 0.7*0.8+0.3*heur, res.Confidence, 1e-5)
	assert.Equal(t, img, r.called("tesseract")[0].args[0])
}

func TestExtractPDFPrefersEmbeddedText(t *testing.T) {
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "invoice.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("not really a pdf"), 0o644))

	r := &stubRunner{pdftotext: scannedText + "\f"}
	res, err := newTestExtractor(t, r, Config{}).Extract(context.Background(), pdfPath)
	require.NoError(t, err)

	assert.Equal(t, "pdf-text", res.Method)
	assert.Equal(t, 1, res.Pages)
	assert.Contains(t, res.Text, "Total Amount")
	assert.Empty(t, r.called("pdftoppm"))
	assert.NotEmpty(t, res.Warnings, "the unreadable text layer is reported")
}

func TestExtractPDFFallsBackToOCR(t *testing.T) {
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "scan.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4 scanned"), 0o644))

	r := &stubRunner{pdftotext: "  \f", pages: 2, tesseract: scannedText}
	res, err := newTestExtractor(t, r, Config{MaxPages: 5}).Extract(context.Background(), pdfPath)
	require.NoError(t, err)

	assert.Equal(t, "pdf-ocr", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Len(t, r.called("tesseract"), 2)
	assert.Equal(t, 2, strings.Count(res.Text, "INV123456"))
	assert.Subset(t, r.called("pdftoppm")[0].args, []string{"-r", "300", "-l", "5"})
}

func TestExtractPDFOCRFailureIsReported(t *testing.T) {
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "scan.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4"), 0o644))

	r := &stubRunner{pages: 0}
	_, err := newTestExtractor(t, r, Config{DisableTextLayer: true}).Extract(context.Background(), pdfPath)
	require.Error(t, err)
	assert.Empty(t, r.called("pdftotext"))
}

func TestExtractPlainText(t *testing.T) {
	p := filepath.Join(t.TempDir(), "invoice.txt")
	require.NoError(t, os.WriteFile(p, []byte("Invoice No: 1\r\n\r\n\r\n\r\nTotal:   10.00\t"), 0o644))

	res, err := newTestExtractor(t, &stubRunner{}, Config{}).Extract(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "plain-text", res.Method)
	assert.Equal(t, "Invoice No: 1\n\nTotal: 10.00", res.Text)
}

func TestExtractUnsupportedExtension(t *testing.T) {
	_, err := newTestExtractor(t, &stubRunner{}, Config{}).Extract(context.Background(), "invoice.docx")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	in := "Café Total:  €12.00\r\n-----\r\n\r\n\r\n\r\nNext  line  "
	assert.Equal(t, "Caf Total: €12.00\n\nNext line", Normalize(in))
	assert.Equal(t, "", Normalize(""))
}

func TestHeuristicConfidence(t *testing.T) {
	assert.Equal(t, float32(0), heuristicConfidence("   "))
	low := heuristicConfidence("hello")
	high := heuristicConfidence(scannedText)
	assert.Less(t, low, high)
	assert.LessOrEqual(t, high, float32(1))
}

func TestMeanTSVConfidence(t *testing.T) {
	assert.Equal(t, float32(0), meanTSVConfidence("header only\n"))
	assert.InDelta(t, 0.5, meanTSVConfidence("level\tconf\ttext\n5\t40\ta\n5\t60\tb\n4\t-1\t\n"), 1e-6)
}

func TestBlendConfidence(t *testing.T) {
	assert.Equal(t, float32(0.4), blendConfidence(0, 0.4))
	assert.InDelta(t, 0.7*0.9+0.3*0.5, blendConfidence(0.9, 0.5), 1e-6)
	assert.Equal(t, float32(1), blendConfidence(1, 1))
}
