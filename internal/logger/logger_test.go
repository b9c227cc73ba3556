package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-processor/internal/common"
)

func TestInitWritesConsoleAndFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	var console bytes.Buffer
	l, closeFn, err := Init(Config{Level: "debug", Format: "json", Dir: dir, Stdout: &console})
	require.NoError(t, err)

	l.Debug("processor.ocr.ok", "pages", 1)
	require.NoError(t, closeFn())

	assert.Contains(t, console.String(), `"msg":"processor.ocr.ok"`)

	data, err := os.ReadFile(filepath.Join(dir, FileName(time.Now())))
	require.NoError(t, err)
	assert.Contains(t, string(data), "processor.ocr.ok")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("whatever"))
}

func TestWithContextAddsRequestID(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	_, _, err := Init(Config{Format: "text", Stdout: &buf})
	require.NoError(t, err)

	ctx := common.WithDocument(common.WithRequestID(context.Background(), "req-42"), "/in/a.pdf")
	WithContext(ctx).Info("hello")
	assert.Contains(t, buf.String(), "request_id=req-42")
	assert.Contains(t, buf.String(), "document=/in/a.pdf")

	buf.Reset()
	WithContext(context.Background()).Info("bare")
	assert.NotContains(t, buf.String(), "request_id")
}
