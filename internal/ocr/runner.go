package ocr

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"
)

// maxStderrLog bounds how much of a failing tool's stderr is logged.
const maxStderrLog = 4 << 10

// Runner runs an external tool (pdftotext, pdftoppm, tesseract) and returns
// its captured output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// toolRunner runs poppler and tesseract binaries through os/exec.
type toolRunner struct {
	logger *slog.Logger
}

func (r toolRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	start := time.Now()
	err := cmd.Run()
	log := r.logger.With("tool", filepath.Base(name), "elapsed_ms", time.Since(start).Milliseconds())
	if err != nil {
		log.Error("ocr.tool.failed", "args", args, "error", err, "stderr", clip(stderr.Bytes(), maxStderrLog))
		return stdout.Bytes(), stderr.Bytes(), err
	}
	log.Debug("ocr.tool.ok", "stdout_bytes", stdout.Len())
	return stdout.Bytes(), stderr.Bytes(), nil
}

func clip(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
