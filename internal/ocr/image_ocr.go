package ocr

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/invoice-processor/constants"
)

const ImageConfidenceThreshold = 0.6

func (e *Extractor) extractImage(ctx context.Context, path string) (ExtractionResult, error) {
	tmpDir, err := os.MkdirTemp(e.cfg.ArtifactCacheDir, "inv-img-*")
	if err != nil {
		return ExtractionResult{SourceType: constants.IMAGE}, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	src, warn := e.preprocess(path, tmpDir)
	txt, w, err := e.tesseractOCR(ctx, src)
	warn = append(warn, w...)
	if err != nil {
		return ExtractionResult{SourceType: constants.IMAGE, Method: "image-ocr", Warnings: warn}, err
	}
	txt = Normalize(txt)

	conf := heuristicConfidence(txt)
	if e.cfg.EnableTSVConfidence {
		engine, err := e.tesseractTSVConfidence(ctx, src)
		if err != nil {
			warn = append(warn, err.Error())
		}
		conf = blendConfidence(engine, conf)
	}
	if conf < ImageConfidenceThreshold {
		e.logger.Warn("ocr.image.low_confidence", "path", path, "confidence", conf)
	}

	return ExtractionResult{
		Text:       txt,
		Pages:      1,
		SourceType: constants.IMAGE,
		Method:     "image-ocr",
		Language:   e.cfg.TesseractLang,
		Warnings:   warn,
		Confidence: conf,
	}, nil
}

func (e *Extractor) tesseractArgs(path string) []string {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang,
		"--psm", strconv.Itoa(e.cfg.PSM),
		"--oem", strconv.Itoa(e.cfg.OEM),
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	// tesseract <file> stdout -l <lang> --psm 6 --oem 3
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.tesseractArgs(path)...)
	if err != nil {
		return "", []string{string(errb)}, fmt.Errorf("tesseract: %w", err)
	}

	// minor cleanup of obvious line noise
	txt := reBoxNoise.ReplaceAllString(string(out), "")
	return txt, nil, nil
}

// tesseractTSVConfidence returns tesseract's mean word confidence in [0,1].
func (e *Extractor) tesseractTSVConfidence(ctx context.Context, path string) (float32, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, append(e.tesseractArgs(path), "tsv")...)
	if err != nil {
		return 0, fmt.Errorf("tesseract tsv: %w: %s", err, strings.TrimSpace(string(errb)))
	}
	return meanTSVConfidence(string(out)), nil
}

// blendConfidence weights the engine's own score over the text heuristic
// when the engine produced one.
func blendConfidence(engine, heuristic float32) float32 {
	if engine <= 0 {
		return heuristic
	}
	return min(0.7*engine+0.3*heuristic, 1)
}

// meanTSVConfidence averages the conf column of word rows. Rows without a
// recognised word report -1 and are skipped.
func meanTSVConfidence(tsv string) float32 {
	lines := strings.Split(tsv, "\n")
	col := slices.Index(strings.Split(lines[0], "\t"), "conf")
	if col < 0 {
		return 0
	}
	var sum float64
	var words int
	for _, ln := range lines[1:] {
		fields := strings.Split(ln, "\t")
		if len(fields) <= col {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[col]), 64)
		if err != nil || v < 0 {
			continue
		}
		sum += v
		words++
	}
	if words == 0 {
		return 0
	}
	return float32(sum / float64(words) / 100)
}
