package ocr

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// preprocess writes a grayscale, contrast-boosted, sharpened copy of img into dir and
// returns its path. On any failure the original path is returned with a warning.
func (e *Extractor) preprocess(img, dir string) (string, []string) {
	if e.cfg.DisablePreprocess {
		return img, nil
	}
	src, err := imaging.Open(img)
	if err != nil {
		e.logger.Warn("ocr.preprocess.open_failed", "path", img, "error", err)
		return img, []string{fmt.Sprintf("preprocess: %v", err)}
	}

	out := imaging.Grayscale(src)
	out = imaging.AdjustContrast(out, 30)
	out = imaging.Sharpen(out, 1.0)

	base := strings.TrimSuffix(filepath.Base(img), filepath.Ext(img))
	dst := filepath.Join(dir, base+"-prep.png")
	if err := imaging.Save(out, dst); err != nil {
		e.logger.Warn("ocr.preprocess.save_failed", "path", dst, "error", err)
		return img, []string{fmt.Sprintf("preprocess: %v", err)}
	}
	return dst, nil
}
