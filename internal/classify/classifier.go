package classify

import (
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-processor/constants"
)

var (
	ErrUntrained  = errors.New("classifier model is not trained")
	ErrNoFeatures = errors.New("text has no known features")
)

// Prediction is a vendor guess with a confidence in [0,1].
type Prediction struct {
	Name       string
	Confidence float64
	Method     string
}

func unknown() Prediction {
	return Prediction{Name: constants.UnknownVendor, Confidence: 0, Method: constants.VendorMethodNone}
}

// Classifier is a primary vendor model that may fail.
type Classifier interface {
	Predict(text string) (Prediction, error)
}

// Chain runs the primary model and falls back to fuzzy matching when the model
// is absent, fails, or is not confident enough. Predict never fails.
type Chain struct {
	primary       Classifier
	fallback      *FuzzyMatcher
	fallbackBelow float64
	logger        *slog.Logger
}

func NewChain(primary Classifier, fallback *FuzzyMatcher, fallbackBelow float64, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	if fallback == nil {
		fallback = NewFuzzyMatcher(nil, 0)
	}
	return &Chain{
		primary:       primary,
		fallback:      fallback,
		fallbackBelow: fallbackBelow,
		logger:        logger,
	}
}

func (c *Chain) Predict(text string) Prediction {
	start := time.Now()
	if isBlank(text) {
		return unknown()
	}

	var primary Prediction
	havePrimary := false
	if c.primary != nil {
		p, err := c.primary.Predict(text)
		switch {
		case err != nil:
			c.logger.Debug("classify.model.failed", "err", err)
		case p.Confidence < c.fallbackBelow:
			c.logger.Debug("classify.model.low_confidence", "vendor", p.Name, "confidence", p.Confidence)
			primary, havePrimary = p, true
		default:
			c.logger.Debug("classify.model.ok", "vendor", p.Name, "confidence", p.Confidence,
				"elapsed_ms", time.Since(start).Milliseconds())
			return p
		}
	}

	fb := c.fallback.Predict(text)
	if havePrimary && primary.Confidence > fb.Confidence {
		return primary
	}
	c.logger.Debug("classify.fuzzy.ok", "vendor", fb.Name, "confidence", fb.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds())
	return fb
}
