package classify

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/joseph-ayodele/invoice-processor/constants"
)

const modelVersion = 1

// Sample is one labelled training text.
type Sample struct {
	Text   string
	Vendor string
}

// NaiveBayes is a multinomial naive Bayes vendor model over word unigrams and
// bigrams with Laplace smoothing.
type NaiveBayes struct {
	mu    sync.RWMutex
	model nbModel
}

type nbModel struct {
	Version     int                       `json:"version"`
	Alpha       float64                   `json:"alpha"`
	Classes     []string                  `json:"classes"`
	ClassDocs   map[string]int            `json:"class_docs"`
	ClassTotals map[string]int            `json:"class_totals"`
	TokenCounts map[string]map[string]int `json:"token_counts"`
	VocabSize   int                       `json:"vocab_size"`
	TrainedAt   time.Time                 `json:"trained_at"`

	vocab map[string]struct{}
}

func NewNaiveBayes() *NaiveBayes {
	return &NaiveBayes{model: nbModel{Version: modelVersion, Alpha: 1}}
}

// Train replaces the current model with one fitted on samples.
func (nb *NaiveBayes) Train(samples []Sample) error {
	if len(samples) == 0 {
		return fmt.Errorf("train: no samples")
	}
	m := nbModel{
		Version:     modelVersion,
		Alpha:       1,
		ClassDocs:   map[string]int{},
		ClassTotals: map[string]int{},
		TokenCounts: map[string]map[string]int{},
		vocab:       map[string]struct{}{},
		TrainedAt:   time.Now().UTC(),
	}
	for _, s := range samples {
		if s.Vendor == "" {
			return fmt.Errorf("train: sample without vendor label")
		}
		feats := features(s.Text)
		if len(feats) == 0 {
			continue
		}
		m.ClassDocs[s.Vendor]++
		counts := m.TokenCounts[s.Vendor]
		if counts == nil {
			counts = map[string]int{}
			m.TokenCounts[s.Vendor] = counts
		}
		for _, f := range feats {
			counts[f]++
			m.ClassTotals[s.Vendor]++
			m.vocab[f] = struct{}{}
		}
	}
	if len(m.ClassDocs) == 0 {
		return fmt.Errorf("train: samples contain no usable text")
	}
	for c := range m.ClassDocs {
		m.Classes = append(m.Classes, c)
	}
	slices.Sort(m.Classes)
	m.VocabSize = len(m.vocab)

	nb.mu.Lock()
	nb.model = m
	nb.mu.Unlock()
	return nil
}

// Trained reports whether the model has at least one class.
func (nb *NaiveBayes) Trained() bool {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	return len(nb.model.Classes) > 0
}

// Classes returns the vendor labels known to the model.
func (nb *NaiveBayes) Classes() []string {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	return slices.Clone(nb.model.Classes)
}

// Predict returns the most probable vendor and its posterior probability.
// Features outside the training vocabulary are ignored.
func (nb *NaiveBayes) Predict(text string) (Prediction, error) {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	m := &nb.model

	if len(m.Classes) == 0 {
		return Prediction{}, ErrUntrained
	}
	var known []string
	for _, f := range features(text) {
		if _, ok := m.vocab[f]; ok {
			known = append(known, f)
		}
	}
	if len(known) == 0 {
		return Prediction{}, ErrNoFeatures
	}

	totalDocs := 0
	for _, n := range m.ClassDocs {
		totalDocs += n
	}
	scores := make([]float64, len(m.Classes))
	denomVocab := m.Alpha * float64(m.VocabSize)
	for i, c := range m.Classes {
		score := math.Log(float64(m.ClassDocs[c]) / float64(totalDocs))
		denom := float64(m.ClassTotals[c]) + denomVocab
		counts := m.TokenCounts[c]
		for _, f := range known {
			score += math.Log((float64(counts[f]) + m.Alpha) / denom)
		}
		scores[i] = score
	}

	best := 0
	for i := range scores {
		if scores[i] > scores[best] {
			best = i
		}
	}
	// softmax relative to the best score keeps exp() in range
	var sum float64
	for _, s := range scores {
		sum += math.Exp(s - scores[best])
	}
	return Prediction{
		Name:       m.Classes[best],
		Confidence: 1 / sum,
		Method:     constants.VendorMethodModel,
	}, nil
}

// Save writes the model as JSON, replacing path atomically.
func (nb *NaiveBayes) Save(path string) error {
	nb.mu.RLock()
	data, err := json.MarshalIndent(&nb.model, "", "  ")
	nb.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace model: %w", err)
	}
	return nil
}

// LoadNaiveBayes reads a model written by Save.
func LoadNaiveBayes(path string) (*NaiveBayes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var m nbModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	if m.Version != modelVersion {
		return nil, fmt.Errorf("model %s: unsupported version %d", path, m.Version)
	}
	if m.Alpha <= 0 {
		m.Alpha = 1
	}
	m.vocab = map[string]struct{}{}
	for _, counts := range m.TokenCounts {
		for f := range counts {
			m.vocab[f] = struct{}{}
		}
	}
	m.VocabSize = len(m.vocab)
	slices.Sort(m.Classes)
	return &NaiveBayes{model: m}, nil
}

var _ Classifier = (*NaiveBayes)(nil)
