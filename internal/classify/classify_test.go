package classify

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-processor/constants"
)

const sampleHeader = `        XYZ Traders Inc.
        456 Trading Ave, Commerce City

        INVOICE

        Invoice No: INV123456
        Date: 03/29/2024`

type stubClassifier struct {
	pred  Prediction
	err   error
	calls int
}

func (s *stubClassifier) Predict(string) (Prediction, error) {
	s.calls++
	return s.pred, s.err
}

func trainedModel(t *testing.T) *NaiveBayes {
	t.Helper()
	nb := NewNaiveBayes()
	require.NoError(t, nb.Train(GenerateTrainingData(constants.KnownVendors(), 10, 42)))
	return nb
}

func TestFeatures(t *testing.T) {
	assert.Equal(t,
		[]string{"hello", "world", "42", "hello world", "world 42"},
		features("Hello, World! 42 x"))
	assert.Nil(t, features("  . , "))
}

func TestNaiveBayesPredict(t *testing.T) {
	nb := trainedModel(t)
	assert.True(t, nb.Trained())
	assert.Len(t, nb.Classes(), len(constants.KnownVendors()))

	tests := []struct {
		text string
		want string
	}{
		{"XYZ Traders Inc.\n456 Trading Ave, Commerce City\nmouse keyboard", "XYZ Traders Inc."},
		{"Global Tech Solutions\n789 Tech Blvd, Innovation District\ncloud storage", "Global Tech Solutions"},
		{"ABC Supplies Ltd.\n123 Supply St, Business Park\ntoner staples", "ABC Supplies Ltd."},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			p, err := nb.Predict(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name)
			assert.Equal(t, constants.VendorMethodModel, p.Method)
			assert.Greater(t, p.Confidence, 0.0)
			assert.LessOrEqual(t, p.Confidence, 1.0)
		})
	}
}

func TestNaiveBayesErrors(t *testing.T) {
	_, err := NewNaiveBayes().Predict("XYZ Traders Inc.")
	assert.ErrorIs(t, err, ErrUntrained)

	_, err = trainedModel(t).Predict("qqqq wwww zzzz")
	assert.ErrorIs(t, err, ErrNoFeatures)

	assert.Error(t, NewNaiveBayes().Train(nil))
	assert.Error(t, NewNaiveBayes().Train([]Sample{{Text: "abc def"}}))
}

func TestNaiveBayesSaveLoad(t *testing.T) {
	nb := trainedModel(t)
	path := filepath.Join(t.TempDir(), "models", "vendor_classifier.json")
	require.NoError(t, nb.Save(path))

	loaded, err := LoadNaiveBayes(path)
	require.NoError(t, err)
	assert.Equal(t, nb.Classes(), loaded.Classes())

	want, err := nb.Predict(sampleHeader)
	require.NoError(t, err)
	got, err := loaded.Predict(sampleHeader)
	require.NoError(t, err)
	assert.Equal(t, want.Name, got.Name)
	assert.InDelta(t, want.Confidence, got.Confidence, 1e-9)

	_, err = LoadNaiveBayes(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestFuzzyMatcher(t *testing.T) {
	m := NewFuzzyMatcher(nil, 0)

	tests := []struct {
		name       string
		text       string
		want       string
		wantMethod string
		minConf    float64
	}{
		{"exact first line", sampleHeader, "XYZ Traders Inc.", constants.VendorMethodFuzzy, 1},
		{"embedded in line", "Bill from: Global Tech Solutions\nInvoice", "Global Tech Solutions", constants.VendorMethodFuzzy, 1},
		{"ocr noise", "ABC Suppl1es Ltd\nInvoice No: 1", "ABC Supplies Ltd.", constants.VendorMethodFuzzy, 0.8},
		{"empty", "", constants.UnknownVendor, constants.VendorMethodNone, 0},
		{"garbage", "qwerty\nzxcvb 123", constants.UnknownVendor, constants.VendorMethodNone, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := m.Predict(tt.text)
			assert.Equal(t, tt.want, p.Name)
			assert.Equal(t, tt.wantMethod, p.Method)
			assert.GreaterOrEqual(t, p.Confidence, tt.minConf)
			if tt.want == constants.UnknownVendor {
				assert.Zero(t, p.Confidence)
			}
		})
	}
}

func TestFuzzyMatcherOnlyLooksAtLeadingLines(t *testing.T) {
	text := strings.Repeat("filler line\n", 6) + "XYZ Traders Inc."
	assert.Equal(t, constants.UnknownVendor, NewFuzzyMatcher(nil, 5).Predict(text).Name)
	assert.Equal(t, "XYZ Traders Inc.", NewFuzzyMatcher(nil, 10).Predict(text).Name)
}

func TestChain(t *testing.T) {
	t.Run("no model uses fuzzy", func(t *testing.T) {
		p := NewChain(nil, nil, 0.5, nil).Predict(sampleHeader)
		assert.Equal(t, "XYZ Traders Inc.", p.Name)
		assert.Equal(t, constants.VendorMethodFuzzy, p.Method)
	})

	t.Run("model failure falls back", func(t *testing.T) {
		stub := &stubClassifier{err: errors.New("boom")}
		p := NewChain(stub, nil, 0.5, nil).Predict(sampleHeader)
		assert.Equal(t, 1, stub.calls)
		assert.Equal(t, "XYZ Traders Inc.", p.Name)
	})

	t.Run("low confidence model loses to better fuzzy match", func(t *testing.T) {
		stub := &stubClassifier{pred: Prediction{Name: "ABC Supplies Ltd.", Confidence: 0.3, Method: constants.VendorMethodModel}}
		p := NewChain(stub, nil, 0.5, nil).Predict(sampleHeader)
		assert.Equal(t, "XYZ Traders Inc.", p.Name)
		assert.Equal(t, constants.VendorMethodFuzzy, p.Method)
	})

	t.Run("low confidence model beats unknown fuzzy", func(t *testing.T) {
		stub := &stubClassifier{pred: Prediction{Name: "ABC Supplies Ltd.", Confidence: 0.3, Method: constants.VendorMethodModel}}
		p := NewChain(stub, nil, 0.5, nil).Predict("qwerty\nzxcvb")
		assert.Equal(t, "ABC Supplies Ltd.", p.Name)
		assert.Equal(t, 0.3, p.Confidence)
	})

	t.Run("confident model wins", func(t *testing.T) {
		stub := &stubClassifier{pred: Prediction{Name: "Fast Retail Corp.", Confidence: 0.9, Method: constants.VendorMethodModel}}
		p := NewChain(stub, nil, 0.5, nil).Predict(sampleHeader)
		assert.Equal(t, "Fast Retail Corp.", p.Name)
	})

	t.Run("blank text skips the model", func(t *testing.T) {
		stub := &stubClassifier{pred: Prediction{Name: "Fast Retail Corp.", Confidence: 0.9}}
		p := NewChain(stub, nil, 0.5, nil).Predict(" \n\t")
		assert.Zero(t, stub.calls)
		assert.Equal(t, constants.UnknownVendor, p.Name)
		assert.Zero(t, p.Confidence)
	})
}

func TestGenerateTrainingData(t *testing.T) {
	vendors := constants.KnownVendors()
	a := GenerateTrainingData(vendors, 10, 42)
	b := GenerateTrainingData(vendors, 10, 42)

	require.Len(t, a, len(vendors)*10)
	assert.Equal(t, a, b)
	for _, s := range a {
		assert.Contains(t, s.Text, s.Vendor)
		assert.Contains(t, s.Text, "Items:")
	}
	assert.NotEqual(t, a, GenerateTrainingData(vendors, 10, 7))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("xyz traders inc", "XYZ Traders Inc."))
	assert.Less(t, Similarity("Fast Retail Corp.", "XYZ Traders Inc."), 0.6)
}
