// Estimator turns candidate messages and token counts into projected spend.
//
// DESIGN: EstimateFromText counts tokens with tiktoken when the model has a
// known encoding, and falls back to the ~4 chars/token heuristic otherwise
// (Claude models, offline environments). Output tokens are projected at 60%
// of input, which tracks observed agent reply lengths closely enough for
// admission purposes. Precision matters less than never returning zero for
// a non-empty message.
package pricing

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// TokenEstimateRatio is the approximate number of characters per token,
	// used when no exact tokenizer is available for a model.
	TokenEstimateRatio = 4

	// OutputProjectionRatio is the assumed output/input token ratio for a
	// candidate turn whose reply has not been generated yet.
	OutputProjectionRatio = 0.6

	// DefaultFallbackCost is the conservative flat cost assumed when an
	// estimator fails outright. Callers degrade to this instead of blocking
	// bookkeeping on pricing availability.
	DefaultFallbackCost = 0.05
)

// Estimator is the pricing contract consumed by the ledger and the
// admission controller. Implementations must be safe for concurrent use.
type Estimator interface {
	// Estimate prices a turn from exact token counts.
	Estimate(model string, inputTokens, outputTokens int) (float64, error)
	// EstimateFromText prices a candidate turn from its message text,
	// before any tokens have actually been spent.
	EstimateFromText(model, text string) (float64, error)
}

// TableEstimator prices against the static model table. It never fails:
// unknown models get the conservative default pricing and unknown encodings
// get the character heuristic.
type TableEstimator struct {
	mu       sync.Mutex
	encoders map[string]*tiktoken.Tiktoken
}

// NewTableEstimator creates a TableEstimator with an empty encoder cache.
func NewTableEstimator() *TableEstimator {
	return &TableEstimator{encoders: make(map[string]*tiktoken.Tiktoken)}
}

// Estimate prices a turn from token counts.
func (e *TableEstimator) Estimate(model string, inputTokens, outputTokens int) (float64, error) {
	if inputTokens < 0 || outputTokens < 0 {
		return 0, fmt.Errorf("negative token count: input=%d output=%d", inputTokens, outputTokens)
	}
	return CalculateCost(inputTokens, outputTokens, GetModelPricing(model)), nil
}

// EstimateFromText prices a candidate message that has not been sent yet.
func (e *TableEstimator) EstimateFromText(model, text string) (float64, error) {
	input := e.countTokens(model, text)
	output := int(float64(input) * OutputProjectionRatio)
	return CalculateCost(input, output, GetModelPricing(model)), nil
}

// countTokens returns the token count for text, preferring the model's real
// tokenizer and degrading to the character heuristic.
func (e *TableEstimator) countTokens(model, text string) int {
	if len(text) == 0 {
		return 0
	}
	if enc := e.encoderFor(model); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return (len(text) + TokenEstimateRatio - 1) / TokenEstimateRatio
}

// encoderFor returns a cached tiktoken encoder for the model, or nil when
// the model has no known encoding (non-OpenAI models, offline hosts).
func (e *TableEstimator) encoderFor(model string) *tiktoken.Tiktoken {
	e.mu.Lock()
	defer e.mu.Unlock()

	if enc, ok := e.encoders[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Cache the miss so we don't retry the lookup on every message.
		e.encoders[model] = nil
		return nil
	}
	e.encoders[model] = enc
	return enc
}
