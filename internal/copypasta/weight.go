package copypasta

import (
	"fmt"
	"strings"
)

// WeightFunc decides how much a message of tokenCount tokens contributes to
// the model. A result <= 0 means the message is not learned.
type WeightFunc interface {
	Weight(tokenCount int) int
}

// TokenCountWeight favours longer messages: weight = token count.
type TokenCountWeight struct{}

func (TokenCountWeight) Weight(tokenCount int) int { return tokenCount }

// ConstantWeight gives every message the same weight.
type ConstantWeight int

func (w ConstantWeight) Weight(int) int { return int(w) }

// ParseWeightFunc maps a config name to a strategy.
func ParseWeightFunc(name string) (WeightFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "length", "tokens":
		return TokenCountWeight{}, nil
	case "constant", "1":
		return ConstantWeight(1), nil
	default:
		return nil, fmt.Errorf("unknown weight function: %s", name)
	}
}
