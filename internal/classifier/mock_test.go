package classifier_test

import (
	"context"

	"github.com/calvin-seamons/shadowscribe/internal/classifier"
)

// stubBackend is a fixed-response L1Backend for tests.
type stubBackend struct {
	probs map[classifier.Label]float64
	err   error
}

func (s *stubBackend) Probabilities(_ context.Context, _ string) (map[classifier.Label]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.probs, nil
}
