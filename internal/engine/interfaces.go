package engine

import (
	"context"

	"github.com/Veraticus/cashback-counter/internal/model"
)

// Converter turns an amount spent in one region's currency into the billing
// currency of a card issued in another.
type Converter interface {
	ConvertRegion(ctx context.Context, amount float64, spend, issuing model.Region) (float64, error)
}

// identityConverter bills foreign spend at face value. It is used when no
// converter is configured.
type identityConverter struct{}

func (identityConverter) ConvertRegion(_ context.Context, amount float64, _, _ model.Region) (float64, error) {
	return amount, nil
}
