package port

import (
	"context"

	"xrplboard/internal/domain"
)

// TokenSource serves token listings from the remote API.
type TokenSource interface {
	// FetchAllTokens returns the full listing, ordered by volume.
	FetchAllTokens(ctx context.Context) ([]domain.Token, error)
	// FetchTokens returns a single page of the most traded tokens.
	FetchTokens(ctx context.Context) ([]domain.Token, error)
}

// PriceSource serves the XRP/USD price.
type PriceSource interface {
	FetchXRPPrice(ctx context.Context) (float64, error)
}

type MarketAPI interface {
	TokenSource
	PriceSource
}
