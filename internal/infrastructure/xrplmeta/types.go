package xrplmeta

import (
	"github.com/shopspring/decimal"

	"xrplboard/internal/domain"
)

// tokensResp is the /tokens response. Numeric metrics arrive as decimal
// strings.
type tokensResp struct {
	Tokens *[]tokenResp `json:"tokens"`
	Count  int          `json:"count"`
}

type tokenResp struct {
	Currency string `json:"currency"`
	Issuer   string `json:"issuer"`
	Meta     struct {
		Token struct {
			Name string `json:"name"`
		} `json:"token"`
	} `json:"meta"`
	Metrics struct {
		Price      decimal.Decimal `json:"price"`
		PriceUSD   decimal.Decimal `json:"price_usd"`
		Volume24h  decimal.Decimal `json:"volume_24h"`
		MarketCap  decimal.Decimal `json:"marketcap"`
		Holders    int             `json:"holders"`
		TrustLines int             `json:"trustlines"`
	} `json:"metrics"`
}

func (t tokenResp) toDomain() domain.Token {
	return domain.Token{
		Currency:   t.Currency,
		Issuer:     t.Issuer,
		Name:       t.Meta.Token.Name,
		PriceXRP:   t.Metrics.Price.InexactFloat64(),
		PriceUSD:   t.Metrics.PriceUSD.InexactFloat64(),
		Volume24h:  t.Metrics.Volume24h.InexactFloat64(),
		MarketCap:  t.Metrics.MarketCap.InexactFloat64(),
		Holders:    t.Metrics.Holders,
		TrustLines: t.Metrics.TrustLines,
	}
}

// priceResp is the simple-price shape: {"ripple":{"usd":0.52}}.
type priceResp map[string]map[string]decimal.Decimal
