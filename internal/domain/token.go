package domain

import (
	"encoding/hex"
	"sort"
	"strings"
)

// Token is an XRPL issued currency identified by currency code and issuer.
type Token struct {
	Currency   string  `json:"currency"`
	Issuer     string  `json:"issuer"`
	Name       string  `json:"name,omitempty"`
	PriceXRP   float64 `json:"priceXRP"`
	PriceUSD   float64 `json:"priceUSD"`
	Volume24h  float64 `json:"volume24h"`
	MarketCap  float64 `json:"marketCap,omitempty"`
	Holders    int     `json:"holders,omitempty"`
	TrustLines int     `json:"trustLines,omitempty"`

	PriceIncreased bool `json:"priceIncreased"`
	PriceDecreased bool `json:"priceDecreased"`
}

// TokenID builds the identity key used for price tracking and favorites.
func TokenID(currency, issuer string) string {
	return currency + "-" + issuer
}

func (t Token) ID() string { return TokenID(t.Currency, t.Issuer) }

// Code returns a readable currency code. 160-bit hex codes are decoded to
// ASCII when they hold printable text.
func (t Token) Code() string {
	return DecodeCurrency(t.Currency)
}

func DecodeCurrency(c string) string {
	if len(c) != 40 {
		return c
	}
	b, err := hex.DecodeString(c)
	if err != nil {
		return c
	}
	s := strings.TrimRight(string(b), "\x00")
	if s == "" {
		return c
	}
	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			return c
		}
	}
	return s
}

// Matches reports whether term occurs (case-insensitive) in the currency
// code, the decoded code, the issuer or the name.
func (t Token) Matches(term string) bool {
	q := strings.ToLower(strings.TrimSpace(term))
	if q == "" {
		return true
	}
	for _, f := range []string{t.Currency, t.Code(), t.Issuer, t.Name} {
		if f != "" && strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// SortByVolume orders tokens by 24h volume, highest first. Ties keep their
// incoming order.
func SortByVolume(tokens []Token) {
	sort.SliceStable(tokens, func(i, j int) bool {
		return tokens[i].Volume24h > tokens[j].Volume24h
	})
}

// Head returns at most n leading tokens as a fresh slice.
func Head(tokens []Token, n int) []Token {
	if n < 0 || n > len(tokens) {
		n = len(tokens)
	}
	out := make([]Token, n)
	copy(out, tokens[:n])
	return out
}
