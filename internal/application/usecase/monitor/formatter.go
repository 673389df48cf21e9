package monitor

import (
	"encoding/json"
	"strconv"
	"strings"

	"xrplboard/internal/domain"
)

const (
	ansiReset    = "\033[0m"
	ansiRed      = "\033[31m"
	ansiGreen    = "\033[32m"
	ansiYellow   = "\033[33m"
	ansiDim      = "\033[2m"
	ansiClearEOL = "\033[K"
)

func colorize(s, c string) string { return c + s + ansiReset }

type Formatter struct {
	Top int
}

func NewFormatter(top int) *Formatter {
	if top <= 0 {
		top = 10
	}
	return &Formatter{Top: top}
}

type RenderMode int

const (
	RenderLive RenderMode = iota
	RenderSnapshot
)

func (f *Formatter) Render(snap Snapshot, mode RenderMode) string {
	var sb strings.Builder
	if mode == RenderLive {
		sb.WriteString("\r")
	}

	sb.WriteString(colorize("[XRPL] ", ansiDim))

	xrp := "--"
	if snap.HasPrice {
		xrp = "$" + formatPrice(snap.XRPPrice)
	}
	sb.WriteString("XRP ")
	sb.WriteString(colorize(xrp, ansiYellow))

	for i, t := range domain.Head(snap.Tokens, f.Top) {
		if i == 0 {
			sb.WriteString(colorize("  ||  ", ansiDim))
		} else {
			sb.WriteString(colorize("  |  ", ansiDim))
		}

		col, arrow := ansiYellow, ""
		switch {
		case t.PriceIncreased:
			col, arrow = ansiGreen, "▲"
		case t.PriceDecreased:
			col, arrow = ansiRed, "▼"
		}

		sb.WriteString(t.Code())
		sb.WriteString(" ")
		px := "--"
		if t.PriceUSD > 0 {
			px = "$" + formatPrice(t.PriceUSD)
		}
		sb.WriteString(colorize(px+arrow, col))
	}

	if mode == RenderLive {
		sb.WriteString(ansiClearEOL)
	}
	return sb.String()
}

// formatPrice keeps four significant decimals for sub-unit prices.
func formatPrice(p float64) string {
	switch {
	case p >= 1:
		return strconv.FormatFloat(p, 'f', 2, 64)
	case p >= 0.0001:
		return strconv.FormatFloat(p, 'f', 4, 64)
	default:
		return strconv.FormatFloat(p, 'g', 4, 64)
	}
}

type snapshotToken struct {
	ID        string  `json:"id"`
	PriceUSD  float64 `json:"price_usd"`
	Volume24h float64 `json:"volume_24h"`
}

type snapshotPayload struct {
	XRPPrice float64         `json:"xrp_price"`
	Tokens   []snapshotToken `json:"tokens"`
}

// Payload encodes the snapshot for persistence.
func (f *Formatter) Payload(snap Snapshot) (string, error) {
	p := snapshotPayload{XRPPrice: snap.XRPPrice, Tokens: make([]snapshotToken, 0, len(snap.Tokens))}
	for _, t := range snap.Tokens {
		p.Tokens = append(p.Tokens, snapshotToken{ID: t.ID(), PriceUSD: t.PriceUSD, Volume24h: t.Volume24h})
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
