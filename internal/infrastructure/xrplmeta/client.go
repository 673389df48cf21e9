package xrplmeta

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"xrplboard/internal/application/port"
	"xrplboard/internal/domain"
)

const (
	DefaultBaseURL  = "https://s1.xrplmeta.org"
	DefaultPriceURL = "https://api.coingecko.com/api/v3/simple/price?ids=ripple&vs_currencies=usd"
)

type Options struct {
	BaseURL   string
	PriceURL  string
	Timeout   time.Duration
	PageSize  int
	TopLimit  int
	MaxTokens int
}

// Client talks to the XRPL Meta token API and a simple-price endpoint for
// XRP/USD.
type Client struct {
	baseURL   string
	priceURL  string
	pageSize  int
	topLimit  int
	maxTokens int
	client    *http.Client
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.PriceURL == "" {
		opts.PriceURL = DefaultPriceURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.TopLimit <= 0 {
		opts.TopLimit = 100
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1000
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		priceURL:  opts.PriceURL,
		pageSize:  opts.PageSize,
		topLimit:  opts.TopLimit,
		maxTokens: opts.MaxTokens,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

// FetchTokens returns one page of the most traded tokens.
func (c *Client) FetchTokens(ctx context.Context) ([]domain.Token, error) {
	tokens, _, _, err := c.fetchPage(ctx, 0, c.topLimit)
	return tokens, err
}

// FetchAllTokens pages through the listing, ordered by 24h volume, until
// MaxTokens are collected or the API runs out.
func (c *Client) FetchAllTokens(ctx context.Context) ([]domain.Token, error) {
	all := make([]domain.Token, 0, c.maxTokens)
	for offset := 0; offset < c.maxTokens; offset += c.pageSize {
		limit := c.pageSize
		if rest := c.maxTokens - offset; rest < limit {
			limit = rest
		}
		page, raw, total, err := c.fetchPage(ctx, offset, limit)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		// entries dropped by fetchPage still count toward the page
		if raw < limit || (total > 0 && offset+raw >= total) {
			break
		}
	}
	log.Debug().Int("tokens", len(all)).Msg("fetched token listing")
	return all, nil
}

// fetchPage returns the usable tokens of one page, the number of entries the
// API actually sent and the listing total it reported.
func (c *Client) fetchPage(ctx context.Context, offset, limit int) ([]domain.Token, int, int, error) {
	q := url.Values{}
	q.Set("sort_by", "volume_24h")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	body, err := c.get(ctx, c.baseURL+"/tokens?"+q.Encode())
	if err != nil {
		return nil, 0, 0, err
	}

	var resp tokensResp
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, 0, 0, fmt.Errorf("decode tokens: %w: %w", port.ErrMalformedPayload, err)
	}
	if resp.Tokens == nil {
		return nil, 0, 0, fmt.Errorf("tokens field missing: %w", port.ErrMalformedPayload)
	}

	out := make([]domain.Token, 0, len(*resp.Tokens))
	for _, t := range *resp.Tokens {
		if t.Currency == "" || t.Issuer == "" {
			continue
		}
		out = append(out, t.toDomain())
	}
	return out, len(*resp.Tokens), resp.Count, nil
}

// FetchXRPPrice returns the XRP/USD price.
func (c *Client) FetchXRPPrice(ctx context.Context) (float64, error) {
	body, err := c.get(ctx, c.priceURL)
	if err != nil {
		return 0, err
	}

	var resp priceResp
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("decode price: %w: %w", port.ErrMalformedPayload, err)
	}
	for _, quotes := range resp {
		if p, ok := quotes["usd"]; ok && p.IsPositive() {
			return p.InexactFloat64(), nil
		}
	}
	return 0, fmt.Errorf("no usd quote in price response: %w", port.ErrMalformedPayload)
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", port.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", port.ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d %s", port.ErrUnexpectedStatus, resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ port.MarketAPI = (*Client)(nil)
