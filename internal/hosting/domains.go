package hosting

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// MinKeywordLength is the shortest keyword accepted for domain suggestions.
const MinKeywordLength = 3

var (
	// ErrKeywordTooShort is returned by Suggest for keywords under MinKeywordLength.
	ErrKeywordTooShort = errors.New("keyword must be at least 3 characters")
	// ErrPriceUnavailable is returned when the availability response carries
	// no buy price for the requested domain.
	ErrPriceUnavailable = errors.New("domain price unavailable")
)

// Suggest returns up to 20 domain name suggestions for keyword.
func (c *Client) Suggest(ctx context.Context, keyword string) (jx.Raw, error) {
	keyword = strings.TrimSpace(keyword)
	if utf8.RuneCountInString(keyword) < MinKeywordLength {
		return nil, ErrKeywordTooShort
	}
	body := struct {
		Keyword string `json:"keyword"`
	}{Keyword: keyword}

	data, err := c.do(ctx, "suggest domains", http.MethodPost, "/domains/generate", url.Values{"limit": {"20"}}, body)
	if err != nil {
		return nil, err
	}
	return rawJSON("suggest domains", data)
}

// ListDomains returns the domain extensions offered on the home page.
func (c *Client) ListDomains(ctx context.Context) (jx.Raw, error) {
	data, err := c.do(ctx, "list domains", http.MethodGet, "/home/domains", nil, nil)
	if err != nil {
		return nil, err
	}
	return rawJSON("list domains", data)
}

// CheckAvailable reports availability and pricing of one or more
// comma-separated domains.
func (c *Client) CheckAvailable(ctx context.Context, domains string) (jx.Raw, error) {
	data, err := c.checkAvailable(ctx, domains)
	if err != nil {
		return nil, err
	}
	return rawJSON("check domains", data)
}

func (c *Client) checkAvailable(ctx context.Context, domains string) ([]byte, error) {
	return c.do(ctx, "check domains", http.MethodGet, "/domains/check/available", url.Values{"domains": {domains}}, nil)
}

// Whois returns the WHOIS record of domain.
func (c *Client) Whois(ctx context.Context, domain string) (jx.Raw, error) {
	data, err := c.do(ctx, "whois", http.MethodGet, "/domains/whois", url.Values{"domain": {domain}}, nil)
	if err != nil {
		return nil, err
	}
	return rawJSON("whois", data)
}

// DomainPrice returns the one-year registration buy price of domain.
func (c *Client) DomainPrice(ctx context.Context, domain string) (decimal.Decimal, error) {
	data, err := c.checkAvailable(ctx, domain)
	if err != nil {
		return decimal.Zero, err
	}

	var entries []priceEntry
	if err := collectPrices(jx.DecodeBytes(data), &entries); err != nil {
		return decimal.Zero, errors.Wrap(err, "decode availability")
	}
	price, ok := pickPrice(entries, domain)
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrPriceUnavailable, "domain %q", domain)
	}
	return price, nil
}
