package hosting

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-faster/jx"
)

// Provinces lists provinces.
func (c *Client) Provinces(ctx context.Context) (jx.Raw, error) {
	data, err := c.do(ctx, "list provinces", http.MethodGet, "/locations/province", nil, nil)
	if err != nil {
		return nil, err
	}
	return rawJSON("list provinces", data)
}

// Districts lists the districts of a province.
func (c *Client) Districts(ctx context.Context, province string) (jx.Raw, error) {
	q := url.Values{"province_code_name": {province}}
	data, err := c.do(ctx, "list districts", http.MethodGet, "/locations/districts", q, nil)
	if err != nil {
		return nil, err
	}
	return rawJSON("list districts", data)
}

// Wards lists the wards of a district.
func (c *Client) Wards(ctx context.Context, province, district string) (jx.Raw, error) {
	q := url.Values{
		"province_code_name": {province},
		"district_code_name": {district},
	}
	data, err := c.do(ctx, "list wards", http.MethodGet, "/locations/wards", q, nil)
	if err != nil {
		return nil, err
	}
	return rawJSON("list wards", data)
}
