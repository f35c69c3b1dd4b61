package hosting

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// rawJSON checks that data is a single JSON value.
func rawJSON(op string, data []byte) (jx.Raw, error) {
	if !jx.Valid(data) {
		return nil, errors.Errorf("%s: response is not valid JSON", op)
	}
	return jx.Raw(data), nil
}

// scalarAt returns the string or number at path, rendered as a string.
func scalarAt(d *jx.Decoder, path []string) (string, bool, error) {
	if len(path) == 0 {
		switch d.Next() {
		case jx.String:
			s, err := d.Str()
			return s, err == nil, err
		case jx.Number:
			n, err := d.Num()
			return n.String(), err == nil, err
		default:
			return "", false, d.Skip()
		}
	}
	if d.Next() != jx.Object {
		return "", false, d.Skip()
	}

	var (
		val   string
		found bool
	)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if found || string(key) != path[0] {
			return d.Skip()
		}
		v, ok, err := scalarAt(d, path[1:])
		val, found = v, ok
		return err
	})
	return val, found, err
}

// firstScalar returns the first non-empty scalar found at any of paths.
func firstScalar(data []byte, paths ...[]string) (string, bool, error) {
	for _, p := range paths {
		v, ok, err := scalarAt(jx.DecodeBytes(data), p)
		if err != nil {
			return "", false, err
		}
		if ok && v != "" {
			return v, true, nil
		}
	}
	return "", false, nil
}

// priceEntry is an object carrying a buy_price, with the domain it names.
type priceEntry struct {
	domain string
	price  decimal.Decimal
}

// collectPrices walks any JSON value and gathers every object that has a
// buy_price. The upstream returns prices as numbers or numeric strings,
// wrapped in varying envelopes.
func collectPrices(d *jx.Decoder, out *[]priceEntry) error {
	switch d.Next() {
	case jx.Object:
		var (
			e      priceEntry
			priced bool
		)
		if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			switch string(key) {
			case "domain", "name":
				if d.Next() != jx.String {
					return collectPrices(d, out)
				}
				s, err := d.Str()
				e.domain = s
				return err
			case "buy_price":
				p, ok, err := decodeAmount(d)
				e.price, priced = p, ok
				return err
			default:
				return collectPrices(d, out)
			}
		}); err != nil {
			return err
		}
		if priced {
			*out = append(*out, e)
		}
		return nil
	case jx.Array:
		return d.Arr(func(d *jx.Decoder) error {
			return collectPrices(d, out)
		})
	default:
		return d.Skip()
	}
}

func decodeAmount(d *jx.Decoder) (decimal.Decimal, bool, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, false, err
		}
		v, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, false, errors.Wrap(err, "parse buy_price")
		}
		return v, true, nil
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, false, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return decimal.Zero, false, nil
		}
		v, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false, errors.Wrap(err, "parse buy_price")
		}
		return v, true, nil
	default:
		return decimal.Zero, false, d.Skip()
	}
}

// pickPrice selects the entry for domain. A lone entry without a domain
// name is taken as the answer.
func pickPrice(entries []priceEntry, domain string) (decimal.Decimal, bool) {
	for _, e := range entries {
		if strings.EqualFold(e.domain, domain) {
			return e.price, true
		}
	}
	if len(entries) == 1 && entries[0].domain == "" {
		return entries[0].price, true
	}
	return decimal.Zero, false
}
