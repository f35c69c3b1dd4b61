// Package cart holds the caller-supplied purchase selection shared by the
// pricing, coupon and order packages.
package cart

import (
	"fmt"
)

// Line is one selected product + package + billing period combination.
type Line struct {
	ProductID    string `json:"productId"`
	PackageName  string `json:"packageName"`
	PeriodMonths int    `json:"period"`
}

// Domain is a domain registration request.
type Domain struct {
	Name  string `json:"domain"`
	Years int    `json:"year"`
}

// InvalidLineError indicates a malformed cart line.
type InvalidLineError struct {
	Index  int
	Reason string
}

func (e *InvalidLineError) Error() string {
	return fmt.Sprintf("invalid cart line %d: %s", e.Index, e.Reason)
}

// InvalidDomainError indicates a malformed domain registration.
type InvalidDomainError struct {
	Name   string
	Reason string
}

func (e *InvalidDomainError) Error() string {
	return fmt.Sprintf("invalid domain %q: %s", e.Name, e.Reason)
}

// Validate checks the shape of lines and domains. It does not consult the
// catalog: lines referencing unknown packages are the pricing engine's concern.
// An empty cart is valid and prices at zero.
func Validate(lines []Line, domains []Domain) error {
	for i, l := range lines {
		switch {
		case l.ProductID == "":
			return &InvalidLineError{Index: i, Reason: "productId required"}
		case l.PeriodMonths < 0:
			return &InvalidLineError{Index: i, Reason: "period must not be negative"}
		}
	}
	for _, d := range domains {
		switch {
		case d.Name == "":
			return &InvalidDomainError{Name: d.Name, Reason: "name required"}
		case d.Years <= 0:
			return &InvalidDomainError{Name: d.Name, Reason: "years must be greater than 0"}
		}
	}
	return nil
}

// ProductIDs returns the distinct product identifiers referenced by lines,
// in first-seen order.
func ProductIDs(lines []Line) []string {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	return ids
}
