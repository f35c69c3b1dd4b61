package hosting

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Order item types.
const (
	ItemTypeDomain = "domain"
	ItemTypeNew    = "new"
)

// PaymentMethodTransfer is the only payment method the storefront submits.
const PaymentMethodTransfer = "transfer"

// Contact is the registrant data attached to domain items.
type Contact struct {
	FullName     string `json:"fullname"`
	ContactName  string `json:"contact_name"`
	Organization string `json:"organization"`
	Email        string `json:"email"`
	Country      string `json:"country"`
	Province     string `json:"province"`
	District     string `json:"district"`
	Ward         string `json:"ward"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	Fax          string `json:"fax"`
	Gender       string `json:"gender"`
	IDNumber     string `json:"id_number"`
	TaxCode      string `json:"tax_code"`
	Birthday     string `json:"birthday"`
}

// OrderItem is one line of a hosting order. Domain items embed the contact.
type OrderItem struct {
	*Contact

	ProductID     string          `json:"product_id,omitempty"`
	ProductType   string          `json:"product_type"`
	Domain        string          `json:"domain,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	BillingCycle  int             `json:"billing_cycle"`
	Notes         *string         `json:"notes"`
	OrderItemType string          `json:"order_item_type"`
}

// Order is the payload of an order submission.
type Order struct {
	ClientID       string          `json:"client_id"`
	Amount         decimal.Decimal `json:"amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	OverrideAmount decimal.Decimal `json:"override_amount"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	VATAmount      decimal.Decimal `json:"vat_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaymentMethod  string          `json:"payment_method"`
	Notes          string          `json:"notes"`
	Items          []OrderItem     `json:"order_items"`
}

// ErrMissingField is returned when a response lacks an expected field.
var ErrMissingField = errors.New("response field missing")

// CreateOrder submits o and returns the hosting order ID.
func (c *Client) CreateOrder(ctx context.Context, o *Order) (string, error) {
	if o.Items == nil {
		o.Items = []OrderItem{}
	}
	data, err := c.do(ctx, "create order", http.MethodPost, "/orders", nil, o)
	if err != nil {
		return "", err
	}
	id, ok, err := firstScalar(data, []string{"data", "id"}, []string{"id"}, []string{"data", "order", "id"})
	if err != nil {
		return "", errors.Wrap(err, "decode order")
	}
	if !ok {
		return "", errors.Wrap(ErrMissingField, "order id")
	}
	return id, nil
}

// PaymentLink requests a payment URL for a submitted order.
func (c *Client) PaymentLink(ctx context.Context, orderID string) (string, error) {
	data, err := c.do(ctx, "payment link", http.MethodPost, "/orders/"+orderID+"/payment-link", nil, nil)
	if err != nil {
		return "", err
	}
	link, ok, err := firstScalar(data,
		[]string{"data", "payment_url"},
		[]string{"payment_url"},
		[]string{"data", "url"},
		[]string{"url"},
	)
	if err != nil {
		return "", errors.Wrap(err, "decode payment link")
	}
	if !ok {
		return "", errors.Wrap(ErrMissingField, "payment url")
	}
	return link, nil
}
