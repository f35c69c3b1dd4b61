package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/notification"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/user"
	"github.com/xenking/storefront/internal/hosting"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks request decoding failures.
var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	OrderID string `json:"orderId,omitempty"`
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Code: status, Message: msg})
}

// writeError maps domain errors to HTTP statuses. Anything unrecognized is a
// 500 carrying the error message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	resp := errorResponse{Code: status, Message: err.Error()}

	var subErr *order.SubmissionError
	if errors.As(err, &subErr) {
		resp.OrderID = subErr.OrderID
	}

	lg := zctx.From(r.Context())
	if status >= http.StatusInternalServerError {
		lg.Error("Request failed", zap.Error(err))
	} else {
		lg.Debug("Request rejected", zap.Int("status", status), zap.Error(err))
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}

func statusOf(err error) int {
	var (
		catalogErr *catalog.ValidationError
		couponErr  *coupon.ValidationError
		userErr    *user.ValidationError
		lineErr    *cart.InvalidLineError
		domainErr  *cart.InvalidDomainError
	)
	switch {
	case errors.Is(err, errBadRequest),
		errors.As(err, &catalogErr),
		errors.As(err, &couponErr),
		errors.As(err, &userErr),
		errors.As(err, &lineErr),
		errors.As(err, &domainErr),
		errors.Is(err, notification.ErrInvalidEmail),
		errors.Is(err, notification.ErrNameRequired),
		errors.Is(err, hosting.ErrKeywordTooShort),
		errors.Is(err, order.ErrClientIDRequired),
		errors.Is(err, order.ErrNothingToOrder):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, catalog.ErrTypeNotFound),
		errors.Is(err, catalog.ErrCrossSellNotFound),
		errors.Is(err, coupon.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, user.ErrDuplicateEmail),
		errors.Is(err, notification.ErrDuplicateEmail),
		errors.Is(err, coupon.ErrDuplicateCode),
		errors.Is(err, catalog.ErrDuplicateTypeName):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into v. Failures wrap errBadRequest.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := render.DecodeJSON(body, v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.Wrap(errBadRequest, "empty body")
		}
		return errors.Wrapf(errBadRequest, "decode body: %v", err)
	}
	return nil
}
