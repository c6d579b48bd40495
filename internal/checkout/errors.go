package checkout

import "fmt"

// Code tags a rejection so the HTTP layer can pick a response without
// parsing messages.
type Code string

const (
	CodeValidation        Code = "validation"
	CodeCaptchaFailed     Code = "captcha_failed"
	CodeUnauthorized      Code = "unauthorized"
	CodeProductNotFound   Code = "product_not_found"
	CodeProductInactive   Code = "product_inactive"
	CodeVariantUnavail    Code = "variant_not_available"
	CodeInsufficientStock Code = "insufficient_stock"
	CodeVoucherInvalid    Code = "voucher_invalid"
	CodeVoucherLimit      Code = "voucher_usage_limit_reached"
	CodeOrderNotFound     Code = "order_not_found"
	CodeBadTransition     Code = "invalid_status_transition"
	CodeInternal          Code = "internal"
)

// Rejection is an expected business failure with a customer-facing message.
// Everything CreateOrder and UpdateOrderStatus return as an error is either a
// *Rejection or has already been collapsed to the generic internal one.
type Rejection struct {
	Code    Code
	Message string
}

func (r *Rejection) Error() string { return r.Message }

func reject(code Code, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

// errCreateFailed is the generic fallback after rollback; internal detail is
// logged, not surfaced.
var errCreateFailed = &Rejection{Code: CodeInternal, Message: "Failed to create order"}
