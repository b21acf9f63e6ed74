package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/chat-billing/services/common/logger"
	"go.uber.org/zap"
)

// Kind classifies an Error for retry decisions.
type Kind string

const (
	KindConfig           Kind = "config"
	KindAuth             Kind = "auth"
	KindMalformedPayload Kind = "malformed_payload"
	KindNotFound         Kind = "not_found"
	KindInvalidInput     Kind = "invalid_input"
	KindInternal         Kind = "internal"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"-"`
	Kind    Kind   `json:"-"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code and message, so wrapped copies
// still satisfy errors.Is against the predefined values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// Retryable reports whether the sender should redeliver.
func (e *Error) Retryable() bool {
	return e.Code >= http.StatusInternalServerError
}

// New creates a new Error
func New(code int, kind Kind, message string, err error) *Error {
	return &Error{Code: code, Kind: kind, Message: message, Err: err}
}

// Wrap returns a copy of base carrying err as its cause.
func Wrap(base *Error, err error) *Error {
	cp := *base
	cp.Err = err
	return &cp
}

// Webhook error taxonomy.
var (
	ErrWebhookSecretMissing = New(http.StatusInternalServerError, KindConfig, "webhook_secret_missing", nil)
	ErrInvalidSignature     = New(http.StatusBadRequest, KindAuth, "invalid_signature", nil)
	ErrInvalidPayload       = New(http.StatusBadRequest, KindMalformedPayload, "invalid_payload", nil)
	ErrWebhookFailed        = New(http.StatusInternalServerError, KindInternal, "webhook_failed", nil)
)

// Checkout and account errors.
var (
	ErrPriceNotConfigured  = New(http.StatusInternalServerError, KindConfig, "price_not_configured", nil)
	ErrStripeNotConfigured = New(http.StatusInternalServerError, KindConfig, "stripe_not_configured", nil)
	ErrInvalidPlan         = New(http.StatusBadRequest, KindInvalidInput, "invalid_plan", nil)
	ErrNoCustomer          = New(http.StatusNotFound, KindNotFound, "no_customer", nil)
	ErrUnauthorized        = New(http.StatusUnauthorized, KindAuth, "unauthorized", nil)
	ErrInternalServer      = New(http.StatusInternalServerError, KindInternal, "internal_error", nil)
)

// As extracts an *Error from err, falling back to an internal error carrying err.
func As(err error) *Error {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(ErrInternalServer, err)
}

// Respond writes err as a JSON error body with its status code.
func Respond(c *gin.Context, err error) {
	appErr := As(err)
	c.AbortWithStatusJSON(appErr.Code, gin.H{"error": appErr.Message})
}

// ErrorMiddleware renders the last error attached with c.Error when the handler
// did not write a response itself. Server-side failures are logged.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		if appErr := As(err); appErr.Code >= http.StatusInternalServerError {
			logger.Error(c, "Request failed", err,
				zap.String("path", c.Request.URL.Path),
				zap.String("code", appErr.Message),
			)
		}
		Respond(c, err)
	}
}
