package web

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"membershipPortal/internal/logging"
	"membershipPortal/internal/referral"
	"membershipPortal/internal/subscription"

	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, referral.ErrInvalidInput), errors.Is(err, subscription.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, referral.ErrNotFound), errors.Is(err, subscription.ErrAgentNotFound), errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail renders the error page for err. Server errors are logged and their
// detail is withheld from the page.
func (h *Handler) fail(c *gin.Context, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		msg = "Something went wrong. Please try again."
	}
	h.renderStatus(c, code, msg)
}

func (h *Handler) renderStatus(c *gin.Context, code int, msg string) {
	h.render(c, code, "error", gin.H{
		"Title":   http.StatusText(code),
		"Status":  code,
		"Message": msg,
	})
	c.Abort()
}
