package web

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"membershipPortal/internal/auth"
	"membershipPortal/internal/logging"
	"membershipPortal/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const requestIDHeader = "X-Request-ID"

// requestLogger tags each request with an id and logs it when done.
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header(requestIDHeader, rid)
		l := log.With().Str("request_id", rid).Logger()
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), l))

		c.Next()

		code := c.Writer.Status()
		ev := l.Info()
		if code >= http.StatusInternalServerError {
			ev = l.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", code).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// instrument records Prometheus request metrics labelled by route.
func instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.IncInFlight()
		defer metrics.DecInFlight()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// authenticate attaches the session principal, if any, to the request context.
func (h *Handler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := auth.ParseFromRequest(c.Request, h.opts.CookieName, h.opts.Secret)
		if err == nil {
			c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) (*auth.Principal, bool) {
	return auth.FromContext(c.Request.Context())
}

// requireMember applies the member access policy: anonymous callers are
// sent to the login page, authenticated non-members get 403.
func (h *Handler) requireMember() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := principalFrom(c); !ok {
			c.Redirect(http.StatusSeeOther, "/member/login?return_url="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		if _, err := auth.RequireMember(c.Request.Context(), h.Agents); err != nil {
			if status.Code(err) == codes.PermissionDenied {
				h.renderStatus(c, http.StatusForbidden, "Only members can access this page.")
				return
			}
			h.fail(c, err)
			return
		}
		c.Next()
	}
}
