// Package web serves the member back office as server-rendered pages.
package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"membershipPortal/internal/auth"
	"membershipPortal/internal/config"
	"membershipPortal/internal/metrics"
	"membershipPortal/internal/referral"
	"membershipPortal/internal/subscription"
	"membershipPortal/repository"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Deps are the collaborators the pages need.
type Deps struct {
	Agents        repository.AgentRepositoryI
	Wallets       repository.WalletRepositoryI
	Clients       repository.ClientRepositoryI
	Resources     repository.ResourceRepositoryI
	Transactions  repository.TransactionRepositoryI
	Allocator     *referral.Allocator
	Resolver      *referral.Resolver
	Subscriptions *subscription.Service
}

// Options configure sessions.
type Options struct {
	Secret       string
	CookieName   string
	SessionTTL   time.Duration
	SecureCookie bool
	Limiter      *auth.LoginLimiter
}

// Handler implements the page routes.
type Handler struct {
	Deps
	opts  Options
	log   zerolog.Logger
	pages pages
}

func NewHandler(deps Deps, opts Options, log zerolog.Logger) (*Handler, error) {
	p, err := loadPages()
	if err != nil {
		return nil, err
	}
	if opts.CookieName == "" {
		opts.CookieName = "membership_session"
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 12 * time.Hour
	}
	if opts.Limiter == nil {
		opts.Limiter = auth.NewLoginLimiter(0, 1)
	}
	return &Handler{Deps: deps, opts: opts, log: log, pages: p}, nil
}

// Router builds the gin engine with every route.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(
		requestLogger(h.log),
		instrument(),
		gin.CustomRecovery(func(c *gin.Context, rec any) {
			h.fail(c, errors.New("panic recovered"))
		}),
		h.authenticate(),
	)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/member") })

	r.GET("/member/login", h.loginPage)
	r.POST("/member/login", h.login)
	r.POST("/member/logout", h.logout)

	m := r.Group("/member", h.requireMember())
	{
		m.GET("", h.dashboard)

		m.GET("/agents", h.listAgents)
		m.GET("/agents/add", h.addAgentPage)
		m.POST("/agents/add", h.addAgent)
		m.GET("/agents/:id/edit", h.editAgentPage)
		m.POST("/agents/:id/edit", h.editAgent)
		m.GET("/agents/:id/referrer", h.referrerPage)
		m.POST("/agents/:id/referrer", h.changeReferrer)
		m.GET("/agents/:id/downline", h.downline)
		m.GET("/downline", h.downline)
		m.GET("/agents/:id/wallet", h.wallet)
		m.POST("/agents/:id/subscriptions", h.recordSubscription)

		m.GET("/clients", h.listClients)
		m.GET("/clients/add", h.addClientPage)
		m.POST("/clients/add", h.addClient)

		m.GET("/resources", h.listResources)
		m.GET("/resources/add", h.addResourcePage)
		m.POST("/resources/add", h.addResource)
		m.GET("/resources/:id", h.viewResource)
		m.POST("/resources/:id/delete", h.deleteResource)
	}

	r.NoRoute(func(c *gin.Context) { h.renderStatus(c, http.StatusNotFound, "Page not found.") })
	return r
}

// StartHTTP serves handler on the configured address and returns a shutdown function.
func StartHTTP(cfg *config.Config, handler http.Handler, log zerolog.Logger) (func(context.Context) error, error) {
	if cfg == nil {
		panic("config is required")
	}
	addr := cfg.HTTP.Address
	if addr == "" {
		addr = ":8080"
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http serve")
		}
	}()
	log.Info().Str("addr", lis.Addr().String()).Msg("http listening")
	return srv.Shutdown, nil
}
