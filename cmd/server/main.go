package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"membershipPortal/internal/auth"
	"membershipPortal/internal/config"
	"membershipPortal/internal/db"
	grpcserver "membershipPortal/internal/grpc"
	"membershipPortal/internal/logging"
	"membershipPortal/internal/referral"
	"membershipPortal/internal/subscription"
	"membershipPortal/internal/web"
	"membershipPortal/repository"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.LoadWithDefaults()
	if err != nil {
		bootLog := logging.New("info", false)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.Logging.Level, cfg.Logging.Pretty)
	logging.SetDefault(log)
	log.Info().Str("config", cfg.String()).Msg("configuration loaded")

	// Open DB
	d, err := db.Open(cfg.Database.Driver, cfg.Database.DSN, db.WithLogger(log))
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	defer func() {
		if err := db.Close(d); err != nil {
			log.Error().Err(err).Msg("close db")
		}
	}()

	agents := repository.NewAgentRepository(d)
	txs := repository.NewTransactionRepository(d)
	resolver := referral.NewResolver(agents)
	subs := subscription.NewService(agents, txs)

	ctx := context.Background()
	created, err := auth.EnsureMember(ctx, agents, cfg.Bootstrap.MemberUser, cfg.Bootstrap.MemberPassword, cfg.Bootstrap.MemberEmail)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap member")
	}
	if created {
		log.Info().Str("user_name", cfg.Bootstrap.MemberUser).Msg("bootstrap member created")
	}

	var sweeper *subscription.Sweeper
	if cfg.Subscriptions.SweepSchedule != "" {
		sweeper, err = subscription.NewSweeper(subs, cfg.Subscriptions.SweepSchedule, log)
		if err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.Subscriptions.SweepSchedule).Msg("schedule subscription sweep")
		}
		sweeper.Start()
	}

	limiter := auth.NewLoginLimiter(cfg.Auth.LoginRatePerMin, cfg.Auth.LoginBurst)
	gin.SetMode(gin.ReleaseMode)
	handler, err := web.NewHandler(web.Deps{
		Agents:        agents,
		Wallets:       repository.NewWalletRepository(d),
		Clients:       repository.NewClientRepository(d),
		Resources:     repository.NewResourceRepository(d),
		Transactions:  txs,
		Allocator:     referral.NewAllocator(cfg.Referral.CodeLength, cfg.Referral.MaxAttempts, cfg.Referral.Backoff),
		Resolver:      resolver,
		Subscriptions: subs,
	}, web.Options{
		Secret:       cfg.Auth.JWTSecret,
		CookieName:   cfg.Auth.CookieName,
		SessionTTL:   cfg.Auth.SessionTTL,
		SecureCookie: cfg.HTTP.SecureCookie,
		Limiter:      limiter,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("load pages")
	}

	stopHTTP, err := web.StartHTTP(cfg, handler.Router(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("start http")
	}

	// Start gRPC
	stopGRPC, err := grpcserver.StartGRPC(cfg, log, &grpcserver.ReferralServer{Agents: agents, Resolver: resolver})
	if err != nil {
		log.Fatal().Err(err).Msg("start grpc")
	}

	// The login limiter table is reset once it grows large.
	janitor := time.NewTicker(5 * time.Minute)
	defer janitor.Stop()

	// Wait for signal
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
wait:
	for {
		select {
		case <-janitor.C:
			limiter.Cleanup(10000)
		case sig := <-sigc:
			log.Info().Str("signal", sig.String()).Msg("shutting down")
			break wait
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := stopHTTP(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := stopGRPC(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("grpc shutdown")
	}
	if sweeper != nil {
		if err := sweeper.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("sweeper shutdown")
		}
	}
}
