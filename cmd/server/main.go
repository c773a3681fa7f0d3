// Command server runs the Crazy Aces session, claim and play server.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/crazyaces/internal/analytics"
	"github.com/jason-s-yu/crazyaces/internal/auth"
	"github.com/jason-s-yu/crazyaces/internal/cache"
	"github.com/jason-s-yu/crazyaces/internal/claim"
	"github.com/jason-s-yu/crazyaces/internal/config"
	"github.com/jason-s-yu/crazyaces/internal/database"
	"github.com/jason-s-yu/crazyaces/internal/logging"
	"github.com/jason-s-yu/crazyaces/internal/mailer"
	"github.com/jason-s-yu/crazyaces/internal/ratelimit"
	"github.com/jason-s-yu/crazyaces/internal/server"
	"github.com/jason-s-yu/crazyaces/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	log := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("Server exited with error")
	}
	log.Info("Server stopped")
}

func run(ctx context.Context, cfg config.Config, log *logrus.Entry) error {
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = randomSecret()
		log.Warn("SESSION_SECRET not set; using a random secret, sessions will not survive a restart")
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		c, err := cache.Connect(ctx, cfg.RedisURL, logging.Component(log, "redis"))
		if err != nil {
			if cfg.LedgerDriver == "redis" {
				return err
			}
			log.WithError(err).Warn("Redis unavailable, falling back to in-memory stores")
		} else {
			rdb = c
			defer rdb.Close()
		}
	}

	var (
		store   session.Store     = session.NewMemoryStore()
		limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter()
		sink    analytics.Sink    = analytics.LogSink{Log: logging.Component(log, "analytics")}
	)
	if rdb != nil {
		store = session.NewRedisStore(rdb)
		limiter = ratelimit.NewRedisLimiter(rdb)
		sink = analytics.NewRedisSink(rdb, analytics.DefaultRedisKey)
	}

	ledger, closeLedger, err := openLedger(ctx, cfg, rdb, log)
	if err != nil {
		return err
	}
	defer closeLedger()

	var sender claim.Sender = mailer.LogSender{Log: logging.Component(log, "mailer")}
	if cfg.SMTP.Host != "" {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	} else if !cfg.IsDevelopment() {
		log.Warn("SMTP_HOST not set; discount emails are only logged")
	}

	queue := analytics.NewQueue(sink, analytics.QueueOptions{
		FlushInterval: cfg.AnalyticsFlushInterval,
		Log:           logging.Component(log, "analytics"),
	})

	authority, err := session.ParseAuthority(cfg.StreakAuthority)
	if err != nil {
		return err
	}
	signer, err := session.NewSigner(cfg.SessionSecret, cfg.TokenMaxAge)
	if err != nil {
		return err
	}
	sessions := session.NewService(store, signer, session.Options{
		TTL:       cfg.SessionTTL,
		Authority: authority,
		Log:       logging.Component(log, "session"),
		Tracker:   queue,
	})
	claims := claim.NewService(sessions, ledger, sender, claim.Options{
		Codes:      cfg.Game.DiscountCodes,
		Disposable: claim.NewDisposableList(cfg.Game.DisposableDomains...),
		Log:        logging.Component(log, "claim"),
		Tracker:    queue,
	})
	tickets, err := auth.NewTickets(cfg.SessionSecret, auth.DefaultTicketTTL)
	if err != nil {
		return err
	}

	srv := server.New(server.Deps{
		Sessions:       sessions,
		Claims:         claims,
		Tickets:        tickets,
		Limiter:        limiter,
		Tracker:        queue,
		AllowedOrigins: cfg.AllowedOrigins,
		Limits: server.Limits{
			Session: cfg.SessionRateLimit,
			Claim:   cfg.ClaimRateLimit,
			Window:  cfg.RateWindow,
		},
		Game: server.GameOptions{
			HandSize:  cfg.Game.HandSize,
			StepDelay: time.Duration(cfg.Game.StepDelay),
		},
		Log: logging.Component(log, "http"),
	})
	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"addr":      cfg.Addr,
			"env":       cfg.AppEnv,
			"authority": authority.String(),
			"ledger":    cfg.LedgerDriver,
			"redis":     rdb != nil,
		}).Info("Listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return queue.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		srv.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openLedger builds the claim ledger selected by LEDGER_DRIVER.
func openLedger(ctx context.Context, cfg config.Config, rdb *redis.Client, log *logrus.Entry) (claim.Ledger, func(), error) {
	noop := func() {}
	switch cfg.LedgerDriver {
	case "redis":
		return claim.NewRedisLedger(rdb), noop, nil
	case "postgres":
		pool, err := database.Connect(ctx, cfg.DatabaseURL, logging.Component(log, "postgres"))
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return claim.NewPostgresLedger(pool), pool.Close, nil
	case "sqlite":
		l, err := claim.OpenSQLiteLedger(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return l, func() { _ = l.Close() }, nil
	default:
		if !cfg.IsDevelopment() {
			log.Warn("Using the in-memory claim ledger; claims are lost on restart")
		}
		return claim.NewMemoryLedger(), noop, nil
	}
}

func randomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
