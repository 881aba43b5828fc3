package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/inquiry-backend/internal/adapter/memory"
	"github.com/heartmarshall/inquiry-backend/internal/adapter/postgres"
	pgevent "github.com/heartmarshall/inquiry-backend/internal/adapter/postgres/event"
	pginquiry "github.com/heartmarshall/inquiry-backend/internal/adapter/postgres/inquiry"
	pglease "github.com/heartmarshall/inquiry-backend/internal/adapter/postgres/lease"
	"github.com/heartmarshall/inquiry-backend/internal/adapter/redis"
	"github.com/heartmarshall/inquiry-backend/internal/auth"
	"github.com/heartmarshall/inquiry-backend/internal/config"
	"github.com/heartmarshall/inquiry-backend/internal/domain"
	"github.com/heartmarshall/inquiry-backend/internal/lease"
	"github.com/heartmarshall/inquiry-backend/internal/notify"
	"github.com/heartmarshall/inquiry-backend/internal/service/conversation"
	"github.com/heartmarshall/inquiry-backend/internal/service/conversation/codec"
	"github.com/heartmarshall/inquiry-backend/internal/service/conversation/quota"
	"github.com/heartmarshall/inquiry-backend/internal/service/moderation"
	"github.com/heartmarshall/inquiry-backend/internal/transport/middleware"
	"github.com/heartmarshall/inquiry-backend/internal/transport/rest"
	"github.com/heartmarshall/inquiry-backend/migrations"
)

// Run is the server entry point. It blocks until ctx is cancelled or a
// component fails, then shuts everything down.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)
	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("database", cfg.Database.Driver),
		slog.String("lease", cfg.Lease.Backend),
		slog.String("notify", cfg.Notify.Backend),
	)

	infra, err := Open(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer infra.Close()

	return Serve(ctx, logger, cfg, infra)
}

// Infra holds the storage and messaging connections shared by the server
// and the CLIs.
type Infra struct {
	Inquiries  InquiryStore
	Events     EventStore
	Tx         TxRunner
	Locker     lease.Locker
	Pool       *pgxpool.Pool
	Redis      *goredis.Client
	Notifier   notify.Notifier
	purgeLease func(ctx context.Context) (int64, error)
	closers    []func()
}

// InquiryStore is implemented by the postgres and memory inquiry repositories.
type InquiryStore interface {
	Create(ctx context.Context, inq *domain.Inquiry) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Inquiry, error)
	ListMessages(ctx context.Context, inquiryID uuid.UUID) ([]domain.ChatMessage, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID, role domain.ParticipantRole, limit, offset int) ([]domain.InquirySummary, int, error)
	AppendMessage(ctx context.Context, msg domain.ChatMessage) error
	MarkReplied(ctx context.Context, id uuid.UUID, at time.Time) error
	SetApprovalStatus(ctx context.Context, id uuid.UUID, from, to domain.ApprovalStatus, at time.Time) error
}

// EventStore is the event outbox.
type EventStore interface {
	notify.Outbox
	Create(ctx context.Context, e domain.Event) error
}

// TxRunner runs fn in one transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Close releases connections in reverse order of opening.
func (i *Infra) Close() {
	for k := len(i.closers) - 1; k >= 0; k-- {
		i.closers[k]()
	}
}

// Open connects storage, the lease backend and the notifier according to cfg.
func Open(ctx context.Context, log *slog.Logger, cfg *config.Config) (*Infra, error) {
	infra := &Infra{}
	ok := false
	defer func() {
		if !ok {
			infra.Close()
		}
	}()

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		if cfg.Migrate.OnStart {
			if err := migrateUp(ctx, log, cfg.Database.DSN); err != nil {
				return nil, err
			}
		}
		pool, err := postgres.NewPool(ctx, log, cfg.Database)
		if err != nil {
			return nil, err
		}
		infra.closers = append(infra.closers, pool.Close)
		infra.Pool = pool
		infra.Inquiries = pginquiry.New(pool)
		infra.Events = pgevent.New(pool)
		infra.Tx = postgres.NewTxManager(pool)
	case config.DriverMemory:
		store := memory.NewStore()
		infra.Inquiries = store.Inquiries()
		infra.Events = store.Events()
		infra.Tx = store
	}

	if cfg.UsesRedis() {
		client, err := redis.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		infra.closers = append(infra.closers, func() { _ = client.Close() })
		infra.Redis = client
	}

	switch cfg.Lease.Backend {
	case config.LeasePostgres:
		repo := pglease.New(infra.Pool)
		infra.Locker = repo
		infra.purgeLease = repo.PurgeExpired
	case config.LeaseRedis:
		infra.Locker = redis.NewLeaseStore(infra.Redis, cfg.Lease.KeyPrefix)
	case config.LeaseMemory:
		infra.Locker = memory.NewLocker()
	}

	switch cfg.Notify.Backend {
	case config.NotifyAsynq:
		client, err := notify.NewAsynqClient(cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		infra.closers = append(infra.closers, func() { _ = client.Close() })
		infra.Notifier = notify.NewAsynqNotifier(client, cfg.Notify.Queue, cfg.Notify.MaxRetry)
	case config.NotifyLog:
		infra.Notifier = notify.NewLogNotifier(log)
	default:
		infra.Notifier = notify.Nop
	}

	ok = true
	return infra, nil
}

// Serve runs the HTTP server and background workers until ctx ends.
func Serve(ctx context.Context, log *slog.Logger, cfg *config.Config, infra *Infra) error {
	leases := lease.NewManager(log, infra.Locker, lease.Options{
		TTL:           cfg.Lease.TTL,
		Wait:          cfg.Lease.Wait,
		RetryInterval: cfg.Lease.RetryInterval,
	})

	async := notify.NewAsync(log, notify.WithConfirmation(infra.Notifier, infra.Events), cfg.Notify.Concurrency, cfg.Notify.Timeout)
	relay := notify.NewRelay(log, infra.Events, infra.Notifier, cfg.Notify.RelayMinAge, cfg.Notify.RelayBatch)

	conv := conversation.NewService(log, infra.Inquiries, infra.Events, infra.Tx, leases,
		codec.New(log, cfg.Inquiry.LegacyPassphrase), async,
		conversation.Options{
			Policy:           quota.Policy{MaxPerUser: cfg.Inquiry.MaxPerUser, MaxTotal: cfg.Inquiry.MaxTotal},
			MaxMessageLength: cfg.Inquiry.MaxMessageLength,
		})
	mod := moderation.NewService(log, infra.Inquiries, infra.Events, infra.Tx, async)

	jwt := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)
	limiter := middleware.NewRateLimiter(time.Minute)
	defer limiter.Stop()

	checks := map[string]rest.Pinger{}
	if infra.Pool != nil {
		checks["database"] = infra.Pool
	}
	if infra.Redis != nil {
		checks["redis"] = rest.PingFunc(func(ctx context.Context) error { return infra.Redis.Ping(ctx).Err() })
	}

	handler := rest.NewRouter(rest.RouterDeps{
		Inquiries:  rest.NewInquiryHandler(conv, log),
		Moderation: rest.NewModerationHandler(mod, log),
		Health:     rest.NewHealthHandler(BuildVersion(), checks),
		Global: middleware.Chain(
			middleware.RequestID,
			middleware.Logger(log),
			middleware.Recovery(log),
			middleware.CORS(cfg.CORS),
			middleware.Auth(jwt),
		),
		SendLimit: limiter.Limit(cfg.Server.SendRatePerMin),
	})

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return relay.Run(gctx, cfg.Notify.RelayInterval)
	})

	if infra.purgeLease != nil {
		g.Go(func() error {
			return purgeLoop(gctx, log, infra.purgeLease, cfg.Lease.TTL)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()

		log.Info("shutting down")
		err := srv.Shutdown(shutdownCtx)
		if waitErr := async.Wait(shutdownCtx); waitErr != nil {
			log.Warn("pending notifications abandoned", slog.String("error", waitErr.Error()))
		}
		return err
	})

	return g.Wait()
}

func purgeLoop(ctx context.Context, log *slog.Logger, purge func(context.Context) (int64, error), every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := purge(ctx)
			if err != nil && ctx.Err() == nil {
				log.Warn("purge expired leases", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				log.Debug("purged expired leases", slog.Int64("count", n))
			}
		}
	}
}

func migrateUp(ctx context.Context, log *slog.Logger, dsn string) error {
	provider, db, err := migrations.Open(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	for _, r := range results {
		log.Info("migration applied", slog.Int64("version", r.Source.Version), slog.Duration("took", r.Duration))
	}
	return nil
}
