package modules

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"batchtrack.io/tracker/internal/config"
	"batchtrack.io/tracker/internal/domain"
	"batchtrack.io/tracker/internal/infrastructure"
	"batchtrack.io/tracker/internal/mixer"
	"batchtrack.io/tracker/internal/monitor"
	"batchtrack.io/tracker/internal/pkg/logger"
	"batchtrack.io/tracker/internal/pkg/timeutil"
	"batchtrack.io/tracker/internal/pkg/worker"
	"batchtrack.io/tracker/internal/report"
	"batchtrack.io/tracker/internal/store"
)

// Infrastructure holds shared cross-cutting dependencies for all modules.
// It is a provider, not a Module.
type Infrastructure struct {
	Config     *config.Config
	Clock      clockwork.Clock
	Pools      *worker.Pools
	Policy     *mixer.Policy
	Store      *store.Store
	Redis      *redis.Client // nil unless redis.enabled
	Events     *domain.EventDispatcher
	Schedule   timeutil.Schedule
	Labels     report.Labels
	Thresholds monitor.Thresholds
}

// NewInfrastructure opens the store and the shared services. A nil clock
// uses the wall clock.
func NewInfrastructure(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (*Infrastructure, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	policy, err := mixer.NewPolicy(cfg.Mixers.Products)
	if err != nil {
		return nil, fmt.Errorf("init mixer policy: %w", err)
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize: cfg.Worker.GeneralPoolSize,
		NotifyPoolSize:  cfg.Worker.NotifyPoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	backend, err := newBackend(ctx, cfg.Store)
	if err != nil {
		pools.Shutdown()
		return nil, err
	}

	st, err := store.Open(ctx, backend, policy, clock)
	if err != nil {
		_ = backend.Close()
		pools.Shutdown()
		return nil, fmt.Errorf("open ticket store: %w", err)
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = infrastructure.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			_ = st.Close()
			pools.Shutdown()
			return nil, fmt.Errorf("init redis: %w", err)
		}
	}

	zone := timeutil.Zone(cfg.Shift.UTCOffsetHours)
	return &Infrastructure{
		Config: cfg,
		Clock:  clock,
		Pools:  pools,
		Policy: policy,
		Store:  st,
		Redis:  rdb,
		Events: domain.NewEventDispatcher(),
		Schedule: timeutil.Schedule{
			DayStart:   cfg.Shift.DayStartHour,
			NightStart: cfg.Shift.NightStartHour,
			Zone:       zone,
		},
		Labels: report.LabelsFor(cfg.Display.Locale),
		Thresholds: monitor.Thresholds{
			Production: cfg.Timeouts.Production,
			Lab:        cfg.Timeouts.Lab,
		},
	}, nil
}

func newBackend(ctx context.Context, cfg config.StoreConfig) (store.Backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := infrastructure.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		backend, err := store.NewSQLBackend(ctx, db)
		if err != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
			return nil, fmt.Errorf("init sqlite backend: %w", err)
		}
		logger.Info("Ticket store backend selected", zap.String("backend", cfg.Backend), zap.String("path", cfg.SQLitePath))
		return backend, nil
	case config.BackendFile:
		logger.Info("Ticket store backend selected", zap.String("backend", cfg.Backend), zap.String("active", cfg.ActivePath))
		return store.NewFileBackend(cfg.ActivePath, cfg.ArchivePath, cfg.MetaPath), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// Close releases infra resources in reverse dependency order.
func (i *Infrastructure) Close() {
	if i == nil {
		return
	}
	if i.Pools != nil {
		i.Pools.Shutdown()
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
	if i.Store != nil {
		if err := i.Store.Close(); err != nil {
			logger.Warn("failed to close ticket store", zap.Error(err))
		}
	}
}
