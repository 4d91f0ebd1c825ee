package internal

import (
	"context"
	"fmt"
	"net"

	"github.com/2beens/fittrack/internal/config"
	"github.com/2beens/fittrack/internal/db"
	"github.com/2beens/fittrack/internal/persistence"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const postgresStateKey = "fittrack"

type OpenStorageParams struct {
	Config         *config.Config
	RedisPassword  string
	TracingEnabled bool
}

// Storage bundles the document backend with the clients it was built on.
// RedisClient is also set when only the rate limiter needs it.
type Storage struct {
	Backend     persistence.Backend
	RedisClient *redis.Client
	DBPool      *pgxpool.Pool
}

// OpenStorage builds the backend selected by the storage driver.
func OpenStorage(ctx context.Context, params OpenStorageParams) (*Storage, error) {
	cfg := params.Config
	s := &Storage{}

	needsRedis := cfg.StorageDriver == config.StorageDriverRedis ||
		(cfg.MutationsRateLimitPerMin > 0 && cfg.RedisHost != "")
	if needsRedis {
		s.RedisClient = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
			Password: params.RedisPassword,
			DB:       0, // use default DB
		})
		if params.TracingEnabled {
			s.RedisClient.AddHook(redisotel.NewTracingHook())
		}
		if err := s.RedisClient.Ping(ctx).Err(); err != nil {
			log.Errorf("--> failed to ping redis: %s", err)
		}
	}

	switch cfg.StorageDriver {
	case config.StorageDriverDisk:
		backend, err := persistence.NewDiskBackend(cfg.DiskDataPath)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("disk backend: %w", err), s.Close())
		}
		log.Debugf("storing data in [%s]", backend.Path())
		s.Backend = backend
	case config.StorageDriverRedis:
		s.Backend = persistence.NewRedisBackend(s.RedisClient, cfg.RedisKey)
	case config.StorageDriverPostgres:
		dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost:         cfg.PostgresHost,
			DBPort:         cfg.PostgresPort,
			DBName:         cfg.PostgresDBName,
			TracingEnabled: params.TracingEnabled,
		})
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("new db pool: %w", err), s.Close())
		}
		s.DBPool = dbPool
		if err := dbPool.Ping(ctx); err != nil {
			log.Warnf("failed to ping db: %s", err)
		}
		backend := persistence.NewPostgresBackend(dbPool, postgresStateKey)
		if err := backend.EnsureSchema(ctx); err != nil {
			return nil, multierr.Append(err, s.Close())
		}
		s.Backend = backend
	case config.StorageDriverMemory:
		s.Backend = persistence.NewMemoryBackend()
	default:
		return nil, multierr.Append(fmt.Errorf("unknown storage driver: %s", cfg.StorageDriver), s.Close())
	}

	return s, nil
}

// Collectors returns the extra prometheus collectors of the opened clients.
func (s *Storage) Collectors() []prometheus.Collector {
	var collectors []prometheus.Collector
	if s.DBPool != nil {
		collectors = append(collectors, pgxpoolprometheus.NewCollector(
			s.DBPool,
			map[string]string{"db_name": "fittrack_db"},
		))
	}
	return collectors
}

func (s *Storage) Close() error {
	var err error
	if s.RedisClient != nil {
		if cErr := s.RedisClient.Close(); cErr != nil {
			err = multierr.Append(err, fmt.Errorf("close redis client: %w", cErr))
		}
		s.RedisClient = nil
	}
	if s.DBPool != nil {
		log.Debugln("closing db pool ...")
		s.DBPool.Close() // blocking operation
		s.DBPool = nil
	}
	return err
}
