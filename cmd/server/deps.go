package main

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/iliyamo/bearer-auth-api/internal/config"
	"github.com/iliyamo/bearer-auth-api/internal/database"
	"github.com/iliyamo/bearer-auth-api/internal/handler"
	"github.com/iliyamo/bearer-auth-api/internal/mailer"
	"github.com/iliyamo/bearer-auth-api/internal/metrics"
	"github.com/iliyamo/bearer-auth-api/internal/queue"
	"github.com/iliyamo/bearer-auth-api/internal/repository"
)

// deps holds the long lived resources shared by the serve and worker
// commands.  Close releases them in reverse order of creation.
type deps struct {
	db       *sql.DB
	rdb      *redis.Client
	users    repository.UserStore
	deny     repository.DenyList
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	closers  []func() error
}

// redisPinger adapts the Redis client to handler.Pinger.
type redisPinger struct{ rdb *redis.Client }

func (p redisPinger) PingContext(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }

// openDB connects to MySQL and, when AUTO_MIGRATE is set, applies the
// embedded migrations.
var openDB = func(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("host", cfg.DBHost).Wrap(err)
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, oops.Code("MIGRATION_FAILED").Wrap(err)
		}
	}
	return db, nil
}

var openRedis = config.NewRedisClient

func buildDeps(ctx context.Context, cfg config.Config) (*deps, error) {
	d := &deps{}
	d.registry, d.metrics = metrics.NewRegistry()

	switch cfg.StoreDriver {
	case "mysql":
		db, err := openDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		d.db = db
		d.closers = append(d.closers, db.Close)
		d.users = repository.NewUserRepo(db)
	default:
		d.users = repository.NewMemoryUserRepo()
	}

	switch cfg.DenylistDriver {
	case "redis":
		rdb, err := openRedis(ctx, cfg.Redis)
		if err != nil {
			d.Close()
			return nil, oops.Code("REDIS_CONNECT_FAILED").With("addr", cfg.Redis.Addr).Wrap(err)
		}
		d.rdb = rdb
		d.closers = append(d.closers, rdb.Close)
		d.deny = repository.NewRedisDenyList(rdb, cfg.Redis.Prefix)
	case "mysql":
		if d.db == nil {
			d.Close()
			return nil, oops.Code("CONFIG_INVALID").Errorf("mysql deny-list needs the mysql store")
		}
		d.deny = repository.NewSQLDenyList(d.db)
	default:
		d.deny = repository.NewMemoryDenyList()
	}
	return d, nil
}

// pingers lists the dependencies /healthz checks.
func (d *deps) pingers() []handler.Pinger {
	var ps []handler.Pinger
	if d.db != nil {
		ps = append(ps, d.db)
	}
	if d.rdb != nil {
		ps = append(ps, redisPinger{d.rdb})
	}
	return ps
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		_ = d.closers[i]()
	}
	d.closers = nil
}

func newMailer(cfg config.Config, out io.Writer, logger *slog.Logger) (mailer.Mailer, error) {
	if cfg.MailerDriver == "smtp" {
		m, err := mailer.NewSMTPMailer(cfg.Email)
		if err != nil {
			return nil, oops.Code("CONFIG_INVALID").Wrap(err)
		}
		return m, nil
	}
	if out == nil {
		out = os.Stdout
	}
	return mailer.NewLogMailer(out, cfg.Email, logger), nil
}

// newPublisher picks where reset mail goes.  The inline publisher delivers
// from the API process itself, so it needs a mailer.
func newPublisher(cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (queue.Publisher, error) {
	switch cfg.QueueDriver {
	case "amqp":
		return queue.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Queue), nil
	case "kafka":
		return queue.NewKafkaPublisher(cfg.Kafka), nil
	default:
		ml, err := newMailer(cfg, nil, logger)
		if err != nil {
			return nil, err
		}
		return queue.NewInlinePublisher(queue.MailHandler(ml, m)), nil
	}
}
