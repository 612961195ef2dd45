package backend

import (
	"context"
	"errors"
	"fmt"

	"busticket/internal/amqp"
	"busticket/internal/ledger"
	"busticket/internal/log"
	"busticket/internal/storage"
)

// PublisherDialer opens an event publisher.
type PublisherDialer func(url, exchange, queue string, logger *log.Logger) (Publisher, error)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	dial   PublisherDialer
}

type FactoryOption func(*DefaultFactory)

// WithPublisherDialer replaces the AMQP dialer.
func WithPublisherDialer(dial PublisherDialer) FactoryOption {
	return func(f *DefaultFactory) { f.dial = dial }
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger, opts ...FactoryOption) *DefaultFactory {
	if logger == nil {
		logger = log.Discard()
	}
	f := &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
		dial:   dialAMQP,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func dialAMQP(url, exchange, queue string, logger *log.Logger) (Publisher, error) {
	client, err := amqp.NewClient(url, exchange, queue, logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		kv      storage.KV
		closeKV func() error
	)
	switch config.Type {
	case SQLiteBackend:
		sqliteKV, err := storage.NewSQLiteKV(config.SQLiteDBPath, storage.WithSQLiteLogger(f.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		kv, closeKV = sqliteKV, sqliteKV.Close
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		if config.SeedDirectory != "" {
			kv = storage.NewMemoryKVFromDir(config.SeedDirectory, ledger.KeyUser, ledger.KeyTickets, ledger.KeyExpenses)
		} else {
			kv = storage.NewMemoryKV()
		}
		f.logger.InfoContext(ctx, "Initialized memory backend", "seed_directory", config.SeedDirectory)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	// A broker outage must not keep the ledger from starting.
	var publisher Publisher
	if config.AMQPURL != "" {
		p, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without event publishing", "error", err)
		} else {
			publisher = p
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	return &BackendResult{
		KV:        kv,
		Publisher: publisher,
		Cleanup: func() error {
			var errs []error
			if publisher != nil {
				errs = append(errs, publisher.Close())
			}
			if closeKV != nil {
				errs = append(errs, closeKV())
			}
			return errors.Join(errs...)
		},
	}, nil
}
