package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busticket/internal/config"
	"busticket/internal/ledger"
	"busticket/internal/log"
)

type fakePublisher struct {
	closed bool
}

func (p *fakePublisher) OnLedgerEvent(context.Context, ledger.Event) error { return nil }
func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:   config.BackendMemory,
		MemorySeedDir: "seed",
		AMQPURL:       "amqp://localhost",
		AMQPExchange:  "busticket",
		AMQPQueue:     "ledger_events",
	})
	require.NoError(t, err)
	assert.Equal(t, MemoryBackend, cfg.Type)
	assert.Equal(t, "seed", cfg.SeedDirectory)
	assert.Equal(t, "ledger_events", cfg.AMQPQueue)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown type", Config{Type: "sheets"}, true},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://x", AMQPExchange: "e"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	assert.Equal(t, []string{"sqlite", "memory"}, GetBackendTypeStrings())
}

func TestCreateMemoryBackendWithSeed(t *testing.T) {
	dir := t.TempDir()
	seed := `[{"id":"a1","date":"2024-03-01","timestamp":1,"count":2,"rate":50,"totalCommission":100}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ledger.KeyTickets+".json"), []byte(seed), 0o644))

	res, err := NewFactory(log.Discard()).CreateBackend(context.Background(), Config{Type: MemoryBackend, SeedDirectory: dir})
	require.NoError(t, err)
	defer res.Cleanup()

	assert.Nil(t, res.Publisher)
	store, err := ledger.Open(context.Background(), res.KV)
	require.NoError(t, err)
	require.Len(t, store.Tickets(), 1)
	assert.Equal(t, "a1", store.Tickets()[0].ID)
}

func TestCreateSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, res.KV.Put(ctx, ledger.KeyExpenses, []byte("[]")))
	require.NoError(t, res.Cleanup())
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestCreateBackendPublisher(t *testing.T) {
	pub := &fakePublisher{}
	f := NewFactory(nil, WithPublisherDialer(func(url, exchange, queue string, _ *log.Logger) (Publisher, error) {
		assert.Equal(t, "amqp://broker", url)
		return pub, nil
	}))

	res, err := f.CreateBackend(context.Background(), Config{
		Type: MemoryBackend, AMQPURL: "amqp://broker", AMQPExchange: "busticket", AMQPQueue: "ledger_events",
	})
	require.NoError(t, err)
	assert.Same(t, pub, res.Publisher)
	require.NoError(t, res.Cleanup())
	assert.True(t, pub.closed)
}

func TestCreateBackendContinuesWhenBrokerDown(t *testing.T) {
	f := NewFactory(nil, WithPublisherDialer(func(string, string, string, *log.Logger) (Publisher, error) {
		return nil, errors.New("connection refused")
	}))
	res, err := f.CreateBackend(context.Background(), Config{
		Type: MemoryBackend, AMQPURL: "amqp://broker", AMQPExchange: "busticket", AMQPQueue: "ledger_events",
	})
	require.NoError(t, err)
	assert.Nil(t, res.Publisher)
	assert.NoError(t, res.Cleanup())
}
