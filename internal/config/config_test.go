package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ownerHex = "0x00000000000000000000000000000000000000aa"

// clearEnv blanks every key Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	for _, k := range []string{
		"LOCKVAULT_CONFIG", "LEDGER_BACKEND", "DB_SOURCE", "SQLITE_PATH", "SERVER_PORT",
		"ENVIRONMENT", "OWNER_ADDRESS", "CHAIN_ID", "MEMPOOL_SIZE", "BLOCK_DELAY",
		"MAX_RECEIPTS", "KAFKA_BROKERS", "KAFKA_TOPIC", "NODE_URL", "ACCOUNT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OWNER_ADDRESS", ownerHex)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "0xaa36a7", cfg.ChainID)
	assert.Equal(t, 1024, cfg.MempoolSize)
	assert.Equal(t, 10_000, cfg.MaxReceipts)
	assert.Equal(t, "lockvault.tx", cfg.KafkaTopic)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.True(t, strings.EqualFold(ownerHex, cfg.Owner))
}

func TestLoad_Required(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	assert.ErrorContains(t, err, "OWNER_ADDRESS")

	t.Setenv("OWNER_ADDRESS", "not-hex")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("OWNER_ADDRESS", ownerHex)
	t.Setenv("LEDGER_BACKEND", "postgres")
	_, err = Load()
	assert.ErrorContains(t, err, "DB_SOURCE")

	t.Setenv("LEDGER_BACKEND", "mongo")
	_, err = Load()
	assert.ErrorContains(t, err, "LEDGER_BACKEND")
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OWNER_ADDRESS", ownerHex)
	t.Setenv("LEDGER_BACKEND", "SQLite")
	t.Setenv("MEMPOOL_SIZE", "8")
	t.Setenv("BLOCK_DELAY", "250ms")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, 8, cfg.MempoolSize)
	assert.Equal(t, 250*time.Millisecond, cfg.BlockDelay.Duration)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)

	t.Setenv("MEMPOOL_SIZE", "zero")
	_, err = Load()
	assert.ErrorContains(t, err, "MEMPOOL_SIZE")
}

func TestLoad_TOMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "lockvault.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
owner_address = "`+ownerHex+`"
port = "9090"
block_delay = "1s"
kafka_brokers = ["broker:9092"]

[client]
node_url = "http://node:9090"
account = "0x00000000000000000000000000000000000000a1"
`), 0o600))
	t.Setenv("LOCKVAULT_CONFIG", path)
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, time.Second, cfg.BlockDelay.Duration)
	assert.Equal(t, []string{"broker:9092"}, cfg.KafkaBrokers)

	client, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "http://node:9090", client.NodeURL)
	assert.Equal(t, "0x00000000000000000000000000000000000000a1", client.Account)
	assert.Equal(t, "0xaa36a7", client.ChainID)
}

func TestLoadClient_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("ACCOUNT", "0xabc")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.NodeURL)
	assert.Equal(t, "0xabc", cfg.Account)
}
