package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/punchamoorthee/lockvault/internal/domain"
)

// Backends accepted in LEDGER_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config is the node server configuration.
type Config struct {
	Backend      string   `toml:"backend"`
	DBSource     string   `toml:"db_source"`
	SQLitePath   string   `toml:"sqlite_path"`
	Port         string   `toml:"port"`
	Env          string   `toml:"environment"`
	Owner        string   `toml:"owner_address"`
	ChainID      string   `toml:"chain_id"`
	MempoolSize  int      `toml:"mempool_size"`
	BlockDelay   Duration `toml:"block_delay"`
	MaxReceipts  int      `toml:"max_receipts"`
	KafkaBrokers []string `toml:"kafka_brokers"`
	KafkaTopic   string   `toml:"kafka_topic"`
}

// ClientConfig is the CLI configuration.
type ClientConfig struct {
	NodeURL string `toml:"node_url"`
	Account string `toml:"account"`
	ChainID string `toml:"chain_id"`
}

// Duration decodes TOML strings such as "250ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// file is the layout of the optional TOML file named by LOCKVAULT_CONFIG.
type file struct {
	Server Config       `toml:"server"`
	Client ClientConfig `toml:"client"`
}

func defaults() file {
	return file{
		Server: Config{
			Backend:     BackendMemory,
			Port:        "8080",
			Env:         "development",
			ChainID:     "0xaa36a7",
			MempoolSize: 1024,
			MaxReceipts: 10_000,
			KafkaTopic:  "lockvault.tx",
		},
		Client: ClientConfig{
			NodeURL: "http://localhost:8080",
			ChainID: "0xaa36a7",
		},
	}
}

// read applies defaults, then .env, then the TOML file. Environment
// variables are applied by the callers.
func read() (file, error) {
	f := defaults()
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return f, fmt.Errorf("load .env: %w", err)
	}
	if path := os.Getenv("LOCKVAULT_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, &f); err != nil {
			return f, fmt.Errorf("read %s: %w", path, err)
		}
	}
	return f, nil
}

func Load() (*Config, error) {
	f, err := read()
	if err != nil {
		return nil, err
	}
	cfg := f.Server

	setString(&cfg.Backend, "LEDGER_BACKEND")
	setString(&cfg.DBSource, "DB_SOURCE")
	setString(&cfg.SQLitePath, "SQLITE_PATH")
	setString(&cfg.Port, "SERVER_PORT")
	setString(&cfg.Env, "ENVIRONMENT")
	setString(&cfg.Owner, "OWNER_ADDRESS")
	setString(&cfg.ChainID, "CHAIN_ID")
	setString(&cfg.KafkaTopic, "KAFKA_TOPIC")
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = splitList(v)
	}
	if err := setInt(&cfg.MempoolSize, "MEMPOOL_SIZE"); err != nil {
		return nil, err
	}
	if err := setInt(&cfg.MaxReceipts, "MAX_RECEIPTS"); err != nil {
		return nil, err
	}
	if v := os.Getenv("BLOCK_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("BLOCK_DELAY: %w", err)
		}
		cfg.BlockDelay.Duration = d
	}

	cfg.Backend = strings.ToLower(cfg.Backend)
	switch cfg.Backend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if cfg.DBSource == "" {
			return nil, fmt.Errorf("DB_SOURCE environment variable is required for the postgres backend")
		}
	default:
		return nil, fmt.Errorf("unknown LEDGER_BACKEND %q", cfg.Backend)
	}

	if cfg.Owner == "" {
		return nil, fmt.Errorf("OWNER_ADDRESS environment variable is required")
	}
	owner, err := domain.ParseAccountID(cfg.Owner)
	if err != nil {
		return nil, fmt.Errorf("OWNER_ADDRESS: %w", err)
	}
	cfg.Owner = string(owner)

	return &cfg, nil
}

// LoadClient reads the CLI configuration. The account may be left empty and
// supplied by flag.
func LoadClient() (*ClientConfig, error) {
	f, err := read()
	if err != nil {
		return nil, err
	}
	cfg := f.Client
	setString(&cfg.NodeURL, "NODE_URL")
	setString(&cfg.Account, "ACCOUNT")
	setString(&cfg.ChainID, "CHAIN_ID")
	return &cfg, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	*dst = n
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
