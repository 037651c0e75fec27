package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies EDGEBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known EDGEBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "EDGEBOT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "EDGEBOT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "EDGEBOT_WALLET_KEY_PASSWORD")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "EDGEBOT_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.GammaHost, "EDGEBOT_POLYMARKET_GAMMA_HOST")
	setInt(&cfg.Polymarket.ChainID, "EDGEBOT_POLYMARKET_CHAIN_ID")
	setInt(&cfg.Polymarket.SignatureType, "EDGEBOT_POLYMARKET_SIGNATURE_TYPE")

	// ── Feed ──
	setStr(&cfg.Feed.WsHost, "EDGEBOT_FEED_WS_HOST")
	setStr(&cfg.Feed.Symbol, "EDGEBOT_FEED_SYMBOL")

	// ── Engine ──
	setDuration(&cfg.Engine.TickInterval, "EDGEBOT_ENGINE_TICK_INTERVAL")
	setDuration(&cfg.Engine.Cooldown, "EDGEBOT_ENGINE_COOLDOWN")
	setDuration(&cfg.Engine.PriceLag, "EDGEBOT_ENGINE_PRICE_LAG")

	// ── Risk ──
	setFloat64(&cfg.Risk.MaxPositionUSD, "EDGEBOT_RISK_MAX_POSITION_USD")
	setFloat64(&cfg.Risk.MinEdgePct, "EDGEBOT_RISK_MIN_EDGE_PCT")
	setFloat64(&cfg.Risk.MinProbability, "EDGEBOT_RISK_MIN_PROBABILITY")
	setStr(&cfg.Risk.Bias, "EDGEBOT_RISK_BIAS")
	setFloat64(&cfg.Risk.TakeProfitPct, "EDGEBOT_RISK_TAKE_PROFIT_PCT")
	setFloat64(&cfg.Risk.SellAmountPct, "EDGEBOT_RISK_SELL_AMOUNT_PCT")
	setInt(&cfg.Risk.MaxBuysPerMarket, "EDGEBOT_RISK_MAX_BUYS_PER_MARKET")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "EDGEBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "EDGEBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "EDGEBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "EDGEBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "EDGEBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "EDGEBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "EDGEBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "EDGEBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "EDGEBOT_POSTGRES_POOL_MIN_CONNS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "EDGEBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "EDGEBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "EDGEBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "EDGEBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "EDGEBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "EDGEBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "EDGEBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "EDGEBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "EDGEBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "EDGEBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "EDGEBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "EDGEBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "EDGEBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "EDGEBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "EDGEBOT_S3_FORCE_PATH_STYLE")
	setDuration(&cfg.S3.ArchiveAfter, "EDGEBOT_S3_ARCHIVE_AFTER")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "EDGEBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "EDGEBOT_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "EDGEBOT_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "EDGEBOT_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "EDGEBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "EDGEBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "EDGEBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "EDGEBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "EDGEBOT_MODE")
	setStr(&cfg.LogLevel, "EDGEBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
