package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Store drivers for custom questions.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"ladder-quiz"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres    Postgres
	Redis       Redis
	Store       Store
	Security    Security
	Runtime     Runtime
	AI          AI
	External    External
	Leaderboard Leaderboard
	CORS        CORS
}

// Postgres captures connection info for the SQL database. Only read when the
// store driver is postgres.
type Postgres struct {
	Host     string `env:"PG_HOST" envDefault:"localhost"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER" envDefault:""`
	Password string `env:"PG_PASSWORD" envDefault:""`
	Database string `env:"PG_DATABASE" envDefault:""`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders the pgx connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode, p.MaxConns)
}

// Redis holds the AI pack cache and leaderboard connection.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Store selects where custom questions live.
type Store struct {
	Driver     string `env:"STORE_DRIVER" envDefault:"postgres"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"file:ladder-quiz.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"`
}

// Security stores secrets for signing and auth.
type Security struct {
	SessionTokenSecret string        `env:"SESSION_TOKEN_SECRET,notEmpty"`
	SessionTokenTTL    time.Duration `env:"SESSION_TOKEN_TTL" envDefault:"24h"`
	// EditorKeyHash is a bcrypt hash; empty leaves question submission open.
	EditorKeyHash string `env:"EDITOR_KEY_HASH" envDefault:""`
}

// Runtime groups gameplay defaults.
type Runtime struct {
	QuestionFetchTimeout time.Duration `env:"QUESTION_FETCH_TIMEOUT_SECONDS" envDefault:"20s"`
	IntroDelay           time.Duration `env:"INTRO_DELAY" envDefault:"2s"`
	SessionIdleTTL       time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	SessionReapInterval  time.Duration `env:"SESSION_REAP_INTERVAL" envDefault:"1m"`
	PrewarmInterval      time.Duration `env:"PREWARM_INTERVAL" envDefault:"10m"`
}

// AI configures the question generators. OpenAI wins when both are set.
type AI struct {
	GeneratorURL  string        `env:"AI_GENERATOR_URL" envDefault:""`
	GeneratorKey  string        `env:"AI_GENERATOR_API_KEY" envDefault:""`
	HTTPTimeout   time.Duration `env:"AI_HTTP_TIMEOUT" envDefault:"15s"`
	OpenAIKey     string        `env:"OPENAI_API_KEY" envDefault:""`
	OpenAIModel   string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL" envDefault:""`
	CacheTTL      time.Duration `env:"AI_PACK_CACHE_TTL" envDefault:"30m"`
}

// Enabled reports whether any generator is configured.
func (a AI) Enabled() bool {
	return a.OpenAIKey != "" || a.GeneratorURL != ""
}

// External configures the public trivia APIs.
type External struct {
	Enabled          bool          `env:"EXTERNAL_TRIVIA_ENABLED" envDefault:"true"`
	OpenTDBBaseURL   string        `env:"OPENTDB_BASE_URL" envDefault:"https://opentdb.com"`
	TriviaAPIBaseURL string        `env:"TRIVIA_API_BASE_URL" envDefault:"https://the-trivia-api.com/api"`
	TriviaAPIKey     string        `env:"TRIVIA_API_KEY" envDefault:""`
	HTTPTimeout      time.Duration `env:"EXTERNAL_HTTP_TIMEOUT" envDefault:"5s"`
}

// Leaderboard governs ranking storage and broadcast behavior.
type Leaderboard struct {
	TopN          int           `env:"LEADERBOARD_TOP_N" envDefault:"50"`
	MaxEntries    int           `env:"LEADERBOARD_MAX_ENTRIES" envDefault:"1000"`
	KeyPrefix     string        `env:"LEADERBOARD_KEY_PREFIX" envDefault:"lb"`
	PubSubChannel string        `env:"LEADERBOARD_CHANNEL" envDefault:"lb:updates"`
	EntryTTL      time.Duration `env:"LEADERBOARD_ENTRY_TTL" envDefault:"720h"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,X-Editor-Key"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *App) validate() error {
	switch c.Store.Driver {
	case DriverPostgres:
		if c.Postgres.User == "" || c.Postgres.Database == "" {
			return fmt.Errorf("parse config: PG_USER and PG_DATABASE are required for the postgres store")
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("parse config: unknown STORE_DRIVER %q", c.Store.Driver)
	}
	return nil
}
