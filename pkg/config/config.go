package config

import (
	"time"
)

type DB struct {
	Driver          string        `envconfig:"DRIVER" default:"postgres"`
	Url             string        `envconfig:"URL"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"25"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"1h"`
	AutoMigrate     bool          `envconfig:"AUTO_MIGRATE" default:"false"`
}

type Jwt struct {
	Secret string        `envconfig:"SECRET" required:"true"`
	Expiry time.Duration `envconfig:"EXPIRY" default:"24h"`
}

type Auth struct {
	Jwt        *Jwt `envconfig:"JWT"`
	BcryptCost int  `envconfig:"BCRYPT_COST" default:"12"`
}

type Redis struct {
	URL          string        `envconfig:"URL" default:"redis://localhost:6379/0"`
	KeyPrefix    string        `envconfig:"KEY_PREFIX" default:""`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

type Kafka struct {
	Brokers      string `envconfig:"BROKERS" default:"localhost:9092"`
	TopicPrefix  string `envconfig:"TOPIC_PREFIX" default:"securebank.events"`
	GroupID      string `envconfig:"GROUP_ID" default:"securebank"`
	SASLUsername string `envconfig:"SASL_USERNAME"`
	SASLPassword string `envconfig:"SASL_PASSWORD"`
}

type EventBus struct {
	Driver string `envconfig:"DRIVER" default:"memory"`
	Stream string `envconfig:"STREAM" default:"securebank:events"`
	Group  string `envconfig:"GROUP" default:"securebank"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

type Cors struct {
	AllowOrigins     string `envconfig:"ALLOW_ORIGINS" default:"http://localhost:3000"`
	AllowCredentials bool   `envconfig:"ALLOW_CREDENTIALS" default:"false"`
}

// Ledger holds the transfer limits and storage bounds of the ledger service.
type Ledger struct {
	MaxTransferAmount string        `envconfig:"MAX_TRANSFER_AMOUNT" default:"10000.00"`
	Currency          string        `envconfig:"CURRENCY" default:"USD"`
	OperationTimeout  time.Duration `envconfig:"OPERATION_TIMEOUT" default:"5s"`
	ConflictRetries   int           `envconfig:"CONFLICT_RETRIES" default:"3"`
	DefaultPageSize   int           `envconfig:"DEFAULT_PAGE_SIZE" default:"50"`
	MaxPageSize       int           `envconfig:"MAX_PAGE_SIZE" default:"100"`
	MaxStatementRows  int           `envconfig:"MAX_STATEMENT_ROWS" default:"10000"`
	TreasuryUsername  string        `envconfig:"TREASURY_USERNAME" default:"treasury"`
	TreasuryOpening   string        `envconfig:"TREASURY_OPENING_BALANCE" default:"1000000.00"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"json"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[securebank]"`
}

type Server struct {
	Scheme string `envconfig:"SCHEME" default:"http"`
	Host   string `envconfig:"HOST" default:"localhost"`
	Port   int    `envconfig:"PORT" default:"3000"`
	// ProxyHeader is only honored for requests whose remote address is
	// listed in TrustedProxies.
	ProxyHeader    string   `envconfig:"PROXY_HEADER" default:"X-Forwarded-For"`
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`
}

type App struct {
	Env       string     `envconfig:"APP_ENV" default:"development"`
	Server    *Server    `envconfig:"SERVER"`
	Log       *Log       `envconfig:"LOG"`
	DB        *DB        `envconfig:"DATABASE"`
	Auth      *Auth      `envconfig:"AUTH"`
	Redis     *Redis     `envconfig:"REDIS"`
	Kafka     *Kafka     `envconfig:"KAFKA"`
	EventBus  *EventBus  `envconfig:"EVENT_BUS"`
	RateLimit *RateLimit `envconfig:"RATE_LIMIT"`
	Cors      *Cors      `envconfig:"CORS"`
	Ledger    *Ledger    `envconfig:"LEDGER"`
}
