package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `env:"ENV" env-required:"true"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info" env-description:"logging level, debug, info, etc."`
	HttpServer HttpServer
	Database   Database
	Limiter    Limiter
	Auth       AuthConfig
	OTP        OTPConfig
	RateLimit  RateLimitConfig
	Admin      AdminConfig
	Delivery   DeliveryConfig
	Cleanup    CleanupConfig
	Cache      Cache
}

type HttpServer struct {
	Port           string        `env:"HTTP_PORT" env-default:"8080"`
	Timeout        time.Duration `env:"HTTP_TIMEOUT" env-default:"4s"`
	IdleTimeout    time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	SwaggerEnabled bool          `env:"HTTP_SWAGGER_ENABLED" env-default:"false"`
}

type Database struct {
	Net                string        `env:"DB_NET" env-default:"tcp"`
	Server             string        `env:"DB_SERVER" env-required:"true"`
	DBName             string        `env:"DB_NAME" env-required:"true"`
	User               string        `env:"DB_USER" env-required:"true"`
	Password           string        `env:"DB_PASSWORD" env-required:"true"`
	TimeZone           string        `env:"DB_TIMEZONE"`
	Timeout            time.Duration `env:"DB_TIMEOUT" env-default:"2s"`
	MaxIdleConnections int           `env:"DB_MAX_IDLE_CONNECTIONS" env-default:"40"`
	MaxOpenConnections int           `env:"DB_MAX_OPEN_CONNECTIONS" env-default:"40"`
}

type Limiter struct {
	RPS   int           `env:"LIMITER_RPS" env-default:"10"`
	Burst int           `env:"LIMITER_BURST" env-default:"20"`
	TTL   time.Duration `env:"LIMITER_TTL" env-default:"10m"`
}

type AuthConfig struct {
	JWT JWTConfig
}

type JWTConfig struct {
	AccessTokenTTL time.Duration `env:"JWT_ACCESS_TOKEN_TTL" env-default:"15m"`
	SigningKey     string        `env:"JWT_SIGNING_KEY" env-required:"true"`
}

type OTPConfig struct {
	Expiration     time.Duration `env:"OTP_EXPIRATION" env-default:"10m" env-description:"verification code lifetime"`
	MaxAttempts    int           `env:"OTP_MAX_ATTEMPTS" env-default:"3" env-description:"per-code verification attempt ceiling"`
	ResendCooldown time.Duration `env:"OTP_RESEND_COOLDOWN" env-default:"60s" env-description:"advisory cooldown shown to clients between issuances"`
}

type RateLimitConfig struct {
	MaxIssuances int           `env:"RATE_LIMIT_MAX_ISSUANCES" env-default:"5" env-description:"codes a user may request per window"`
	Window       time.Duration `env:"RATE_LIMIT_WINDOW" env-default:"24h"`
}

type DeliveryConfig struct {
	Provider string `env:"DELIVERY_PROVIDER" env-default:"twilio" env-description:"outbound messaging provider"`
	Twilio   TwilioConfig
}

type TwilioConfig struct {
	AccountSID   string `env:"TWILIO_ACCOUNT_SID" env-required:"true"`
	AuthToken    string `env:"TWILIO_AUTH_TOKEN" env-required:"true"`
	WhatsAppFrom string `env:"TWILIO_WHATSAPP_NUMBER" env-default:"whatsapp:+14155238886"`
	SMSFrom      string `env:"TWILIO_PHONE_NUMBER" env-default:"" env-description:"sms fallback sender, fallback skipped when empty"`
}

type AdminConfig struct {
	UserIDs []string `env:"ADMIN_USER_IDS" env-default:"" env-description:"user uuids allowed on the admin routes"`
}

type CleanupConfig struct {
	Schedule string `env:"CLEANUP_SCHEDULE" env-default:"@every 10m" env-description:"cron spec for the expired-code cleanup task"`
}

type Cache struct {
	Type  string `env:"REDIS_TYPE" env-required:"true" env-description:"specifies provider, one of redis/redisCluster"`
	Redis struct {
		Address  string `env:"REDIS_ADDR" env-default:"" env-description:"redis host:port single instance"`
		Password string `env:"REDIS_PASSWORD" env-default:"" env-description:"redis password if exists"`
		PoolSize int    `env:"REDIS_POOL_SIZE" env-default:"70" env-description:"max tcp connections pool size"`
	}
	RedisCluster struct {
		Addresses []string `env:"REDIS_CLUSTER_ADDRS" env-default:"" env-description:"redis cluster nodes: ['172.27.29.90:7000','172.27.29.91:7001'', '172.27.29.92:7002'']"`
		Password  string   `env:"REDIS_PASSWORD" env-default:"" env-description:"redis password if exists"`
		PoolSize  int      `env:"REDIS_POOL_SIZE" env-default:"70" env-description:"max tcp connections pool size"`
	}
}

func MustLoad() *Config {
	var cfg Config

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("cannot read config from environment: %s", err)
	}

	return &cfg
}
