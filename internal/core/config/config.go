package config

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}
type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name        string
	Env         string
	FrontendURL string
	CORSOrigins []string
	HTTP        HTTP
	Admin       AdminHTTP
}

func (a App) IsProd() bool { return a.Env == "production" || a.Env == "prod" }

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type JWT struct {
	Secret             string
	RefreshSecret      string
	Issuer             string
	Audience           string
	AccessTokenTTLMin  int
	RefreshTokenTTLDay int
}

// Validate 密钥缺失时拒绝启动，否则任何人都能伪造 token
func (j JWT) Validate() error {
	switch {
	case strings.TrimSpace(j.Secret) == "":
		return errors.New("jwt.secret is required")
	case strings.TrimSpace(j.RefreshSecret) == "":
		return errors.New("jwt.refreshSecret is required")
	case j.AccessTokenTTLMin <= 0 || j.RefreshTokenTTLDay <= 0:
		return errors.New("jwt token ttl must be positive")
	}
	return nil
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

// Storage S3 兼容对象存储（Cloudflare R2）
type Storage struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

func (s Storage) Enabled() bool {
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != "" && s.Bucket != ""
}

type CDN struct {
	URLEndpoint string
}

type OAuth struct {
	ClientID     string
	APIKey       string
	RedirectURI  string
	AuthorizeURL string
	TokenURL     string
}

func (o OAuth) Enabled() bool { return o.ClientID != "" && o.APIKey != "" }

type Mail struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

func (m Mail) Enabled() bool { return m.Host != "" && m.From != "" }

type Media struct {
	MaxImageMB    int
	MaxVideoMB    int
	MaxDocumentMB int
}

// Window 固定窗口限流：WindowMin 分钟内最多 Max 次
type Window struct {
	Max       int
	WindowMin int
}

type RateLimit struct {
	General      Window
	Auth         Window
	Upload       Window
	Registration Window
}

type Config struct {
	App       App
	Log       Log
	JWT       JWT
	DB        DB
	Redis     Redis `mapstructure:"redis"`
	Storage   Storage
	CDN       CDN
	OAuth     OAuth
	Mail      Mail
	Media     Media
	RateLimit RateLimit
}

func setDefaults(v *viper.Viper) {
	// 无默认值的键也要登记，否则 AutomaticEnv 在 Unmarshal 时看不到
	for _, k := range []string{
		"jwt.secret", "jwt.refreshSecret", "db.dsn", "db.username", "db.password",
		"redis.addr", "redis.password",
		"storage.endpoint", "storage.accessKey", "storage.secretKey", "storage.bucket",
		"cdn.urlEndpoint", "oauth.clientID", "oauth.apiKey", "oauth.redirectURI",
		"mail.host", "mail.username", "mail.password", "mail.from",
	} {
		v.SetDefault(k, "")
	}
	v.SetDefault("db.autoMigrate", true)
	v.SetDefault("app.name", "ons-backend")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.frontendURL", "http://localhost:3000")
	v.SetDefault("app.corsOrigins", []string{"http://localhost:3000"})
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 3001)
	v.SetDefault("app.http.readTimeoutSec", 15)
	v.SetDefault("app.http.writeTimeoutSec", 120)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 3002)

	v.SetDefault("log.level", "info")

	v.SetDefault("jwt.issuer", "ons-webapp")
	v.SetDefault("jwt.audience", "ons-webapp-users")
	v.SetDefault("jwt.accessTokenTTLMin", 15)
	v.SetDefault("jwt.refreshTokenTTLDay", 7)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.maxOpenConns", 20)
	v.SetDefault("db.maxIdleConns", 5)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.logLevel", "warn")

	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.useSSL", true)

	v.SetDefault("oauth.authorizeURL", "https://api.workos.com/user_management/authorize")
	v.SetDefault("oauth.tokenURL", "https://api.workos.com/user_management/authenticate")

	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.fromName", "ONS")

	v.SetDefault("media.maxImageMB", 10)
	v.SetDefault("media.maxVideoMB", 100)
	v.SetDefault("media.maxDocumentMB", 50)

	v.SetDefault("ratelimit.general.max", 100)
	v.SetDefault("ratelimit.general.windowMin", 15)
	v.SetDefault("ratelimit.auth.max", 5)
	v.SetDefault("ratelimit.auth.windowMin", 15)
	v.SetDefault("ratelimit.upload.max", 20)
	v.SetDefault("ratelimit.upload.windowMin", 60)
	v.SetDefault("ratelimit.registration.max", 10)
	v.SetDefault("ratelimit.registration.windowMin", 60)
}

func Load(path string) *Config {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// 容器里常常只给环境变量
		if _, statErr := os.Stat(path); statErr == nil {
			log.Fatalf("read config: %v", err)
		}
		log.Printf("config file %s not found, using defaults + env", path)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		log.Fatalf("unmarshal config: %v", err)
	}
	return &c
}
