package config

import (
	"bytes"
	"fmt"
	"net"
	neturl "net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort       = 3000
	defaultEnv        = "development"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "motohub"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"
	defaultMongoURL   = "mongodb://localhost:27017/motohub"
	defaultRedisHost  = "localhost"
	defaultRedisPort  = 6379
	defaultRedisDB    = 0
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	Env            string                `yaml:"env"` // "development" | "production"
	Database       DatabaseRuntimeConfig `yaml:"database"`
	MongoURL       string                `yaml:"mongo_url"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	AllowedOrigins []string              `yaml:"allowed_origins"`
	JWTSecret      string                `yaml:"jwt_secret"`
	Timezone       string                `yaml:"timezone"`
	Paths          RuntimePathsConfig    `yaml:"paths"`
	Mail           MailRuntimeConfig     `yaml:"mail"`
	S3             S3RuntimeConfig       `yaml:"s3"`
	SiteName       string                `yaml:"site_name"`
	WebURL         string                `yaml:"web_url"`
}

type DatabaseRuntimeConfig struct {
	DSN       string            `yaml:"dsn"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	Charset   string            `yaml:"charset"`
	ParseTime bool              `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type RedisRuntimeConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TLS      bool   `yaml:"tls"`
}

type RuntimePathsConfig struct {
	Logs   string `yaml:"logs"`
	Static string `yaml:"static"`
}

type MailRuntimeConfig struct {
	Enable    bool   `yaml:"enable"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Pass      string `yaml:"pass"`
	From      string `yaml:"from"`
	ReplyTo   string `yaml:"reply_to"`
	ResendKey string `yaml:"resend_key"`
}

type S3RuntimeConfig struct {
	Enable          bool   `yaml:"enable"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	CustomDomain    string `yaml:"custom_domain"`
	PathStyleAccess bool   `yaml:"path_style_access"`
}

// Load reads and validates the YAML config file at path.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := defaultAppConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	cfg.normalize()
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d in %q, expected 1-65535", cfg.Port, path)
	}
	if cfg.Database.Port < 1 || cfg.Database.Port > 65535 {
		return nil, fmt.Errorf("invalid database.port %d in %q, expected 1-65535", cfg.Database.Port, path)
	}
	if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
		return nil, fmt.Errorf("invalid redis.port %d in %q, expected 1-65535", cfg.Redis.Port, path)
	}
	if cfg.Redis.DB < 0 {
		return nil, fmt.Errorf("invalid redis.db %d in %q, expected >= 0", cfg.Redis.DB, path)
	}

	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port:     defaultPort,
		Env:      defaultEnv,
		MongoURL: defaultMongoURL,
		SiteName: "MotoHub",
		Database: DatabaseRuntimeConfig{
			Host:      defaultDBHost,
			Port:      defaultDBPort,
			User:      defaultDBUser,
			Password:  defaultDBPassword,
			Name:      defaultDBName,
			Charset:   defaultDBCharset,
			ParseTime: true,
			Loc:       defaultDBLoc,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
	}
}

func (c *AppConfig) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env == "" {
		c.Env = defaultEnv
	}
	c.MongoURL = strings.TrimSpace(c.MongoURL)
	if c.MongoURL == "" {
		c.MongoURL = defaultMongoURL
	}
	c.SiteName = strings.TrimSpace(c.SiteName)
	if c.SiteName == "" {
		c.SiteName = "MotoHub"
	}
	c.WebURL = strings.TrimRight(strings.TrimSpace(c.WebURL), "/")

	origins := make([]string, 0, len(c.AllowedOrigins))
	for _, origin := range c.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.AllowedOrigins = origins

	c.JWTSecret = strings.TrimSpace(c.JWTSecret)
	c.Timezone = strings.TrimSpace(c.Timezone)
	c.Paths.Logs = strings.TrimSpace(c.Paths.Logs)
	c.Paths.Static = strings.TrimSpace(c.Paths.Static)

	if c.Database.Host == "" {
		c.Database.Host = defaultDBHost
	}
	if c.Database.Port == 0 {
		c.Database.Port = defaultDBPort
	}
	if c.Redis.Host == "" && c.Redis.URL == "" {
		c.Redis.Host = defaultRedisHost
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = defaultRedisPort
	}
}

// DSNValue assembles the MySQL DSN, preferring an explicit dsn field.
func (c DatabaseRuntimeConfig) DSNValue() string {
	if v := strings.TrimSpace(c.DSN); v != "" {
		return v
	}

	host := strings.TrimSpace(c.Host)
	if host == "" {
		host = defaultDBHost
	}
	port := c.Port
	if port == 0 {
		port = defaultDBPort
	}
	user := strings.TrimSpace(c.User)
	if user == "" {
		user = defaultDBUser
	}
	password := strings.TrimSpace(c.Password)
	if password == "" {
		password = defaultDBPassword
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = defaultDBName
	}
	charset := strings.TrimSpace(c.Charset)
	if charset == "" {
		charset = defaultDBCharset
	}
	loc := strings.TrimSpace(c.Loc)
	if loc == "" {
		loc = defaultDBLoc
	}

	params := neturl.Values{}
	for key, value := range c.Params {
		k := strings.TrimSpace(key)
		v := strings.TrimSpace(value)
		if k != "" && v != "" {
			params.Set(k, v)
		}
	}
	if params.Get("charset") == "" {
		params.Set("charset", charset)
	}
	if params.Get("parseTime") == "" {
		params.Set("parseTime", strconv.FormatBool(c.ParseTime))
	}
	if params.Get("loc") == "" {
		params.Set("loc", loc)
	}

	auth := user
	if password != "" {
		auth += ":" + password
	}

	dsn := fmt.Sprintf("%s@tcp(%s)/%s", auth, net.JoinHostPort(host, strconv.Itoa(port)), name)
	if query := params.Encode(); query != "" {
		dsn += "?" + query
	}
	return dsn
}

// URLValue assembles the Redis connection URL, preferring an explicit url field.
func (c RedisRuntimeConfig) URLValue() string {
	if trimmed := strings.TrimSpace(c.URL); trimmed != "" {
		if strings.HasPrefix(trimmed, "redis://") || strings.HasPrefix(trimmed, "rediss://") {
			return trimmed
		}
		return "redis://" + trimmed
	}

	host := strings.TrimSpace(c.Host)
	if host == "" {
		host = defaultRedisHost
	}
	port := c.Port
	if port == 0 {
		port = defaultRedisPort
	}
	db := c.DB
	if db < 0 {
		db = defaultRedisDB
	}

	scheme := "redis"
	if c.TLS {
		scheme = "rediss"
	}

	u := &neturl.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + strconv.Itoa(db),
	}
	username := strings.TrimSpace(c.Username)
	password := strings.TrimSpace(c.Password)
	if username != "" {
		if password != "" {
			u.User = neturl.UserPassword(username, password)
		} else {
			u.User = neturl.User(username)
		}
	} else if password != "" {
		u.User = neturl.UserPassword("", password)
	}
	return u.String()
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}

func (c *AppConfig) LogDir() string {
	if c == nil {
		return ResolveRuntimePath("", "logs")
	}
	return ResolveRuntimePath(c.Paths.Logs, "logs")
}

func (c *AppConfig) StaticDir() string {
	if c == nil {
		return ResolveRuntimePath("", "static")
	}
	return ResolveRuntimePath(c.Paths.Static, "static")
}
