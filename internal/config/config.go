package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppPort       string `yaml:"app_port"`
	DBDSN         string `yaml:"db_dsn"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`

	JWTSecret     string `yaml:"jwt_secret"`
	JWTExpiresMin int    `yaml:"jwt_expires_min"`

	// How long an unauthenticated websocket may sit before eviction.
	WSAuthTimeout time.Duration `yaml:"ws_auth_timeout"`

	Matching MatchingConfig `yaml:"matching"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Payment  PaymentConfig  `yaml:"payment"`
}

// MatchingConfig tunes the contractor ranking policy. Weights are relative;
// they are normalized against their sum at scoring time.
type MatchingConfig struct {
	TopN          int     `yaml:"top_n"`
	HorizonDays   int     `yaml:"horizon_days"`
	WeightRating  float64 `yaml:"weight_rating"`
	WeightGeo     float64 `yaml:"weight_proximity"`
	WeightHistory float64 `yaml:"weight_completed"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type PaymentConfig struct {
	APIKey       string `yaml:"api_key"`
	PrivateKey   string `yaml:"private_key"`
	MerchantCode string `yaml:"merchant_code"`
	BaseURL      string `yaml:"base_url"`
	// Where the processor posts payment results back to us.
	CallbackURL string `yaml:"callback_url"`
	ReturnURL   string `yaml:"return_url"`
}

// Load reads configuration from the environment. When CONFIG_FILE points at
// a YAML file, its values overlay the env-derived ones (used for matcher
// tuning without redeploys).
func Load() Config {
	expires, _ := strconv.Atoi(get("JWT_EXPIRES_MIN", "10080"))
	wsAuth, _ := strconv.Atoi(get("WS_AUTH_TIMEOUT_SEC", "30"))
	smtpPort, _ := strconv.Atoi(get("SMTP_PORT", "587"))

	cfg := Config{
		AppPort:       get("APP_PORT", "8080"),
		DBDSN:         must("DB_DSN"),
		RedisAddr:     get("REDIS_ADDR", "localhost:6379"),
		RedisPassword: get("REDIS_PASSWORD", ""),
		JWTSecret:     must("JWT_SECRET"),
		JWTExpiresMin: expires,
		WSAuthTimeout: time.Duration(wsAuth) * time.Second,
		Matching:      DefaultMatching(),
		SMTP: SMTPConfig{
			Host:     get("SMTP_HOST", ""),
			Port:     smtpPort,
			Username: get("SMTP_USERNAME", ""),
			Password: get("SMTP_PASSWORD", ""),
			From:     get("SMTP_FROM", "no-reply@homefix.app"),
		},
		Payment: PaymentConfig{
			APIKey:       get("PAYMENT_API_KEY", ""),
			PrivateKey:   get("PAYMENT_PRIVATE_KEY", ""),
			MerchantCode: get("PAYMENT_MERCHANT_CODE", ""),
			BaseURL:      get("PAYMENT_BASE_URL", ""),
			CallbackURL:  get("PAYMENT_CALLBACK_URL", ""),
			ReturnURL:    get("PAYMENT_RETURN_URL", ""),
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := overlay(&cfg, path); err != nil {
			panic(fmt.Sprintf("config file %s: %v", path, err))
		}
	}

	return cfg
}

func DefaultMatching() MatchingConfig {
	return MatchingConfig{
		TopN:          10,
		HorizonDays:   14,
		WeightRating:  1,
		WeightGeo:     1,
		WeightHistory: 1,
	}
}

func overlay(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return yaml.NewDecoder(f).Decode(cfg)
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
