package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
)

// Duration — time.Duration, который yaml.v2 умеет читать из "5s"/"15m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

// Config ...
type Config struct {
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	DB string `yaml:"db_dsn"`
	// Store: postgres | memory (dry-run без БД)
	Store   string `yaml:"store"`
	Service struct {
		Host      string `yaml:"host"`
		AdminPort int    `yaml:"admin_port"`
	} `yaml:"service"`

	Market struct {
		BaseURL string   `yaml:"base_url"`
		WSURL   string   `yaml:"ws_url"`
		Timeout Duration `yaml:"timeout"`
	} `yaml:"market"`

	News struct {
		Enabled bool     `yaml:"enabled"`
		BaseURL string   `yaml:"base_url"`
		Timeout Duration `yaml:"timeout"`
	} `yaml:"news"`

	Scores struct {
		BaseURL string   `yaml:"base_url"`
		Timeout Duration `yaml:"timeout"`
	} `yaml:"scores"`

	Monitor struct {
		// Полный проход по открытым позициям раз в Interval
		Interval       Duration `yaml:"interval"`
		PartialPct     float64  `yaml:"partial_pct"`
		NotifyCooldown Duration `yaml:"notify_cooldown"`
		// warn_close | hold — поведение при недоступном реанализе
		ReanalysisFailMode string `yaml:"reanalysis_fail_mode"`
	} `yaml:"monitor"`

	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`
}

func NewConfig() (*Config, error) {
	// .env не обязателен, локально удобно
	_ = godotenv.Load()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		log.Fatalf("Failed to open config file: %v", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := yaml.NewDecoder(file)
	config := Config{}

	// дефолты до декодирования, yaml их перекрывает
	config.Store = "postgres"
	config.Service.AdminPort = 8080
	config.Market.Timeout = Duration(5 * time.Second)
	config.News.Timeout = Duration(5 * time.Second)
	config.Scores.Timeout = Duration(5 * time.Second)
	config.Monitor.Interval = Duration(durationFromEnv("MONITOR_INTERVAL", "60s"))
	config.Monitor.PartialPct = floatFromEnv("PARTIAL_CLOSE_PCT", 50)
	config.Monitor.NotifyCooldown = Duration(durationFromEnv("NOTIFY_COOLDOWN", "15m"))
	config.Monitor.ReanalysisFailMode = getenvDefault("REANALYSIS_FAIL_MODE", "warn_close")

	err = decoder.Decode(&config)
	if err != nil {
		log.Fatalf("Failed to decode config file: %v", err)
	}

	token := os.Getenv(tokenTelegramENV)
	if token != "" {
		config.Telegram.Token = token
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Telegram.ChatID = id
		}
	}

	dsn := os.Getenv(databaseDSN)
	if dsn != "" {
		config.DB = dsn
	}

	return &config, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
