// Управление конфигурацией сервера редактора из переменных окружения.
//
// Основные возможности:
//   - Загрузка конфигурации из переменных окружения по тегам env.
//   - Преобразование типов (string, int, bool, time.Duration).
//   - Маскировка секретных значений в логах.
//   - Значения по умолчанию и ограничение интервала автосохранения.
package config

import (
	"log/slog"
	"net/url"
	"reflect"
	"strings"
	"time"
)

const (
	DefaultAutosaveInterval = 30
	MinAutosaveInterval     = 5
	MaxAutosaveInterval     = 3600
)

type Config struct {
	ListenAddr  string `env:"LISTEN_ADDR"`
	MetricsAddr string `env:"METRICS_ADDR"`

	DatabasePath string `env:"DATABASE_PATH"`
	// при заданном DATABASE_URL используется PostgreSQL вместо SQLite
	DatabaseDSN string `env:"DATABASE_URL"`

	RemoteSyncURLRaw string `env:"REMOTE_SYNC_URL"`
	RemoteSyncURL    *url.URL
	RemoteSyncToken  string        `env:"REMOTE_SYNC_TOKEN"`
	RemoteRetryMax   int           `env:"REMOTE_RETRY_MAX"`
	RemoteTimeout    time.Duration `env:"REMOTE_TIMEOUT"`

	AutosaveInterval int  `env:"AUTOSAVE_INTERVAL"`
	AutosaveDisabled bool `env:"AUTOSAVE_DISABLED"`

	PDFExportTimeout time.Duration `env:"PDF_EXPORT_TIMEOUT"`

	HighlightByDefault bool `env:"SYNTAX_HIGHLIGHTING"`

	AssetsPath    string `env:"ASSETS_PATH"`
	AWSEndpoint   string `env:"AWS_S3_ENDPOINT_URL"`
	AWSAccessKey  string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey  string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSBucketName string `env:"AWS_S3_BUCKET_NAME"`
	AWSUseSSL     bool   `env:"AWS_S3_USE_SSL"`

	FrontFilesPath string `env:"FRONT_PATH"`
}

// ReadConfig читает конфигурацию из окружения и подставляет значения по умолчанию.
func ReadConfig() *Config {
	config := &Config{}

	envConfig("env", config)

	if config.ListenAddr == "" {
		config.ListenAddr = ":8080"
	}
	if config.MetricsAddr == "" {
		config.MetricsAddr = ":2112"
	}
	if config.DatabasePath == "" {
		config.DatabasePath = "redactor.db"
	}
	if config.AssetsPath == "" {
		config.AssetsPath = "assets"
	}

	if config.RemoteSyncURLRaw != "" {
		u, err := url.Parse(config.RemoteSyncURLRaw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			slog.Error("REMOTE_SYNC_URL incorrect, remote sync disabled", "url", config.RemoteSyncURLRaw, "err", err)
		} else {
			config.RemoteSyncURL = u
		}
	}
	if config.RemoteRetryMax <= 0 {
		config.RemoteRetryMax = 3
	}
	if config.RemoteTimeout <= 0 {
		config.RemoteTimeout = 10 * time.Second
	}

	config.AutosaveInterval = ClampAutosaveInterval(config.AutosaveInterval)

	if config.PDFExportTimeout <= 0 {
		config.PDFExportTimeout = 15 * time.Second
	}

	return config
}

// ClampAutosaveInterval 0 и меньше означает значение по умолчанию, остальное ограничивается допустимым диапазоном.
func ClampAutosaveInterval(seconds int) int {
	if seconds <= 0 {
		return DefaultAutosaveInterval
	}
	return min(max(seconds, MinAutosaveInterval), MaxAutosaveInterval)
}

// MinioEnabled задано ли хранилище картинок в Minio.
func (c *Config) MinioEnabled() bool {
	return c.AWSEndpoint != "" && c.AWSBucketName != ""
}

// Присваивает полям в переданной структуре значения переменных. Название переменной для каждого поля лежит в теге этого поля.
func envConfig(key string, s interface{}) {
	v := reflect.ValueOf(s).Elem()
	typeParam := v.Type()
	for i := 0; i < v.NumField(); i++ {
		fName := typeParam.Field(i).Name
		fEnvTag := typeParam.Field(i).Tag.Get(key)

		if !Exist(fEnvTag) {
			continue
		}

		raw := GetEnv(fEnvTag)
		if raw == "" {
			continue
		}

		slog.Info("Set config value",
			slog.String("key", typeParam.Name()+"."+fName),
			slog.String("value", maskSecret(fName, raw)),
			slog.String("source", "ENVIRONMENT"),
		)

		switch v.Field(i).Interface().(type) {
		case string:
			v.Field(i).SetString(raw)
		case int:
			v.Field(i).SetInt(int64(GetIntEnv(fEnvTag)))
		case bool:
			v.Field(i).SetBool(GetBoolEnv(fEnvTag))
		case time.Duration:
			v.Field(i).SetInt(int64(GetDurationEnv(fEnvTag)))
		}
	}
}

// maskSecret оставляет первый и последний символ значений паролей, секретов и токенов.
func maskSecret(field, value string) string {
	name := strings.ToLower(field)
	if !strings.Contains(name, "pass") && !strings.Contains(name, "secret") && !strings.Contains(name, "token") {
		return value
	}
	runes := []rune(value)
	if len(runes) <= 2 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-1])
}
