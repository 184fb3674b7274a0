// Package config はgatewayctlと開発用バックエンドの設定を読み込む。
//
// YAMLファイルを読み込んだ後、環境変数で上書きする。
// ファイルを指定しない場合はデフォルト値と環境変数だけで動作する。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config は設定全体。
type Config struct {
	Gateway GatewayConfig `yaml:"gateway"`
	Backend BackendConfig `yaml:"backend"`
	Log     LogConfig     `yaml:"log"`
}

// GatewayConfig はゲートウェイクライアントの接続設定。
type GatewayConfig struct {
	// BaseURL はバックエンドのベースURL。
	BaseURL string `yaml:"base_url"`
	// Token はBearerトークン。空の場合は付与しない。
	Token string `yaml:"token"`
}

// BackendConfig は開発用バックエンドの設定。
type BackendConfig struct {
	// Port はリッスンポート。
	Port string `yaml:"port"`
	// DBPath は呼び出し履歴を保存するSQLiteファイルのパス。
	DBPath string `yaml:"db_path"`
	// JWTSecret が設定されている場合、/api 以下でBearerトークンを要求する。
	JWTSecret string `yaml:"jwt_secret"`
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig はログ設定。
type LogConfig struct {
	// Level はlogrusのログレベル（debug, info, warn, error）。
	Level string `yaml:"level"`
}

// Default はデフォルト設定を返す。
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			BaseURL: "http://localhost:8000",
		},
		Backend: BackendConfig{
			Port:           "8000",
			DBPath:         "neurobreak.db",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load はpathのYAMLを読み込み、環境変数で上書きした設定を返す。
// pathが空の場合はファイルを読まない。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("設定ファイルのパースに失敗: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv は環境変数の値で設定を上書きする。
func (c *Config) applyEnv() {
	c.Gateway.BaseURL = getEnvOr("NEUROBREAK_BASE_URL", c.Gateway.BaseURL)
	c.Gateway.Token = getEnvOr("NEUROBREAK_TOKEN", c.Gateway.Token)
	c.Backend.Port = getEnvOr("PORT", c.Backend.Port)
	c.Backend.DBPath = getEnvOr("DB_PATH", c.Backend.DBPath)
	c.Backend.JWTSecret = getEnvOr("JWT_SECRET", c.Backend.JWTSecret)
	if origins := os.Getenv("FRONTEND_URL"); origins != "" {
		c.Backend.AllowedOrigins = splitList(origins)
	}
	c.Log.Level = getEnvOr("LOG_LEVEL", c.Log.Level)
}

// Validate は設定値を検証する。
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Backend.Port) == "" {
		errs = append(errs, errors.New("backend.port が空です"))
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level が不正です: %w", err))
	}
	return errors.Join(errs...)
}

// NewLogger はLogConfigに従ってJSON形式のlogrusロガーを生成する。
func (c LogConfig) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// splitList はカンマ区切りの文字列を空要素を除いて分割する。
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
