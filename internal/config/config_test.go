package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig はテスト用の設定ファイルを一時ディレクトリに書き出す。
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// clearEnv は上書き対象の環境変数を空にする。t.Setenvを使うためt.Parallelとは併用しない。
func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{"NEUROBREAK_BASE_URL", "NEUROBREAK_TOKEN", "PORT", "DB_PATH", "JWT_SECRET", "FRONTEND_URL", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("パスが空の場合はデフォルト値が使われること", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("YAMLファイルの値が読み込まれること", func(t *testing.T) {
		clearEnv(t)

		path := writeConfig(t, `
gateway:
  base_url: http://backend:9000
  token: file-token
backend:
  port: "9000"
  db_path: /data/calls.db
  jwt_secret: file-secret
  allowed_origins:
    - https://app.example.com
log:
  level: debug
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "http://backend:9000", cfg.Gateway.BaseURL)
		assert.Equal(t, "file-token", cfg.Gateway.Token)
		assert.Equal(t, "9000", cfg.Backend.Port)
		assert.Equal(t, "/data/calls.db", cfg.Backend.DBPath)
		assert.Equal(t, "file-secret", cfg.Backend.JWTSecret)
		assert.Equal(t, []string{"https://app.example.com"}, cfg.Backend.AllowedOrigins)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("環境変数がファイルの値より優先されること", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NEUROBREAK_BASE_URL", "http://env:8000")
		t.Setenv("PORT", "7000")
		t.Setenv("FRONTEND_URL", "http://a.example, http://b.example,")

		path := writeConfig(t, "gateway:\n  base_url: http://file:8000\nbackend:\n  port: \"9000\"\n")
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "http://env:8000", cfg.Gateway.BaseURL)
		assert.Equal(t, "7000", cfg.Backend.Port)
		assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Backend.AllowedOrigins)
	})

	t.Run("存在しないファイルの場合はエラーになること", func(t *testing.T) {
		clearEnv(t)

		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("不正なYAMLの場合はエラーになること", func(t *testing.T) {
		clearEnv(t)

		_, err := Load(writeConfig(t, "gateway: [unterminated"))
		assert.Error(t, err)
	})

	t.Run("不正なログレベルの場合はエラーになること", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LOG_LEVEL", "verbose")

		_, err := Load("")
		assert.ErrorContains(t, err, "log.level")
	})
}

func TestLogConfig_NewLogger(t *testing.T) {
	t.Parallel()

	t.Run("指定したレベルとJSON形式が設定されること", func(t *testing.T) {
		t.Parallel()

		logger := LogConfig{Level: "warn"}.NewLogger()
		assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
		assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
	})

	t.Run("不正なレベルの場合はinfoになること", func(t *testing.T) {
		t.Parallel()

		logger := LogConfig{Level: "???"}.NewLogger()
		assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	})
}
