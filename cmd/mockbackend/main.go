// 開発用バックエンドのエントリポイント。
// NeuroBreak APIと同じHTTP契約でパイプライン実行とモデレーションを提供し、
// フロントエンドやgatewayctlをモデル無しで動かせるようにする。
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/nao1215/neurobreak/internal/config"
	"github.com/nao1215/neurobreak/internal/mockbackend"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("設定の読み込みに失敗")
	}
	logger := logrus.NewEntry(cfg.Log.NewLogger()).WithField("service", "mockbackend")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := mockbackend.NewServer(ctx, cfg.Backend, logger)
	if err != nil {
		logger.WithError(err).Fatal("バックエンドの初期化に失敗")
	}

	runErr := server.Run(ctx)
	if err := server.Close(); err != nil {
		logger.WithError(err).Warn("データベースのクローズに失敗")
	}
	if runErr != nil {
		logger.WithError(runErr).Fatal("バックエンドの起動に失敗")
	}
}
