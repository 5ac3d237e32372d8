package main

import (
	"context"
	"net/http"

	"github.com/croissant676/SpyfallServer/internal/config"
	"github.com/croissant676/SpyfallServer/internal/httpapi"
	"github.com/croissant676/SpyfallServer/internal/protocol"
	"github.com/croissant676/SpyfallServer/internal/room"
	"github.com/croissant676/SpyfallServer/internal/words"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	list, err := words.Load(cfg.PromptsPath)
	if err != nil {
		sugar.Fatalw("loading word list", "path", cfg.PromptsPath, "err", err)
	}
	sugar.Infow("parsed word list", "entries", len(list))

	rm := room.New(context.Background(), room.Options{
		Words: list,
		Settings: protocol.Settings{
			NumImposter:  cfg.DefaultImposters,
			VoteInterval: cfg.DefaultVoteInterval,
		},
		Logger: sugar,
	})

	handler := httpapi.SetupRoutes(rm, sugar)

	sugar.Infow("listening", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		sugar.Fatalw("server stopped", "err", err)
	}
}

func newLogger(level string) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zap.Must(zapCfg.Build())
}
