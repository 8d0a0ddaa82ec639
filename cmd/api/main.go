package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sandeepkv93/endorsement-backend/internal/di"
	"github.com/sandeepkv93/endorsement-backend/internal/tools/common"
)

func main() {
	if err := common.LoadEnvFile(os.Getenv("ENV_FILE")); err != nil {
		log.Fatal(err)
	}
	a, err := di.InitializeApp()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := a.Run(ctx); err != nil {
		a.Logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
