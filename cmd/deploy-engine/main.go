// Command deploy-engine runs the project deployment orchestration service.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/libra-dev/deploy-engine/internal/bootstrap"
)

func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	service, err := bootstrap.NewService(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize deploy-engine service: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		_ = service.Close(ctx)
		_ = service.Logger.Sync()
	}()

	service.Run()
}
