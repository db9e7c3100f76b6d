package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"chimed/internal/app"
)

func main() {
	var (
		cfgPath  string
		logLevel string
	)
	pflag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml")
	pflag.StringVar(&logLevel, "log-level", "", "override logging.level (trace|debug|info|warn|error)")
	pflag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath, logLevel)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	if err := a.Start(ctx); err != nil {
		fmt.Println("fatal start:", err)
		os.Exit(1)
	}

	<-ctx.Done()
	_ = a.Stop(10 * time.Second)
}
