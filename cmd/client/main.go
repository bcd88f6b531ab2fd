package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andy6609/broadcast-chat/internal/client"
	"github.com/andy6609/broadcast-chat/internal/config"
	"github.com/mama165/sdk-go/logs"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return exitConfig, err
	}
	addr := flag.String("addr", cfg.ServerAddr, "chat server address")
	flag.Parse()

	log := logs.GetLoggerFromString(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Connecting to %s...\n", *addr)
	conn, err := client.Dial(ctx, *addr)
	if err != nil {
		return exitRuntime, err
	}
	fmt.Println("Connected!")

	c := client.New(conn, os.Stdin, os.Stdout,
		client.WithColours(cfg.Colours),
		client.WithLogger(log),
	)
	if err := c.Run(ctx); err != nil {
		return exitRuntime, err
	}
	return exitOK, nil
}
