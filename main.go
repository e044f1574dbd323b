package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/exgaso/armory-http/logger"
	"github.com/exgaso/armory-http/progress"
	"github.com/exgaso/armory-http/server"
	"github.com/exgaso/armory-http/tui"
)

func main() {
	_ = godotenv.Load()
	cfg := server.FromEnv()

	flag.StringVar(&cfg.Root, "dir", cfg.Root, "Directory to serve files from")
	flag.StringVar(&cfg.UploadDir, "upload-dir", cfg.UploadDir, "Directory uploaded files are written to")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "Port to listen on")
	flag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Write logs to this file (rotated) instead of stderr")
	flag.BoolVar(&cfg.TUI, "tui", cfg.TUI, "Show the interactive dashboard instead of plain console output")
	flag.Parse()

	// the port can also be given as the single positional argument
	if arg := flag.Arg(0); arg != "" {
		port, err := strconv.Atoi(arg)
		if err != nil || port < 1 || port > 65535 {
			fmt.Fprintln(os.Stderr, "Invalid port number. Please specify a number between 1 and 65535.")
			os.Exit(1)
		}
		cfg.Port = port
	}

	logger.Setup(cfg.LogFile, cfg.TUI)

	var reporter progress.Factory = progress.NewConsole(os.Stdout)
	if cfg.TUI {
		reporter = progress.Discard{}
	}

	srvr, err := server.New(cfg, reporter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.TUI {
		errCh := make(chan error, 1)
		go func() {
			errCh <- srvr.Start(ctx)
		}()

		// a failed bind quits the dashboard and comes back as tui.Start's error
		if err := tui.Start(srvr, srvr.Events(), errCh); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cancel()
		return
	}

	color.New(color.FgGreen, color.Bold).Fprintf(os.Stderr, "armory-http")
	fmt.Fprintf(os.Stderr, " serving %s on port %d (uploads: %s)\n", cfg.Root, cfg.Port, cfg.UploadDir)

	if err := srvr.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
