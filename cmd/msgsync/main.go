package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"portfolio-messageboard/backend/internal/service"
	"portfolio-messageboard/backend/pkg/config"
	"portfolio-messageboard/backend/pkg/di"
	"portfolio-messageboard/backend/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	exportPtr := flag.Bool("export", false, "Copy the remote comment thread into the local file store")
	importPtr := flag.Bool("import", false, "Post public messages from the local file store to the remote thread")
	listPtr := flag.String("list", "", "Print every message held by a backend (github, file or redis) as JSON")
	helpPtr := flag.Bool("help", false, "Show usage information")

	flag.Parse()

	if *helpPtr || (!*exportPtr && !*importPtr && *listPtr == "") {
		fmt.Println("Message board sync usage:")
		fmt.Println("  -export         Copy the remote comment thread into the local file store")
		fmt.Println("  -import         Post public local messages to the remote comment thread")
		fmt.Println("  -list <name>    Print every message held by a backend as JSON")
		fmt.Println("  -help           Show this help message")
		os.Exit(0)
	}

	godotenv.Load()
	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"
	logConfig.Output = os.Stderr
	log := logger.New(logConfig)
	logger.SetGlobal(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := di.New(ctx, cfg, log)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}
	defer container.Close()

	if err := run(ctx, container, *exportPtr, *importPtr, *listPtr); err != nil {
		log.LogError(err, "Sync failed")
		container.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, container *di.Container, export, imp bool, list string) error {
	remote, err := container.Repository(config.BackendGitHub)
	if err != nil {
		return err
	}
	local, err := container.Repository(config.BackendFile)
	if err != nil {
		return err
	}

	syncer := service.NewSyncer(container.Logger)

	if export {
		result, err := syncer.Copy(ctx, remote, local, nil)
		if err != nil {
			return err
		}
		fmt.Printf("exported %d messages (%d already present)\n", result.Copied, result.Skipped)
	}

	if imp {
		result, err := syncer.Copy(ctx, local, remote, service.PublicOnly)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d messages (%d already present)\n", result.Copied, result.Skipped)
	}

	if list != "" {
		repo, err := container.Repository(list)
		if err != nil {
			return err
		}
		msgs, err := repo.ListAll(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(msgs)
	}

	return nil
}
