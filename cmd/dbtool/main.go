// Command dbtool inspects and seeds the review database.
//
//	dbtool check                  print collection counts, the first pending entries and metrics
//	dbtool seed [-file demo.json] insert demo review entries and metric counters
//	dbtool hash-password <pass>   print an argon2id hash for ADMIN_PASSWORD_HASH
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"phishing-admin/internal/config"
	"phishing-admin/internal/repository"
	"phishing-admin/internal/service"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

var errUsage = errors.New("usage: dbtool [-config path] check|seed|hash-password")

func main() {
	_ = godotenv.Load()

	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		logrus.Fatalf("dbtool: %v", err)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("dbtool", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", envOr("CONFIG_PATH", "configs/config.yml"), "config file")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if cmd == "hash-password" {
		return hashPassword(rest, out)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store := repository.Open(cfg.Database, zap.NewNop())
	logrus.Infof("Connecting to %s database...", cfg.Database.Driver())
	if err := store.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logrus.Printf("Error closing database: %v", err)
		}
	}()
	logrus.Info("Connected!")

	if cfg.Database.Migrate {
		logrus.Info("Applying database migrations...")
		if err := store.MigrateDB(); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	repo := store.Reviews()
	switch cmd {
	case "check":
		return check(ctx, repo, out)
	case "seed":
		return seed(ctx, repo, rest)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func hashPassword(args []string, out io.Writer) error {
	if len(args) != 1 || args[0] == "" {
		return fmt.Errorf("%w: hash-password <password>", errUsage)
	}
	hash, err := service.HashPassword(args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
