// Command diaryctl runs operator tasks against the diary database and export bucket.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"personal-diary/internal/config"
)

const usage = `usage: diaryctl <command> [flags]

commands:
  init            apply migrations and create the admin account
  check           test the database connection and list tables
  export          upload a user's entries as JSON to the export bucket
  exports         list a user's stored exports
  purge-exports   delete every stored export of a user
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if err := run(ctx, cfg, logger, os.Args[1:], os.Stdout); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger logrus.FieldLogger, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return fmt.Errorf("missing command")
	}

	app := &cli{cfg: cfg, logger: logger, out: out}
	switch args[0] {
	case "init":
		return app.initDB(ctx, args[1:])
	case "check":
		return app.check(ctx, args[1:])
	case "export":
		return app.export(ctx, args[1:])
	case "exports":
		return app.listExports(ctx, args[1:])
	case "purge-exports":
		return app.purgeExports(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}
