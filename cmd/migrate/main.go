package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/wellnest/backend/internal/infrastructure/config"
	"github.com/wellnest/backend/internal/infrastructure/logger"
	"github.com/wellnest/backend/internal/infrastructure/migration"
	"github.com/wellnest/backend/migrations"
)

const usage = `Wellnest schema migrations

Usage:
  migrate [flags] <command> [args]

Commands:
  up                    apply all pending migrations
  down                  revert all migrations
  steps <n>             apply n migrations, or revert when n is negative
  goto <version>        move to exactly <version>
  version               print the applied version
  force <version>       mark <version> applied and clear the dirty flag
  create <title> [desc] scaffold the next numbered up/down pair (needs -dir)
  list                  list the known migrations
  check                 verify every migration has a down file and a unique version

Flags:
`

var errUsage = errors.New("bad usage")

type options struct {
	dir      string
	logLevel string
}

func main() {
	var opts options
	flag.StringVar(&opts.dir, "dir", "", "read migrations from this directory instead of the compiled-in set")
	flag.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	// a missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	log, err := logger.New(&logger.Config{Level: opts.logLevel, Format: "console", Output: "stderr", TimeFormat: logger.DefaultTimeFormat})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	err = run(opts, flag.Args(), log)
	_ = logger.Sync(log)
	switch {
	case errors.Is(err, errUsage):
		flag.Usage()
		os.Exit(2)
	case err != nil:
		log.Error("Migration command failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(opts options, args []string, log *zap.Logger) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	src := fs.FS(migrations.FS)
	if opts.dir != "" {
		src = migration.Dir(opts.dir)
	}

	// commands that only touch the files
	switch cmd {
	case "create":
		if opts.dir == "" || len(rest) == 0 {
			return errUsage
		}
		desc := ""
		if len(rest) > 1 {
			desc = rest[1]
		}
		p, err := migration.Create(opts.dir, rest[0], desc)
		if err != nil {
			return err
		}
		log.Info("Migration created", zap.String("up", p.UpPath), zap.String("down", p.DownPath))
		return nil
	case "list":
		stems, err := migration.List(src)
		if err != nil {
			return err
		}
		for _, s := range stems {
			fmt.Println(s)
		}
		return nil
	case "check":
		return migration.Check(src)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := connect(cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := migration.New(db, src, log)
	if err != nil {
		return err
	}
	defer m.Close()

	switch cmd {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "steps", "step":
		n, err := intArg(rest)
		if err != nil {
			return err
		}
		return m.Steps(n)
	case "goto":
		n, err := intArg(rest)
		if err != nil || n < 0 {
			return errors.Join(errUsage, err)
		}
		return m.GoTo(uint(n))
	case "force":
		n, err := intArg(rest)
		if err != nil {
			return err
		}
		return m.Force(n)
	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("%d", v)
		if dirty {
			fmt.Print(" (dirty)")
		}
		fmt.Println()
		return nil
	}
	return errUsage
}

func connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func intArg(rest []string) (int, error) {
	if len(rest) == 0 {
		return 0, errUsage
	}
	n, err := strconv.Atoi(rest[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errUsage, rest[0])
	}
	return n, nil
}
