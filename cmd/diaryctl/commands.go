package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"personal-diary/internal/backup"
	"personal-diary/internal/config"
	"personal-diary/internal/domain"
	"personal-diary/internal/repository/sqlite"
	"personal-diary/internal/service"
	"personal-diary/internal/storage"
)

// Seeded by init when missing.
const (
	adminUsername = "admin"
	adminEmail    = "admin@example.com"
	adminPassword = "Admin123"
)

type cli struct {
	cfg    config.Config
	logger logrus.FieldLogger
	out    io.Writer
	// newStorage is replaced in tests.
	newStorage func(ctx context.Context) (storage.Service, error)
}

func (a *cli) flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.out)
	fs.StringVar(&a.cfg.Database.Path, "db", a.cfg.Database.Path, "sqlite database path")
	return fs
}

func (a *cli) openDB(ctx context.Context) (*sql.DB, error) {
	db, err := sqlite.Open(a.cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(ctx, db, a.logger); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (a *cli) services(db *sql.DB) (service.UserService, service.EntryService) {
	users := sqlite.NewUserRepository(db)
	entries := sqlite.NewEntryRepository(db)
	visibility, _ := domain.ParseVisibility(a.cfg.Entries.Visibility)
	return service.NewUserService(users, a.cfg.Security.BcryptCost),
		service.NewEntryService(entries, users, visibility, a.logger)
}

func (a *cli) initDB(ctx context.Context, args []string) error {
	fs := a.flags("init")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	users, _ := a.services(db)
	if _, err := users.GetByUsername(ctx, adminUsername); err == nil {
		fmt.Fprintf(a.out, "database %s ready; user %q already exists\n", a.cfg.Database.Path, adminUsername)
		return nil
	} else if !errors.Is(err, service.ErrUserNotFound) {
		return fmt.Errorf("look up admin: %w", err)
	}

	admin, err := users.Register(ctx, adminUsername, adminEmail, adminPassword)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	fmt.Fprintf(a.out, "database %s ready; created user %q (id %d) with password %s\n", a.cfg.Database.Path, admin.Username, admin.ID, adminPassword)
	return nil
}

func (a *cli) check(ctx context.Context, args []string) error {
	fs := a.flags("check")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := sqlite.Open(a.cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	tables, err := sqlite.Tables(ctx, db)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "connected to %s\n", a.cfg.Database.Path)
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tROWS")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%d\n", name, tables[name])
	}
	return w.Flush()
}

func (a *cli) exporter(ctx context.Context, db *sql.DB) (*backup.Exporter, error) {
	newStorage := a.newStorage
	if newStorage == nil {
		newStorage = func(ctx context.Context) (storage.Service, error) {
			return storage.NewS3FromConfig(ctx, storage.S3Options{
				Region:   a.cfg.Storage.Region,
				Profile:  a.cfg.AWS.Profile,
				Endpoint: a.cfg.Storage.Endpoint,
			})
		}
	}
	store, err := newStorage(ctx)
	if err != nil {
		return nil, err
	}
	users, entries := a.services(db)
	return backup.NewExporter(users, entries, store, backup.Options{
		Bucket:    a.cfg.Storage.Bucket,
		KeyPrefix: a.cfg.Storage.KeyPrefix,
	})
}

func requireUser(username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("--user is required")
	}
	return nil
}

func (a *cli) export(ctx context.Context, args []string) error {
	fs := a.flags("export")
	username := fs.StringP("user", "u", "", "username to export")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireUser(*username); err != nil {
		return err
	}

	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	exp, err := a.exporter(ctx, db)
	if err != nil {
		return err
	}
	res, err := exp.Export(ctx, *username)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "exported %d entries to %s\n", res.Entries, res.Location)
	return nil
}

func (a *cli) listExports(ctx context.Context, args []string) error {
	fs := a.flags("exports")
	username := fs.StringP("user", "u", "", "username whose exports to list")
	links := fs.Duration("links", 0, "also print download links valid for this long")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireUser(*username); err != nil {
		return err
	}

	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	exp, err := a.exporter(ctx, db)
	if err != nil {
		return err
	}
	objects, err := exp.List(ctx, *username)
	if err != nil {
		return err
	}
	if len(objects) == 0 {
		fmt.Fprintf(a.out, "no exports for %s\n", *username)
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tSIZE\tMODIFIED")
	for _, obj := range objects {
		modified := "-"
		if obj.LastModified != nil {
			modified = obj.LastModified.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", obj.Key, obj.Size, modified)
		if *links > 0 {
			url, err := exp.Link(ctx, obj.Key, *links)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "\t%s\t\n", url)
		}
	}
	return w.Flush()
}

func (a *cli) purgeExports(ctx context.Context, args []string) error {
	fs := a.flags("purge-exports")
	username := fs.StringP("user", "u", "", "username whose exports to delete")
	yes := fs.Bool("yes", false, "confirm deletion")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireUser(*username); err != nil {
		return err
	}
	if !*yes {
		return fmt.Errorf("refusing to delete exports of %s without --yes", *username)
	}

	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	exp, err := a.exporter(ctx, db)
	if err != nil {
		return err
	}
	if err := exp.Purge(ctx, *username); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted exports of %s\n", *username)
	return nil
}
