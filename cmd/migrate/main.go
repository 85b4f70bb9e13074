package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/osm2svg/internal/pkg/config"
	"github.com/samirrijal/osm2svg/migrations"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	cfg, err := config.Load("osm2svg-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	var files []string
	switch os.Args[1] {
	case "up":
		files, err = migrations.Up()
	case "down":
		files, err = migrations.Down()
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
	if err != nil {
		log.Fatalf("list migrations: %v", err)
	}

	if err := run(ctx, pool, files); err != nil {
		log.Fatal(err)
	}
	log.Printf("%d migrations applied (%s)", len(files), os.Args[1])
}

func run(ctx context.Context, pool *pgxpool.Pool, files []string) error {
	for _, f := range files {
		sql, err := migrations.Read(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("exec %s: %w", f, err)
		}
		fmt.Printf("OK  %s\n", f)
	}
	return nil
}
