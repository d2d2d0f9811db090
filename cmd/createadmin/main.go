// Command createadmin seeds an admin account, the only role that cannot be
// created through the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"acadence/internal/config"
	"acadence/internal/logging"
	"acadence/internal/school"
	"acadence/internal/store"
)

func main() {
	name := flag.String("name", "Administrator", "display name")
	email := flag.String("email", "", "login email (required)")
	password := flag.String("password", "", "initial password (required, min 6 chars)")
	flag.Parse()

	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	logger, err := logging.New(cfg.Production(), cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if _, err := store.Migrate(ctx, db.Client); err != nil {
			logger.Fatal("migrate failed", zap.Error(err))
		}
	}

	svc := school.NewService(store.NewPostgres(db.Client), school.WithLogger(logger))
	u, err := svc.CreateAccount(ctx, school.NewAccount{
		Name:     *name,
		Email:    *email,
		Password: *password,
		Role:     school.RoleAdmin,
		Verified: true,
	})
	switch {
	case err == nil:
		fmt.Printf("admin created: %s (%s)\n", u.Email, u.ID)
	case school.KindOf(err) == school.KindConflict:
		fmt.Printf("an account with email %s already exists\n", school.NormalizeEmail(*email))
	default:
		logger.Fatal("create admin failed", zap.Error(err))
	}
}
