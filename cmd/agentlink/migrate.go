package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/BaSui01/agentlink/internal/database"
	"github.com/BaSui01/agentlink/internal/migration"
)

// runMigrate handles `agentlink migrate <up|down|version|force>`.
func runMigrate(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: agentlink migrate <up|down|version|force> [options]")
		os.Exit(1)
	}
	subcommand := args[0]

	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args[1:])

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	db, err := database.Open(cfg.History, logger)
	if err != nil {
		logger.Fatal("database open failed", zap.Error(err))
	}
	defer database.Close(db)

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("database handle unavailable", zap.Error(err))
	}

	mg, err := migration.New(sqlDB, cfg.History.Driver, logger)
	if err != nil {
		logger.Fatal("migrator setup failed", zap.Error(err))
	}

	switch subcommand {
	case "up":
		if err := mg.Up(); err != nil {
			logger.Fatal("migrate up failed", zap.Error(err))
		}
		fmt.Println("migrations applied")
	case "down":
		if err := mg.Down(); err != nil {
			logger.Fatal("migrate down failed", zap.Error(err))
		}
		fmt.Println("last migration rolled back")
	case "version":
		version, dirty, err := mg.Version()
		if err != nil {
			logger.Fatal("migrate version failed", zap.Error(err))
		}
		fmt.Printf("version: %d dirty: %v\n", version, dirty)
	case "force":
		rest := fs.Args()
		if len(rest) < 1 {
			fmt.Fprintln(os.Stderr, "Usage: agentlink migrate force <version>")
			os.Exit(1)
		}
		v, err := strconv.Atoi(rest[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid version: %s\n", rest[0])
			os.Exit(1)
		}
		if err := mg.Force(v); err != nil {
			logger.Fatal("migrate force failed", zap.Error(err))
		}
		fmt.Printf("version forced to %d\n", v)
	default:
		fmt.Fprintf(os.Stderr, "Unknown migrate subcommand: %s\n", subcommand)
		os.Exit(1)
	}
}
