// Основной пакет сервера редактора. Читает конфигурацию, открывает базу данных (SQLite или PostgreSQL),
// мигрирует модели и запускает сервер.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aisa-it/redactor/internal/redactor"
	"github.com/aisa-it/redactor/internal/redactor/config"
	"github.com/aisa-it/redactor/internal/redactor/dao"
	"github.com/aisa-it/redactor/internal/redactor/gormlogger"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var version string = "DEV"

// Пример запуска: go run main.go --trace --noMigration
func main() {
	paramQueries := flag.Bool("paramQueries", true, "Mask queries params in log")
	noMigration := flag.Bool("noMigration", false, "Turn off DB migration")
	trace := flag.Bool("trace", false, "Verbose logs and sql trace")
	flag.Parse()

	PrintBanner()

	cfg := config.ReadConfig()

	if *trace {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	// Set prod log format
	if version != "DEV" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})))
	}

	slog.Info("Redactor start.")

	var dialector gorm.Dialector
	if cfg.DatabaseDSN != "" {
		dialector = postgres.New(postgres.Config{DSN: cfg.DatabaseDSN})
	} else {
		dialector = sqlite.Open(cfg.DatabasePath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.NewGormLogger(slog.Default(), time.Second*4, *paramQueries),
	})
	if err != nil {
		slog.Error("Fail init DB connection", "err", err)
		os.Exit(1)
	}

	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Fail set settings to conn pool", "err", err)
		os.Exit(1)
	}
	if cfg.DatabaseDSN != "" {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(time.Hour)
	} else {
		// sqlite пишет одним соединением
		sqlDB.SetMaxOpenConns(1)
	}

	if !*noMigration {
		if err := db.AutoMigrate(dao.Models...); err != nil {
			slog.Error("Migrate models", "err", err)
			os.Exit(1)
		}
	}

	redactor.Server(db, cfg, version)
}

// PrintBanner выводит заголовок приложения с версией.
func PrintBanner() {
	banner := `
              _            _
 _ __ ___  __| | __ _  ___| |_ ___  _ __
| '__/ _ \/ _  |/ _  |/ __| __/ _ \| '__|
| | |  __/ (_| | (_| | (__| || (_) | |
|_|  \___|\__,_|\__,_|\___|\__\___/|_|   %s
Rich text documents with export and sync
------------------------------------------
`
	colorReset := "\033[0m"
	colorYellow := "\033[33m"

	formattedVersion := version
	if version == "DEV" {
		formattedVersion = colorYellow + version + colorReset
	}

	fmt.Printf(banner, formattedVersion)
}
