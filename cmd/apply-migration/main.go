package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"yourloops-dashboard/common/database"
	"yourloops-dashboard/common/logger"
	"yourloops-dashboard/internal/config"

	"go.uber.org/zap"
)

func main() {
	log, err := logger.NewLogger("info", "console", "apply-migration")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if len(os.Args) < 2 {
		log.Fatal(fmt.Sprintf("Usage: %s <migration_file.sql>", os.Args[0]))
	}
	migrationFile := os.Args[1]
	sqlContent, err := os.ReadFile(migrationFile)
	if err != nil {
		log.Fatal("Failed to read migration file", zap.String("file", migrationFile), zap.Error(err))
	}

	cfg := config.Load()
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Cannot connect to database", zap.Error(err))
	}
	defer db.Close()
	log.Info("Connected to database", zap.String("database", cfg.Database.Database))

	statements := splitStatements(string(sqlContent))
	for i, stmt := range statements {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		_, err := db.ExecContext(ctx, stmt)
		cancel()
		if err != nil {
			log.Fatal("Failed to execute statement",
				zap.Int("index", i+1),
				zap.String("statement", stmt[:min(100, len(stmt))]),
				zap.Error(err),
			)
		}
		log.Info("Statement executed", zap.Int("index", i+1), zap.Int("total", len(statements)))
	}

	log.Info("Migration completed", zap.String("file", migrationFile))
}

// splitStatements drops "--" comment lines and splits the rest on ";".
func splitStatements(content string) []string {
	var b strings.Builder
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	var out []string
	for _, stmt := range strings.Split(b.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
