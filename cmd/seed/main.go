package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/BelikanM/cub/internal/config"
	"github.com/BelikanM/cub/internal/database"
	"github.com/BelikanM/cub/internal/logger"
	"github.com/BelikanM/cub/internal/seed"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	command := "dev"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	var run func(*seed.Seeder) error
	switch command {
	case "dev":
		run = func(s *seed.Seeder) error { return s.SeedDev(seed.DefaultDevConfig()) }
	case "test":
		run = (*seed.Seeder).SeedTest
	case "clean":
		run = (*seed.Seeder).Clean
	default:
		fmt.Println("Usage: seed [dev|test|clean]")
		fmt.Println("  dev   - Seed development database with random data")
		fmt.Println("  test  - Seed a small fixed data set (password: " + seed.DefaultPassword + ")")
		fmt.Println("  clean - Remove seeded users and their rows")
		os.Exit(1)
	}

	if err := logger.Initialize(os.Getenv("LOG_LEVEL"), "logs/seed.log"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	driver, dsn := config.Database()
	if err := database.Initialize(driver, dsn, false); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(database.DB); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if err := run(seed.NewSeeder(database.DB)); err != nil {
		log.Fatalf("Seed %s failed: %v", command, err)
	}
	log.Printf("Seed %s complete", command)
}
