package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/BelikanM/cub/internal/config"
	"github.com/BelikanM/cub/internal/database"
	"github.com/BelikanM/cub/internal/models"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		runMigrationsUp()
	case "status":
		showStatus()
	default:
		fmt.Println("Usage: migrate [up|status]")
		fmt.Println("  up     - Create or update every table and index")
		fmt.Println("  status - Show row counts per table")
		os.Exit(1)
	}
}

func connect() {
	driver, dsn := config.Database()
	if err := database.Initialize(driver, dsn, false); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Printf("Database connected (%s)", driver)
}

func runMigrationsUp() {
	connect()
	defer database.Close()

	if err := database.Migrate(database.DB); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("All migrations completed successfully")
}

func showStatus() {
	connect()
	defer database.Close()

	tables := []struct {
		name  string
		model any
	}{
		{"users", &models.User{}},
		{models.TablePosts, &models.Post{}},
		{models.TableMedia, &models.MediaAsset{}},
		{models.TableFollows, &models.Follow{}},
	}
	for _, t := range tables {
		if !database.DB.Migrator().HasTable(t.model) {
			fmt.Printf("%-8s missing\n", t.name)
			continue
		}
		var n int64
		if err := database.DB.Model(t.model).Count(&n).Error; err != nil {
			log.Fatalf("Count %s failed: %v", t.name, err)
		}
		fmt.Printf("%-8s %d rows\n", t.name, n)
	}
}
