// Schema migration runner for the examhall database. Wraps golang-migrate so
// deployments and local setups apply the same migration files the server
// expects to be in place.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/veduka/examhall-backend/internal/config"
)

func main() {
	migrationDir := flag.String("path", defaultMigrationDir(), "Directory containing the migration files")
	flag.Parse()

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; point it at the examhall database")
	}

	m, err := migrate.New("file://"+*migrationDir, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Cannot open migrations at %s: %v", *migrationDir, err)
	}

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		return
	}

	switch args[0] {
	case "up":
		run(m.Up(), "Schema is up to date")
	case "down":
		run(m.Down(), "Schema rolled back")
	case "steps":
		n := requireInt(args, "steps requires a step count, e.g. 'steps -1'")
		run(m.Steps(n), fmt.Sprintf("Applied %d step(s)", n))
	case "version":
		version, dirty, err := m.Version()
		if err == migrate.ErrNilVersion {
			fmt.Println("No migrations applied yet")
			return
		}
		if err != nil {
			log.Fatalf("Version lookup failed: %v", err)
		}
		fmt.Printf("Schema version %d (dirty: %t)\n", version, dirty)
	case "force":
		v := requireInt(args, "force requires a version argument")
		if err := m.Force(v); err != nil {
			log.Fatalf("Force failed: %v", err)
		}
		fmt.Printf("Schema version forced to %d\n", v)
	default:
		printUsage()
	}
}

func run(err error, okMsg string) {
	if err == migrate.ErrNoChange {
		fmt.Println("Nothing to do")
		return
	}
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	fmt.Println(okMsg)
}

func requireInt(args []string, usage string) int {
	if len(args) < 2 {
		log.Fatal(usage)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		log.Fatalf("Not a number: %q", args[1])
	}
	return n
}

func defaultMigrationDir() string {
	if dir := os.Getenv("MIGRATIONS_PATH"); dir != "" {
		return dir
	}
	return "migrations"
}

func printUsage() {
	fmt.Println("Usage: migrate [flags] <command>")
	fmt.Println("Commands: up, down, steps <n>, version, force <version>")
	fmt.Println("Flags:")
	flag.PrintDefaults()
}
