package main

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mauv0809/legend-tracker/internal/database"
)

// Simplified config loading for the script
func loadConfig() map[string]string {
	err := godotenv.Load()
	if err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}

	config := map[string]string{
		"DB_NAME":        "./data/legend-tracker.db",
		"MIGRATIONS_DIR": "./migrations",
		"SEED_COUNT":     "500",
	}
	for _, key := range []string{"DB_NAME", "MIGRATIONS_DIR", "SEED_COUNT", "TURSO_PRIMARY_URL", "TURSO_AUTH_TOKEN"} {
		if value, ok := os.LookupEnv(key); ok {
			config[key] = value
		}
	}
	return config
}

// tagAlphabet holds the characters used in Clash of Clans player tags.
const tagAlphabet = "0289PYLQGRJCUV"

func randomTag() string {
	var b strings.Builder
	for i := 0; i < 8; i++ {
		b.WriteByte(tagAlphabet[rand.Intn(len(tagAlphabet))])
	}
	return b.String()
}

func main() {
	log.Info("Starting database seeder...")
	cfg := loadConfig()

	numPlayers, err := strconv.Atoi(cfg["SEED_COUNT"])
	if err != nil || numPlayers < 1 {
		log.Fatalf("Error: SEED_COUNT must be a positive integer, got %q", cfg["SEED_COUNT"])
	}

	db, teardown, err := database.InitDB(cfg["DB_NAME"], cfg["TURSO_PRIMARY_URL"], cfg["TURSO_AUTH_TOKEN"], cfg["MIGRATIONS_DIR"])
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer teardown()

	const batchSize = 100 // Insert 100 records at a time

	log.Info("Preparing to insert demo tracking records...", "total", numPlayers, "batch_size", batchSize)
	startTime := time.Now()

	tx, err := db.Begin()
	if err != nil {
		log.Fatalf("Failed to begin transaction: %s", err)
	}

	valueStrings := make([]string, 0, batchSize)
	valueArgs := make([]interface{}, 0, batchSize*9) // 9 columns per record
	today := time.Now().UTC().Format("2006-01-02")

	for i := 0; i < numPlayers; i++ {
		tag := randomTag()
		owner := fmt.Sprintf("seed-owner-%d", i%50)
		baseline := 5000 + rand.Intn(1500)
		current := baseline + rand.Intn(321) - 160

		if _, err := tx.Exec(`INSERT OR IGNORE INTO player_links (owner_id, player_tag, updated_at) VALUES (?, ?, ?)`,
			owner, tag, time.Now().Unix()); err != nil {
			tx.Rollback()
			log.Fatalf("Failed to insert demo link for %s: %s", owner, err)
		}

		valueStrings = append(valueStrings, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		valueArgs = append(valueArgs,
			uuid.NewString(),
			tag,
			owner,
			fmt.Sprintf("seed-channel-%d", i),
			current,
			baseline,
			nil, // previous_baseline_trophy
			today,
			time.Now().Add(-time.Duration(rand.Intn(30*24))*time.Hour).Unix(),
		)

		if (i+1)%batchSize == 0 || (i+1) == numPlayers {
			stmt := fmt.Sprintf(`
				INSERT OR IGNORE INTO tracked_players (id, player_tag, owner_id, destination_id, last_trophy_count,
					daily_baseline_trophy, previous_baseline_trophy, baseline_date, created_at)
				VALUES %s;`, strings.Join(valueStrings, ","))

			if _, err := tx.Exec(stmt, valueArgs...); err != nil {
				tx.Rollback()
				log.Fatalf("Failed to execute batch insert: %s", err)
			}

			// Reset for the next batch
			valueStrings = make([]string, 0, batchSize)
			valueArgs = make([]interface{}, 0, batchSize*9)
			log.Info("Inserted batch", "completed", i+1, "total", numPlayers)
		}
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("Failed to commit transaction: %s", err)
	}

	log.Info("Successfully inserted all demo records.", "duration", time.Since(startTime))
}
