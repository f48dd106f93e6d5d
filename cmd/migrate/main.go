package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

const usage = "Usage: go run ./cmd/migrate [up|drop|seed]"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	command := os.Args[1]

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "up":
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("All tables created successfully")

	case "drop":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("All tables dropped successfully")

	case "seed":
		if err := seedData(ctx, conn); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Println("Data seeded successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func dropTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`DROP TABLE IF EXISTS chat_messages CASCADE`,
		`DROP TABLE IF EXISTS applications CASCADE`,
		`DROP TABLE IF EXISTS team_members CASCADE`,
		`DROP TABLE IF EXISTS recruitment_posts CASCADE`,
		`DROP TABLE IF EXISTS tournaments CASCADE`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("  Dropped: %s\n", query)
	}
	return nil
}

func createTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS recruitment_posts (
			id TEXT PRIMARY KEY,
			kind VARCHAR(10) NOT NULL CHECK (kind IN ('team', 'player')),
			game VARCHAR(100) NOT NULL,
			display_name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			image TEXT NOT NULL DEFAULT '',
			contact_link TEXT NOT NULL DEFAULT '',
			is_premium BOOLEAN NOT NULL DEFAULT false,
			author_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_active TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			max_members INTEGER NOT NULL DEFAULT 0,
			role_tags TEXT[] NOT NULL DEFAULT '{}'
		)`,

		// One row per roster entry; a team has at most one captain
		`CREATE TABLE IF NOT EXISTS team_members (
			team_id TEXT NOT NULL REFERENCES recruitment_posts(id) ON DELETE CASCADE,
			uid TEXT NOT NULL,
			name VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL CHECK (role IN ('captain', 'vice_captain', 'member')),
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (team_id, uid)
		)`,

		`CREATE TABLE IF NOT EXISTS applications (
			id TEXT PRIMARY KEY,
			team_id TEXT NOT NULL,
			applicant_id TEXT NOT NULL,
			applicant_name VARCHAR(255) NOT NULL,
			rank VARCHAR(100) NOT NULL DEFAULT '',
			role VARCHAR(100) NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL CHECK (status IN ('pending', 'accepted', 'rejected', 'kicked')),
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS chat_messages (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT UNIQUE NOT NULL,
			channel_id TEXT NOT NULL,
			text TEXT NOT NULL,
			sender_id TEXT NOT NULL,
			sender_name VARCHAR(255) NOT NULL,
			is_system BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS tournaments (
			id TEXT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			game VARCHAR(100) NOT NULL DEFAULT '',
			format VARCHAR(30) NOT NULL,
			participants TEXT[] NOT NULL DEFAULT '{}',
			matches JSONB NOT NULL DEFAULT '[]',
			version INTEGER NOT NULL DEFAULT 0,
			created_by TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE UNIQUE INDEX IF NOT EXISTS idx_team_members_captain ON team_members(team_id) WHERE role = 'captain'`,
		`CREATE INDEX IF NOT EXISTS idx_team_members_uid ON team_members(uid)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_kind_last_active ON recruitment_posts(kind, last_active DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_applications_team_status ON applications(team_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_applications_applicant ON applications(applicant_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_channel_seq ON chat_messages(channel_id, seq DESC)`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
		fmt.Printf("  Created: %s\n", getTableName(query))
	}
	return nil
}

// seedData adds a demo team with its captain and an open tournament
func seedData(ctx context.Context, conn *pgx.Conn) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	teamID := uuid.NewString()

	if _, err := tx.Exec(ctx, `
		INSERT INTO recruitment_posts (id, kind, game, display_name, description, author_id, created_at, last_active, max_members, role_tags)
		VALUES ($1, 'team', 'valorant', 'Alpha', 'Ranked five stack, evenings', 'seed-captain', $2, $2, 5, $3)`,
		teamID, now, []string{"duelist", "controller"}); err != nil {
		return fmt.Errorf("failed to seed team: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO team_members (team_id, uid, name, role, joined_at)
		VALUES ($1, 'seed-captain', 'Seed Captain', 'captain', $2)`,
		teamID, now); err != nil {
		return fmt.Errorf("failed to seed captain: %w", err)
	}
	fmt.Println("  Seeded team Alpha")

	if _, err := tx.Exec(ctx, `
		INSERT INTO tournaments (id, name, game, format, participants, matches, version, created_by, created_at, updated_at)
		VALUES ($1, 'Open Cup', 'valorant', 'single_elimination', $2, '[]', 0, 'seed-admin', $3, $3)`,
		uuid.NewString(), []string{"Alpha", "Bravo", "Charlie", "Delta"}, now); err != nil {
		return fmt.Errorf("failed to seed tournament: %w", err)
	}
	fmt.Println("  Seeded tournament Open Cup")

	return tx.Commit(ctx)
}

func getTableName(query string) string {
	query = strings.Join(strings.Fields(query), " ")
	if len(query) > 50 {
		return query[:50] + "..."
	}
	return query
}
