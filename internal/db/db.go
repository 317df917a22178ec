package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string, logger *zap.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("database migrations applied")
	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS raid_bosses (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            tier TEXT NOT NULL,
            raid_type TEXT NOT NULL,
            cp_no_weather INT NOT NULL DEFAULT 0,
            cp_weather_boost INT NOT NULL DEFAULT 0,
            max_party_size INT NOT NULL DEFAULT 5,
            sprite TEXT NOT NULL DEFAULT '',
            aliases TEXT[] NOT NULL DEFAULT '{}',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS queue_tickets (
            id TEXT PRIMARY KEY,
            trainer_id TEXT NOT NULL,
            boss_id TEXT NOT NULL REFERENCES raid_bosses(id),
            status TEXT NOT NULL DEFAULT 'waiting'
                CHECK (status IN ('waiting', 'matched', 'cancelled', 'expired')),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            matched_at TIMESTAMPTZ
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS queue_tickets_one_waiting
            ON queue_tickets (trainer_id, boss_id) WHERE status = 'waiting';`,
		`CREATE TABLE IF NOT EXISTS parties (
            id TEXT PRIMARY KEY,
            boss_id TEXT NOT NULL REFERENCES raid_bosses(id),
            mode TEXT NOT NULL CHECK (mode IN ('queue', 'live')),
            host_trainer_id TEXT NOT NULL,
            max_size INT NOT NULL CHECK (max_size BETWEEN 1 AND 20),
            additional_trainers INT NOT NULL DEFAULT 0
                CHECK (additional_trainers BETWEEN 0 AND 9),
            status TEXT NOT NULL DEFAULT 'open'
                CHECK (status IN ('open', 'active', 'closed')),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            closed_at TIMESTAMPTZ
        );`,
		`CREATE TABLE IF NOT EXISTS party_members (
            party_id TEXT NOT NULL REFERENCES parties(id) ON DELETE CASCADE,
            trainer_id TEXT NOT NULL,
            role TEXT NOT NULL CHECK (role IN ('host', 'guest')),
            state TEXT NOT NULL DEFAULT 'joined'
                CHECK (state IN ('joined', 'ready', 'left', 'kicked')),
            kick_reason TEXT,
            gate_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
            joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            friend_gate_deadline TIMESTAMPTZ,
            PRIMARY KEY (party_id, trainer_id)
        );`,
		`CREATE TABLE IF NOT EXISTS party_messages (
            id TEXT PRIMARY KEY,
            party_id TEXT NOT NULL REFERENCES parties(id) ON DELETE CASCADE,
            sender_trainer_id TEXT,
            text TEXT NOT NULL,
            sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS party_messages_party_order
            ON party_messages (party_id, sent_at);`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return seedCatalog(db)
}

// seedCatalog loads the static boss reference data. Idempotent.
func seedCatalog(db *sqlx.DB) error {
	seeds := []struct {
		id, name, tier, raidType string
		cpNoWeather, cpBoost     int
		aliases                  string
	}{
		{"zapdos", "Zapdos", "5", "Legendary", 1902, 2378, "{}"},
		{"mewtwo", "Mewtwo", "5", "Legendary", 2387, 2984, "{mew2}"},
		{"rayquaza", "Rayquaza", "5", "Legendary", 2191, 2739, "{ray}"},
		{"mega-charizard-y", "Mega Charizard Y", "Mega", "Mega", 1651, 2064, "{zard}"},
		{"mega-gengar", "Mega Gengar", "Mega", "Mega", 1644, 2055, "{}"},
		{"gigantamax-pikachu", "G-max Pikachu", "G-max", "G-max", 987, 1234, "{gmax-pika}"},
		{"machamp", "Machamp", "3", "Regular", 1746, 2183, "{champ}"},
		{"tyranitar", "Tyranitar", "4", "Regular", 2103, 2629, "{ttar}"},
	}

	for _, s := range seeds {
		if _, err := db.Exec(
			`INSERT INTO raid_bosses (id, name, tier, raid_type, cp_no_weather, cp_weather_boost, aliases)
             VALUES ($1, $2, $3, $4, $5, $6, $7)
             ON CONFLICT (id) DO NOTHING`,
			s.id, s.name, s.tier, s.raidType, s.cpNoWeather, s.cpBoost, s.aliases,
		); err != nil {
			return err
		}
	}
	return nil
}
