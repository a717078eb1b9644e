// Package seed populates a development database with material presets and a
// demo job so the API is explorable immediately after startup.
package seed

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var defaultMaterials = []struct {
	name       string
	pricePerKg float64
	notes      string
}{
	{"PLA", 20, "general purpose"},
	{"PETG", 24, "outdoor / functional parts"},
	{"ABS", 22, "heat resistant, enclosure recommended"},
}

const (
	demoCreatorID = "demo-creator"
	demoJobTitle  = "Demo: phone stand"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

// Run executes the startup seed in an idempotent way: re-running it never
// duplicates rows.
func Run(db *sql.DB) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := ensureMaterials(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureDemoJob(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureMaterials(tx *sql.Tx, stats *Stats) error {
	for _, m := range defaultMaterials {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM materials WHERE name = ? LIMIT 1)`, m.name).Scan(&exists); err != nil {
			return fmt.Errorf("check material existence: %w", err)
		}
		if exists {
			continue
		}

		if _, err := tx.Exec(`
			INSERT INTO materials (name, price_per_kg, notes, active)
			VALUES (?, ?, ?, TRUE)
		`, m.name, m.pricePerKg, m.notes); err != nil {
			return fmt.Errorf("insert material %q: %w", m.name, err)
		}
		stats.Inserts++
	}
	return nil
}

func ensureDemoJob(tx *sql.Tx, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM jobs WHERE creator_id = ? AND title = ? LIMIT 1)
	`, demoCreatorID, demoJobTitle).Scan(&exists); err != nil {
		return fmt.Errorf("check demo job existence: %w", err)
	}
	if exists {
		return nil
	}

	now := time.Now().UTC()
	jobID := uuid.NewString()
	if _, err := tx.Exec(`
		INSERT INTO jobs (id, creator_id, title, notes, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'SUBMITTED', ?, ?)
	`, jobID, demoCreatorID, demoJobTitle, "seeded demo data", now, now); err != nil {
		return fmt.Errorf("insert demo job: %w", err)
	}
	stats.Inserts++

	if _, err := tx.Exec(`
		INSERT INTO measurements (id, job_id, width_mm, depth_mm, height_mm, volume_mm3, triangle_count, valid, created_at)
		VALUES (?, ?, 70, 85, 110, 48250, 1284, TRUE, ?)
	`, uuid.NewString(), jobID, now); err != nil {
		return fmt.Errorf("insert demo measurement: %w", err)
	}
	stats.Inserts++

	for i, q := range []struct {
		maker string
		price string
		days  int
	}{
		{"demo-maker-a", "18.50", 4},
		{"demo-maker-b", "15.00", 7},
	} {
		if _, err := tx.Exec(`
			INSERT INTO quotes (id, job_id, maker_id, price, notes, delivery_days, status, created_at)
			VALUES (?, ?, ?, ?, '', ?, 'PENDING', ?)
		`, uuid.NewString(), jobID, q.maker, q.price, q.days, now.Add(time.Duration(i)*time.Second)); err != nil {
			return fmt.Errorf("insert demo quote: %w", err)
		}
		stats.Inserts++
	}

	return nil
}
