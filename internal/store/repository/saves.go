package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fortuna/predictor/internal/league"
	"github.com/fortuna/predictor/internal/saves"
	"github.com/fortuna/predictor/internal/store"
)

// SaveSlotRepository stores save slots in PostgreSQL. It satisfies
// saves.Backend.
type SaveSlotRepository struct {
	db *store.Database
}

// NewSaveSlotRepository creates a new save slot repository
func NewSaveSlotRepository(db *store.Database) *SaveSlotRepository {
	return &SaveSlotRepository{db: db}
}

// LoadAll returns every slot in namespace keyed by name
func (r *SaveSlotRepository) LoadAll(ctx context.Context, namespace string) (map[string]saves.Slot, error) {
	query := `
		SELECT namespace, name, league_id, round, payload, saved_at
		FROM save_slots
		WHERE namespace = $1
	`

	rows, err := r.db.DB().QueryContext(ctx, query, namespace)
	if err != nil {
		return nil, fmt.Errorf("querying save slots: %w", err)
	}
	defer rows.Close()

	slots := map[string]saves.Slot{}
	for rows.Next() {
		var row store.SaveSlotRow
		if err := rows.Scan(&row.Namespace, &row.Name, &row.LeagueID, &row.Round, &row.Payload, &row.SavedAt); err != nil {
			return nil, fmt.Errorf("scanning save slot: %w", err)
		}
		slot, err := slotFromRow(row)
		if err != nil {
			return nil, err
		}
		slots[slot.Name] = slot
	}
	return slots, rows.Err()
}

// ReplaceAll rewrites namespace to hold exactly slots, in one transaction
func (r *SaveSlotRepository) ReplaceAll(ctx context.Context, namespace string, slots map[string]saves.Slot) error {
	tx, err := r.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM save_slots WHERE namespace = $1`, namespace); err != nil {
		return fmt.Errorf("clearing save slots: %w", err)
	}

	insert := `
		INSERT INTO save_slots (namespace, name, league_id, round, payload, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, slot := range slots {
		row, err := rowFromSlot(namespace, slot)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insert, row.Namespace, row.Name, row.LeagueID, row.Round, row.Payload, row.SavedAt); err != nil {
			return fmt.Errorf("inserting save slot %s: %w", slot.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing save slots: %w", err)
	}
	return nil
}

// Namespaces returns every namespace holding at least one slot
func (r *SaveSlotRepository) Namespaces(ctx context.Context) ([]string, error) {
	rows, err := r.db.DB().QueryContext(ctx, `SELECT DISTINCT namespace FROM save_slots ORDER BY namespace`)
	if err != nil {
		return nil, fmt.Errorf("querying namespaces: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, fmt.Errorf("scanning namespace: %w", err)
		}
		out = append(out, ns)
	}
	return out, rows.Err()
}

func rowFromSlot(namespace string, slot saves.Slot) (store.SaveSlotRow, error) {
	payload, err := json.Marshal(slot)
	if err != nil {
		return store.SaveSlotRow{}, fmt.Errorf("encoding save slot %s: %w", slot.Name, err)
	}
	return store.SaveSlotRow{
		Namespace: namespace,
		Name:      slot.Name,
		LeagueID:  slot.LeagueID,
		Round:     slot.SelectedRound,
		Payload:   payload,
		SavedAt:   slot.Timestamp.UTC(),
	}, nil
}

func slotFromRow(row store.SaveSlotRow) (saves.Slot, error) {
	var slot saves.Slot
	if err := json.Unmarshal(row.Payload, &slot); err != nil {
		return saves.Slot{}, fmt.Errorf("decoding save slot %s: %w", row.Name, err)
	}
	slot.Name = row.Name
	slot.Timestamp = row.SavedAt.UTC()
	if slot.Scores == nil {
		slot.Scores = league.Scores{}
	}
	return slot, nil
}
