package store

import "time"

// SaveSlotRow is one row of the save_slots table. Payload holds the slot's
// JSON document; league and round are duplicated for querying.
type SaveSlotRow struct {
	Namespace string    `json:"namespace"`
	Name      string    `json:"name"`
	LeagueID  string    `json:"league_id"`
	Round     int       `json:"round"`
	Payload   []byte    `json:"payload"`
	SavedAt   time.Time `json:"saved_at"`
}
