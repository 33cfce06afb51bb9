// Package store persists device output and connection history to sqlite so
// the GUI's info panel can show recent readings and the operator can audit
// when the bench was connected.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the sqlite handle.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and bootstraps the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// sqlite allows one writer; recorder and API handlers share this handle.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS readings (
			reading_id  INTEGER PRIMARY KEY AUTOINCREMENT,
			line        TEXT NOT NULL,
			recorded_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS conn_events (
			event_id    INTEGER PRIMARY KEY AUTOINCREMENT,
			event       TEXT NOT NULL,
			port        TEXT NOT NULL DEFAULT '',
			recorded_at TIMESTAMP NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Reading is one line of device output with its arrival time.
type Reading struct {
	ID         int64     `json:"id"`
	Line       string    `json:"line"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ConnEvent is one connection lifecycle event.
type ConnEvent struct {
	ID         int64     `json:"id"`
	Event      string    `json:"event"`
	Port       string    `json:"port"`
	RecordedAt time.Time `json:"recorded_at"`
}

// RecordReading stores one line of device output.
func (s *Store) RecordReading(line string) error {
	_, err := s.db.Exec(
		"INSERT INTO readings (line, recorded_at) VALUES (?, ?)",
		line, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record reading: %w", err)
	}
	return nil
}

// RecordConnEvent stores a connection lifecycle event ("connected",
// "disconnected", "connect_failed") with the port it refers to.
func (s *Store) RecordConnEvent(event, port string) error {
	_, err := s.db.Exec(
		"INSERT INTO conn_events (event, port, recorded_at) VALUES (?, ?, ?)",
		event, port, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record connection event: %w", err)
	}
	return nil
}

// RecentReadings returns up to limit readings, newest first.
func (s *Store) RecentReadings(limit int) ([]Reading, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		"SELECT reading_id, line, recorded_at FROM readings ORDER BY reading_id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var readings []Reading
	for rows.Next() {
		var r Reading
		if err := rows.Scan(&r.ID, &r.Line, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// RecentConnEvents returns up to limit connection events, newest first.
func (s *Store) RecentConnEvents(limit int) ([]ConnEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		"SELECT event_id, event, port, recorded_at FROM conn_events ORDER BY event_id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query connection events: %w", err)
	}
	defer rows.Close()

	var events []ConnEvent
	for rows.Next() {
		var e ConnEvent
		if err := rows.Scan(&e.ID, &e.Event, &e.Port, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan connection event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
