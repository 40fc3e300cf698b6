// Package diagnostics writes the per-stream failure-reason table:
// failed streams produce no metric rows but do produce a
// failure-reason entry in a diagnostic table, one row per failure,
// carrying step, failure kind, and descriptive text. It uses the same
// Postgres access pattern as the rest of the engine (database/sql +
// lib/pq, explicit transactions); any insert error, including a
// unique violation, rolls the transaction back and is returned.
package diagnostics

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/GeoNet/gm-engine/internal/platform/cfg"
	"github.com/GeoNet/gm-engine/internal/waveform"
)

// PostgresSink writes stream failure reasons to a Postgres table.
type PostgresSink struct {
	db *sql.DB
}

// Open connects to Postgres using p and verifies the connection with
// a ping.
func Open(p cfg.Postgres) (*PostgresSink, error) {
	db, err := sql.Open("postgres", p.Connection()+" statement_timeout=600000")
	if err != nil {
		return nil, fmt.Errorf("diagnostics: opening db: %w", err)
	}
	db.SetMaxIdleConns(p.MaxIdle)
	db.SetMaxOpenConns(p.MaxOpen)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("diagnostics: pinging db: %w", err)
	}
	return &PostgresSink{db: db}, nil
}

// Close closes the underlying database connection pool.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}

// Row is one entry in the failure-reason diagnostic table.
type Row struct {
	EventID  string
	Network  string
	Station  string
	Location string
	Kind     waveform.Kind
	Stage    string
	Text     string
	Recorded time.Time
}

// WriteFailure records one diagnostic row for a stream that was
// failed during processing. Calling this for a stream that was not
// failed is a programmer error; callers should check stream.Failed
// first.
func (s *PostgresSink) WriteFailure(eventID string, stream *waveform.Stream, recorded time.Time) error {
	if !stream.Failed || len(stream.Failures) == 0 {
		return nil
	}
	network, station, location := "", "", ""
	if len(stream.Traces) > 0 {
		network = stream.Traces[0].ID.Network
		station = stream.Traces[0].ID.Station
		location = stream.Traces[0].ID.Location
	}

	txn, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("diagnostics: begin: %w", err)
	}

	for _, f := range stream.Failures {
		_, err = txn.Exec(`INSERT INTO gm_engine.diagnostics(EventID, Network, Station, Location, Kind, Stage, Text, Recorded)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			eventID, network, station, location, string(f.Kind), f.Stage, f.Text, recorded)
		if err != nil {
			if rbErr := txn.Rollback(); rbErr != nil {
				return fmt.Errorf("diagnostics: insert failed (%w), rollback also failed: %v", err, rbErr)
			}
			return fmt.Errorf("diagnostics: insert: %w", err)
		}
	}

	if err := txn.Commit(); err != nil {
		return fmt.Errorf("diagnostics: commit: %w", err)
	}
	return nil
}

// Failures returns every diagnostic row recorded for eventID, most
// recent first.
func (s *PostgresSink) Failures(eventID string) ([]Row, error) {
	rows, err := s.db.Query(`SELECT EventID, Network, Station, Location, Kind, Stage, Text, Recorded
		FROM gm_engine.diagnostics WHERE EventID = $1 ORDER BY Recorded DESC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: query: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var kind string
		if err := rows.Scan(&r.EventID, &r.Network, &r.Station, &r.Location, &kind, &r.Stage, &r.Text, &r.Recorded); err != nil {
			return nil, fmt.Errorf("diagnostics: scan: %w", err)
		}
		r.Kind = waveform.Kind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}
