// Package ruledb implements the Rule Repository (spec.md §6.2): sqlite
// persistence for RuleRecord, following the same database/sql +
// modernc.org/sqlite repository pattern the teacher uses for its
// portfolio repositories.
package ruledb

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aristath/arduino-trader/internal/database"
	"github.com/aristath/arduino-trader/internal/rulesengine/rerr"
	"github.com/aristath/arduino-trader/internal/rulesengine/rule"
	"github.com/aristath/arduino-trader/internal/rulesengine/semtype"
	"github.com/aristath/arduino-trader/internal/rulesengine/serial"
	"github.com/rs/zerolog"
)

// RuleRecord is the serialized form plus metadata a repository stores and
// returns (spec.md §3.4, §6.2).
type RuleRecord struct {
	RuleID      string
	Name        string
	Description string
	Purpose     semtype.Type
	Version     int
	Status      rule.Status
	RootNode    serial.Dict
	CreatedAtTS int64
	UpdatedAtTS int64
	Metrics     map[string]any
}

// Repository is the Rule Repository interface the Rules Orchestrator and
// the evolutionary producer depend on (spec.md §6.2).
type Repository interface {
	ListBy(purpose semtype.Type, status rule.Status) ([]RuleRecord, error)
	Get(ruleID string) (RuleRecord, error)
	Put(record RuleRecord) error
}

// SQLiteRepository is the production Repository, backed by the rules
// sqlite database (internal/database.DB).
type SQLiteRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewSQLiteRepository wraps an already-migrated rules database.
func NewSQLiteRepository(db *database.DB, log zerolog.Logger) *SQLiteRepository {
	return &SQLiteRepository{db: db, log: log.With().Str("repo", "rules").Logger()}
}

func (r *SQLiteRepository) ListBy(purpose semtype.Type, status rule.Status) ([]RuleRecord, error) {
	rows, err := r.db.Conn().Query(
		`SELECT rule_id, name, description, purpose, version, status, root_node, created_at_ts, updated_at_ts, metrics
		 FROM rules WHERE purpose = ? AND status = ? ORDER BY rule_id`,
		string(purpose), string(status),
	)
	if err != nil {
		return nil, &rerr.RepositoryUnavailableError{Err: fmt.Errorf("querying rules: %w", err)}
	}
	defer rows.Close()

	var records []RuleRecord
	for rows.Next() {
		rec, err := scanRuleRecord(rows)
		if err != nil {
			return nil, &rerr.RepositoryUnavailableError{Err: err}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &rerr.RepositoryUnavailableError{Err: fmt.Errorf("iterating rules: %w", err)}
	}

	return records, nil
}

func (r *SQLiteRepository) Get(ruleID string) (RuleRecord, error) {
	row := r.db.Conn().QueryRow(
		`SELECT rule_id, name, description, purpose, version, status, root_node, created_at_ts, updated_at_ts, metrics
		 FROM rules WHERE rule_id = ?`,
		ruleID,
	)
	rec, err := scanRuleRecord(row)
	if err == sql.ErrNoRows {
		return RuleRecord{}, &rerr.RuleNotFoundError{RuleID: ruleID}
	}
	if err != nil {
		return RuleRecord{}, &rerr.RepositoryUnavailableError{Err: err}
	}
	return rec, nil
}

func (r *SQLiteRepository) Put(record RuleRecord) error {
	rootJSON, err := json.Marshal(record.RootNode)
	if err != nil {
		return fmt.Errorf("marshaling root node for rule %q: %w", record.RuleID, err)
	}
	metricsJSON, err := json.Marshal(record.Metrics)
	if err != nil {
		return fmt.Errorf("marshaling metrics for rule %q: %w", record.RuleID, err)
	}

	err = database.WithTransaction(r.db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO rules (rule_id, name, description, purpose, version, status, root_node, created_at_ts, updated_at_ts, metrics)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(rule_id) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				purpose = excluded.purpose,
				version = excluded.version,
				status = excluded.status,
				root_node = excluded.root_node,
				updated_at_ts = excluded.updated_at_ts,
				metrics = excluded.metrics
		`, record.RuleID, record.Name, record.Description, string(record.Purpose), record.Version,
			string(record.Status), string(rootJSON), record.CreatedAtTS, record.UpdatedAtTS, string(metricsJSON))
		return err
	})
	if err != nil {
		return &rerr.RepositoryUnavailableError{Err: err}
	}

	r.log.Debug().Str("rule_id", record.RuleID).Int("version", record.Version).Msg("put rule")
	return nil
}

// scanner abstracts *sql.Row / *sql.Rows so ListBy and Get share one scan.
type scanner interface {
	Scan(dest ...any) error
}

func scanRuleRecord(s scanner) (RuleRecord, error) {
	var rec RuleRecord
	var purpose, status, rootJSON, metricsJSON string
	if err := s.Scan(&rec.RuleID, &rec.Name, &rec.Description, &purpose, &rec.Version, &status,
		&rootJSON, &rec.CreatedAtTS, &rec.UpdatedAtTS, &metricsJSON); err != nil {
		return RuleRecord{}, err
	}
	rec.Purpose = semtype.Type(purpose)
	rec.Status = rule.Status(status)

	if err := json.Unmarshal([]byte(rootJSON), &rec.RootNode); err != nil {
		return RuleRecord{}, fmt.Errorf("unmarshaling root node for rule %q: %w", rec.RuleID, err)
	}
	if metricsJSON != "" {
		if err := json.Unmarshal([]byte(metricsJSON), &rec.Metrics); err != nil {
			return RuleRecord{}, fmt.Errorf("unmarshaling metrics for rule %q: %w", rec.RuleID, err)
		}
	}
	return rec, nil
}
