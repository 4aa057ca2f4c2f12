// Package history stores one record per dispatched relay command in the
// send_history table and serves it back newest first.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Page size limits for List.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// timeLayout is fixed-width so created_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Record is a single relay command and its outcome.
type Record struct {
	ID          string    `json:"id"`
	Relay       string    `json:"relay"`
	Action      string    `json:"action"`
	Source      string    `json:"source"`
	JobID       string    `json:"job_id,omitempty"`
	Description string    `json:"description,omitempty"`
	Success     bool      `json:"success"`
	Attempts    int       `json:"attempts"`
	DurationMS  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Filter controls which records to return.
type Filter struct {
	Relay  string // optional: "module.channel"
	Source string // optional: schedule, api, mqtt, cli
	Limit  int    // default 50, max 200
	Offset int    // pagination offset
}

// ListResult contains a page of history records.
type ListResult struct {
	Records []Record `json:"records"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// Repository defines the interface for send history operations.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores send history in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new history repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a record. ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO send_history
		   (id, relay, action, source, job_id, description, success, attempts, duration_ms, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Relay, rec.Action, rec.Source,
		nullableString(rec.JobID), nullableString(rec.Description),
		boolToInt(rec.Success), rec.Attempts, rec.DurationMS,
		nullableString(rec.Error),
		rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting send history: %w", err)
	}

	return nil
}

// List returns records matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	filter = clampFilter(filter)

	var conditions []string
	var args []any

	if filter.Relay != "" {
		conditions = append(conditions, "relay = ?")
		args = append(args, filter.Relay)
	}
	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, filter.Source)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM send_history " + where //nolint:gosec // WHERE built from parameterised conditions
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting send history: %w", err)
	}

	query := "SELECT id, relay, action, source, job_id, description, success, attempts, duration_ms, error, created_at " + //nolint:gosec // see above
		"FROM send_history " + where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying send history: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var rec Record
		var jobID, description, errText sql.NullString
		var success int
		var createdAt string

		if err := rows.Scan(&rec.ID, &rec.Relay, &rec.Action, &rec.Source,
			&jobID, &description, &success, &rec.Attempts, &rec.DurationMS,
			&errText, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning send history: %w", err)
		}

		rec.JobID = jobID.String
		rec.Description = description.String
		rec.Error = errText.String
		rec.Success = success != 0

		t, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing send history timestamp %q: %w", createdAt, err)
		}
		rec.CreatedAt = t

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating send history: %w", err)
	}

	return &ListResult{
		Records: records,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

// clampFilter applies the default page size and bounds.
func clampFilter(f Filter) Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// nullableString maps "" to NULL for optional TEXT columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
