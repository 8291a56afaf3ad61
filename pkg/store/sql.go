package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	// Drivers selected by Open.
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-formwizard/pkg/formsapi"
)

// Dialect names the SQL flavour of a connection.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Timestamps are stored as unix milliseconds so both dialects scan them the
// same way. Postgres keeps json_schema as JSON, not JSONB, to preserve key
// order.
var createTable = map[Dialect]string{
	DialectSQLite: `CREATE TABLE IF NOT EXISTS forms (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id   TEXT NOT NULL UNIQUE,
		title         TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		is_multi_step BOOLEAN NOT NULL DEFAULT FALSE,
		json_schema   TEXT NOT NULL,
		created_at    INTEGER NOT NULL,
		updated_at    INTEGER NOT NULL
	)`,
	DialectPostgres: `CREATE TABLE IF NOT EXISTS forms (
		id            BIGSERIAL PRIMARY KEY,
		document_id   TEXT NOT NULL UNIQUE,
		title         TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		is_multi_step BOOLEAN NOT NULL DEFAULT FALSE,
		json_schema   JSON NOT NULL,
		created_at    BIGINT NOT NULL,
		updated_at    BIGINT NOT NULL
	)`,
}

const selectColumns = `SELECT id, document_id, title, description, is_multi_step, json_schema, created_at, updated_at FROM forms`

// SQLStore persists records with database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	clock   Clock
}

// DialectFor picks the dialect from a DSN: postgres URLs use lib/pq and
// anything else is treated as a sqlite path or URI.
func DialectFor(dsn string) Dialect {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Open connects to dsn, verifies the connection and creates the table.
func Open(ctx context.Context, dsn string) (*SQLStore, error) {
	dialect := DialectFor(dsn)
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", dialect, err)
	}
	s := NewSQLStore(db, dialect)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, clock: systemClock}
}

// Migrate creates the forms table when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	ddl, ok := createTable[s.dialect]
	if !ok {
		return fmt.Errorf("store: unsupported dialect %q", s.dialect)
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("store: create forms table: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Create(ctx context.Context, payload formsapi.FormPayload) (formsapi.FormRecord, error) {
	if err := checkPayload(payload); err != nil {
		return formsapi.FormRecord{}, err
	}
	documentID := newDocumentID()
	now := s.clock().UnixMilli()
	var id int64
	err := s.db.QueryRowContext(ctx, s.bind(`INSERT INTO forms
		(document_id, title, description, is_multi_step, json_schema, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		documentID, payload.Title, payload.Description, payload.IsMultiStep, string(payload.JSONSchema), now, now,
	).Scan(&id)
	if err != nil {
		return formsapi.FormRecord{}, fmt.Errorf("store: insert form: %w", err)
	}
	return s.Get(ctx, documentID)
}

func (s *SQLStore) Update(ctx context.Context, documentID string, payload formsapi.FormPayload) (formsapi.FormRecord, error) {
	if err := checkPayload(payload); err != nil {
		return formsapi.FormRecord{}, err
	}
	res, err := s.db.ExecContext(ctx, s.bind(`UPDATE forms
		SET title = ?, description = ?, is_multi_step = ?, json_schema = ?, updated_at = ?
		WHERE document_id = ?`),
		payload.Title, payload.Description, payload.IsMultiStep, string(payload.JSONSchema), s.clock().UnixMilli(), documentID,
	)
	if err != nil {
		return formsapi.FormRecord{}, fmt.Errorf("store: update form %q: %w", documentID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return formsapi.FormRecord{}, fmt.Errorf("store: update form %q: %w", documentID, err)
	}
	if affected == 0 {
		return formsapi.FormRecord{}, ErrNotFound
	}
	return s.Get(ctx, documentID)
}

func (s *SQLStore) Get(ctx context.Context, documentID string) (formsapi.FormRecord, error) {
	row := s.db.QueryRowContext(ctx, s.bind(selectColumns+` WHERE document_id = ?`), documentID)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return formsapi.FormRecord{}, ErrNotFound
	}
	if err != nil {
		return formsapi.FormRecord{}, fmt.Errorf("store: get form %q: %w", documentID, err)
	}
	return record, nil
}

func (s *SQLStore) List(ctx context.Context) ([]formsapi.FormRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list forms: %w", err)
	}
	defer rows.Close()

	var out []formsapi.FormRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list forms: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list forms: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (formsapi.FormRecord, error) {
	var (
		record  formsapi.FormRecord
		schema  string
		created int64
		updated int64
	)
	if err := row.Scan(&record.ID, &record.DocumentID, &record.Title, &record.Description,
		&record.IsMultiStep, &schema, &created, &updated); err != nil {
		return formsapi.FormRecord{}, err
	}
	record.JSONSchema = []byte(schema)
	record.CreatedAt = time.UnixMilli(created).UTC()
	record.UpdatedAt = time.UnixMilli(updated).UTC()
	return record, nil
}

// bind rewrites ? placeholders as $n for postgres.
func (s *SQLStore) bind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
