// Package repositories holds the narrow persistence interface the services
// are written against, and its Postgres implementation. Sheet data is stored
// document-style: one table per sheet holding jsonb row documents plus a
// sentinel headers document, because jsonb does not preserve key order.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/apperrors"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/models"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/utils"
)

// headersDocID is the fixed id of the per-sheet header manifest document
const headersDocID = "headers"

// undefinedTableCode is the Postgres error code for a missing relation
const undefinedTableCode = "42P01"

// Repository defines the persistence operations used by the application
type Repository interface {
	// ReplaceSheet rewrites a sheet's documents from scratch and returns the
	// number of rows written. Rows containing the placeholder sentinel "/"
	// in any field are dropped; when every row is dropped nothing is written
	// and 0 is returned, which the caller surfaces as a warning.
	ReplaceSheet(ctx context.Context, sheetName string, rows models.SheetRows) (int, error)

	// FetchAllSheets returns the stored rows of each requested sheet in
	// original order, with key order restored from the header manifest. A
	// sheet that was never written yields an empty entry, not an error.
	FetchAllSheets(ctx context.Context, sheetNames []string) (map[string]models.SheetRows, error)

	QueryMessages(ctx context.Context, limit int) ([]models.Message, error)
	GetMessageByID(ctx context.Context, id string) (*models.Message, error)
	SetMessageRead(ctx context.Context, id string) error
	CreateMessage(ctx context.Context, msg *models.Message) error
}

// DBRepository implements Repository over a Postgres database
type DBRepository struct {
	db *sqlx.DB
}

// NewDBRepository connects to the database, verifies the connection and
// bootstraps the messages table
func NewDBRepository(cfg *utils.Config) (*DBRepository, error) {
	db, err := sqlx.Connect("postgres", cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database with sqlx: %w", err)
	}

	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.DB.MaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	r := &DBRepository{db: db}
	if err := r.ensureMessagesTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// Close closes the database connection
func (r *DBRepository) Close() error {
	return r.db.Close()
}

func (r *DBRepository) ensureMessagesTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS messages (
			id         TEXT PRIMARY KEY,
			subject    TEXT NOT NULL,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL,
			message    TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			is_new     BOOLEAN NOT NULL DEFAULT TRUE
		);
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabase, "failed to create messages table")
	}
	return nil
}

// sheetTableName maps a sheet name to its document table, mirroring the
// collection naming the admin UI has always used
func sheetTableName(sheetName string) string {
	var sb strings.Builder
	for _, r := range sheetName {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	name := sb.String()
	if name == "" {
		name = "unnamed"
	}
	return "excelData_" + name
}

func (r *DBRepository) ensureSheetTable(ctx context.Context, table string) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS public.%s (
			id        TEXT PRIMARY KEY,
			row_index INTEGER,
			doc       JSONB NOT NULL
		);`, pq.QuoteIdentifier(table))
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabase, fmt.Sprintf("failed to create sheet table '%s'", table))
	}
	return nil
}

// filterPlaceholderRows drops any row carrying the sentinel value "/" in any
// field. Such rows are placeholders in the source spreadsheets, not data.
func filterPlaceholderRows(rows []map[string]any) []map[string]any {
	var kept []map[string]any
	for _, row := range rows {
		placeholder := false
		for _, v := range row {
			if s, ok := v.(string); ok && s == "/" {
				placeholder = true
				break
			}
		}
		if !placeholder {
			kept = append(kept, row)
		}
	}
	return kept
}

// manifestFor orders the keys of the first surviving row by the sheet's
// header order. The manifest is deliberately derived from the first row
// only; rows beyond it may carry keys the manifest does not list.
func manifestFor(headers []string, first map[string]any) []string {
	var manifest []string
	for _, h := range headers {
		if _, ok := first[h]; ok {
			manifest = append(manifest, h)
		}
	}
	return manifest
}

// ReplaceSheet implements the full-replace upload for one sheet: delete every
// existing document, write the header manifest, then write each surviving row
// with its contiguous index. The sequence is not transactional; a failure
// partway leaves the table mixed, and recovery is a full resubmission (which
// deletes and rewrites from scratch, so the operation is idempotent).
func (r *DBRepository) ReplaceSheet(ctx context.Context, sheetName string, rows models.SheetRows) (int, error) {
	filtered := filterPlaceholderRows(rows.Rows)
	if len(filtered) == 0 {
		return 0, nil
	}

	table := sheetTableName(sheetName)
	if err := r.ensureSheetTable(ctx, table); err != nil {
		return 0, err
	}

	quoted := pq.QuoteIdentifier(table)
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM public.%s;", quoted)); err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrDatabase, fmt.Sprintf("failed to clear sheet table '%s'", table))
	}

	manifest := manifestFor(rows.Headers, filtered[0])
	manifestDoc, err := json.Marshal(map[string]any{"headers": manifest})
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrDatabase, fmt.Sprintf("failed to encode header manifest for sheet '%s'", sheetName))
	}
	insertQuery := fmt.Sprintf("INSERT INTO public.%s (id, row_index, doc) VALUES ($1, $2, $3);", quoted)
	if _, err := r.db.ExecContext(ctx, insertQuery, headersDocID, nil, manifestDoc); err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrDatabase, fmt.Sprintf("failed to write header manifest for sheet '%s'", sheetName))
	}

	stmt, err := r.db.PreparexContext(ctx, insertQuery)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrDatabase, fmt.Sprintf("failed to prepare row insert for sheet '%s'", sheetName))
	}
	defer stmt.Close()

	for index, row := range filtered {
		doc, err := json.Marshal(row)
		if err != nil {
			return index, apperrors.Wrap(err, apperrors.ErrDatabase, fmt.Sprintf("failed to encode row %d of sheet '%s'", index, sheetName))
		}
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), index, doc); err != nil {
			return index, apperrors.Wrap(err, apperrors.ErrDatabase, fmt.Sprintf("failed to insert row %d into sheet '%s'", index, sheetName))
		}
	}
	return len(filtered), nil
}

// FetchAllSheets reads each requested sheet back in row_index order. Key
// order inside each row follows the stored header manifest; keys absent from
// a row are omitted rather than null-filled.
func (r *DBRepository) FetchAllSheets(ctx context.Context, sheetNames []string) (map[string]models.SheetRows, error) {
	result := make(map[string]models.SheetRows, len(sheetNames))

	for _, sheetName := range sheetNames {
		table := sheetTableName(sheetName)
		quoted := pq.QuoteIdentifier(table)

		var manifestDoc []byte
		err := r.db.GetContext(ctx, &manifestDoc,
			fmt.Sprintf("SELECT doc FROM public.%s WHERE id = $1;", quoted), headersDocID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) || isUndefinedTable(err) {
				// Sheet never written: an empty list, not a failure
				result[sheetName] = models.SheetRows{}
				continue
			}
			return nil, apperrors.Wrap(err, apperrors.ErrDatabase, fmt.Sprintf("failed to read header manifest for sheet '%s'", sheetName))
		}

		var manifest struct {
			Headers []string `json:"headers"`
		}
		if err := json.Unmarshal(manifestDoc, &manifest); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrDatabase, fmt.Sprintf("malformed header manifest for sheet '%s'", sheetName))
		}

		var docs [][]byte
		err = r.db.SelectContext(ctx, &docs,
			fmt.Sprintf("SELECT doc FROM public.%s WHERE id <> $1 ORDER BY row_index;", quoted), headersDocID)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrDatabase, fmt.Sprintf("failed to read rows for sheet '%s'", sheetName))
		}

		sheet := models.SheetRows{Headers: manifest.Headers}
		for _, raw := range docs {
			var stored map[string]any
			if err := json.Unmarshal(raw, &stored); err != nil {
				return nil, apperrors.Wrap(err, apperrors.ErrDatabase, fmt.Sprintf("malformed row document in sheet '%s'", sheetName))
			}
			row := make(map[string]any)
			for _, key := range manifest.Headers {
				if v, ok := stored[key]; ok {
					row[key] = v
				}
			}
			sheet.Rows = append(sheet.Rows, row)
		}
		result[sheetName] = sheet
	}

	return result, nil
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == undefinedTableCode
}

// QueryMessages returns up to limit messages ordered unread-first, newest-first
func (r *DBRepository) QueryMessages(ctx context.Context, limit int) ([]models.Message, error) {
	query := `
		SELECT id, subject, name, email, message, created_at, is_new
		FROM messages
		ORDER BY is_new DESC, created_at DESC
		LIMIT $1;
	`
	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs, query, limit); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase, "failed to query messages")
	}
	return msgs, nil
}

// GetMessageByID fetches one message by id
func (r *DBRepository) GetMessageByID(ctx context.Context, id string) (*models.Message, error) {
	query := `
		SELECT id, subject, name, email, message, created_at, is_new
		FROM messages
		WHERE id = $1;
	`
	var msg models.Message
	if err := r.db.GetContext(ctx, &msg, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrap(err, apperrors.ErrNotFound, fmt.Sprintf("no message with id '%s'", id))
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase, fmt.Sprintf("failed to fetch message '%s'", id))
	}
	return &msg, nil
}

// SetMessageRead flips a message's is_new flag to false. Only that field is
// ever touched; the flag moves in one direction.
func (r *DBRepository) SetMessageRead(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_new = FALSE WHERE id = $1;`, id)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabase, fmt.Sprintf("failed to mark message '%s' as read", id))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.Wrap(nil, apperrors.ErrNotFound, fmt.Sprintf("no message with id '%s'", id))
	}
	return nil
}

// CreateMessage stores a new inbound contact message. A zero-value id or
// timestamp is filled in here so callers can pass bare form input.
func (r *DBRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	msg.IsNew = true

	query := `
		INSERT INTO messages (id, subject, name, email, message, created_at, is_new)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := r.db.ExecContext(ctx, query, msg.ID, msg.Subject, msg.Name, msg.Email, msg.Message, msg.CreatedAt, msg.IsNew)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabase, "failed to store message")
	}
	return nil
}
