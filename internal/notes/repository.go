package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Repository is a Store backed by a SQL database (PostgreSQL or SQLite).
// Writes record an audit row in the same transaction.
type Repository struct {
	db     *sql.DB
	rebind func(string) string
	now    func() time.Time

	stmtGet    *sql.Stmt
	stmtList   *sql.Stmt
	stmtDelete *sql.Stmt
}

const noteCols = `id, title, content, created_at, updated_at`

// NewRepository prepares the statements for the given dialect
// ("postgres" or "sqlite").
func NewRepository(ctx context.Context, db *sql.DB, dialect string) (*Repository, error) {
	r := &Repository{db: db, now: time.Now}
	switch dialect {
	case "postgres":
		r.rebind = dollarPlaceholders
	case "sqlite":
		r.rebind = func(q string) string { return q }
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}

	var err error
	if r.stmtGet, err = db.PrepareContext(ctx, r.rebind(`SELECT `+noteCols+` FROM notes WHERE id = ?`)); err != nil {
		return nil, fmt.Errorf("prepare get: %w", err)
	}
	if r.stmtList, err = db.PrepareContext(ctx, `SELECT `+noteCols+` FROM notes ORDER BY updated_at DESC, id DESC`); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("prepare list: %w", err)
	}
	if r.stmtDelete, err = db.PrepareContext(ctx, r.rebind(`DELETE FROM notes WHERE id = ?`)); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("prepare delete: %w", err)
	}
	return r, nil
}

func (r *Repository) Close() error {
	for _, s := range []*sql.Stmt{r.stmtGet, r.stmtList, r.stmtDelete} {
		if s != nil {
			_ = s.Close()
		}
	}
	return nil
}

func (r *Repository) List(ctx context.Context) ([]Note, error) {
	rows, err := r.stmtList.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()
	return scanNotes(rows)
}

func (r *Repository) Get(ctx context.Context, id int64) (Note, error) {
	n, err := scanNote(r.stmtGet.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	if err != nil {
		return Note{}, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}

// Create uses explicit transaction: INSERT notes + INSERT audit.
func (r *Repository) Create(ctx context.Context, in NewNote) (Note, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Note{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	n := in.note()
	now := r.stamp()
	err = tx.QueryRowContext(ctx, r.rebind(`
		INSERT INTO notes (title, content, created_at, updated_at) VALUES (?, ?, ?, ?)
		RETURNING id
	`), n.Title, n.Content, now, now).Scan(&n.ID)
	if err != nil {
		return Note{}, fmt.Errorf("insert note: %w", err)
	}
	n.CreatedAt, n.UpdatedAt = now, now

	if err := r.audit(ctx, tx, n.ID, "create", now); err != nil {
		return Note{}, err
	}
	if err := tx.Commit(); err != nil {
		return Note{}, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// Update reads the row and writes the merged note back in one transaction.
func (r *Repository) Update(ctx context.Context, id int64, p NotePatch) (Note, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Note{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanNote(tx.QueryRowContext(ctx, r.rebind(`SELECT `+noteCols+` FROM notes WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	if err != nil {
		return Note{}, fmt.Errorf("get note: %w", err)
	}

	n := p.apply(existing)
	n.UpdatedAt = r.stamp()
	if n.UpdatedAt.Before(n.CreatedAt) {
		n.UpdatedAt = n.CreatedAt
	}

	_, err = tx.ExecContext(ctx, r.rebind(`
		UPDATE notes SET title = ?, content = ?, updated_at = ? WHERE id = ?
	`), n.Title, n.Content, n.UpdatedAt, id)
	if err != nil {
		return Note{}, fmt.Errorf("update note: %w", err)
	}

	if err := r.audit(ctx, tx, id, "update", n.UpdatedAt); err != nil {
		return Note{}, err
	}
	if err := tx.Commit(); err != nil {
		return Note{}, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// Delete removes the row and records the audit entry in one transaction.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.StmtContext(ctx, r.stmtDelete).ExecContext(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete note: %w", err)
	}
	a, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if a == 0 {
		return false, nil
	}
	if err := r.audit(ctx, tx, id, "delete", r.stamp()); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// stamp is the current time at the precision PostgreSQL stores.
func (r *Repository) stamp() time.Time {
	return r.now().UTC().Truncate(time.Microsecond)
}

func (r *Repository) audit(ctx context.Context, tx *sql.Tx, id int64, action string, at time.Time) error {
	_, err := tx.ExecContext(ctx, r.rebind(`INSERT INTO notes_audit (note_id, action, at) VALUES (?, ?, ?)`), id, action, at)
	if err != nil {
		return fmt.Errorf("audit %s: %w", action, err)
	}
	return nil
}

func scanNote(scanner interface{ Scan(...any) error }) (Note, error) {
	var n Note
	if err := scanner.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return Note{}, err
	}
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()
	return n, nil
}

func scanNotes(rows *sql.Rows) ([]Note, error) {
	out := make([]Note, 0, 32)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// dollarPlaceholders rewrites ? placeholders as $1, $2, ...
func dollarPlaceholders(q string) string {
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, c := range q {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
