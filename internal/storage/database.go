package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/prepdeck/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DateLayout is the format date_added defaults to.
const DateLayout = "2006-01-02"

const selectColumns = `SELECT id, company, role, topic, difficulty, question, answer, date_added, notes FROM questions`

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens (creating if needed) the SQLite file at path and ensures the
// schema is up to date. Safe to call on every start.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", domain.ErrStorage, err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: failed to connect to database: %w", domain.ErrStorage, err)
	}

	// One writer, one connection.
	conn.SetMaxOpenConns(1)

	if err := migrateUp(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}

	return New(conn), nil
}

// New wraps an already initialized connection.
func New(conn *sql.DB) *DB {
	return &DB{conn: conn, now: time.Now}
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}

// Insert validates q, stores it and returns the id it was assigned.
// An empty DateAdded becomes today's date.
func (db *DB) Insert(ctx context.Context, q domain.Question) (int64, error) {
	if err := domain.Validate(&q); err != nil {
		return 0, err
	}
	if q.DateAdded == "" {
		q.DateAdded = db.now().Format(DateLayout)
	}

	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO questions (company, role, topic, difficulty, question, answer, date_added, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		nullable(q.Company),
		nullable(q.Role),
		nullable(q.Topic),
		string(q.Difficulty),
		q.Question,
		nullable(q.Answer),
		q.DateAdded,
		nullable(q.Notes),
	)
	if err != nil {
		return 0, storageErr("failed to insert question", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("failed to get last insert ID", err)
	}
	return id, nil
}

// Get retrieves a question by id.
func (db *DB) Get(ctx context.Context, id int64) (domain.Question, error) {
	row := db.conn.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Question{}, fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
		}
		return domain.Question{}, storageErr(fmt.Sprintf("failed to get question %d", id), err)
	}
	return q, nil
}

// List returns every question matching f, newest first. No match yields
// an empty slice.
func (db *DB) List(ctx context.Context, f Filter) ([]domain.Question, error) {
	where, args := f.where()
	rows, err := db.conn.QueryContext(ctx, selectColumns+where+` ORDER BY id DESC`, args...)
	if err != nil {
		return nil, storageErr("failed to list questions", err)
	}
	defer rows.Close()

	questions := []domain.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, storageErr("failed to scan question row", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("failed to iterate questions", err)
	}
	return questions, nil
}

// Count returns how many questions match f.
func (db *DB) Count(ctx context.Context, f Filter) (int, error) {
	where, args := f.where()
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`+where, args...).Scan(&n); err != nil {
		return 0, storageErr("failed to count questions", err)
	}
	return n, nil
}

var distinctQueries = map[domain.Field]string{
	domain.FieldTopic:   `SELECT DISTINCT topic FROM questions WHERE topic IS NOT NULL AND topic <> '' ORDER BY topic`,
	domain.FieldRole:    `SELECT DISTINCT role FROM questions WHERE role IS NOT NULL AND role <> '' ORDER BY role`,
	domain.FieldCompany: `SELECT DISTINCT company FROM questions WHERE company IS NOT NULL AND company <> '' ORDER BY company`,
}

// DistinctValues returns the sorted non-empty values currently stored in
// field.
func (db *DB) DistinctValues(ctx context.Context, field domain.Field) ([]string, error) {
	query, ok := distinctQueries[field]
	if !ok {
		return nil, fmt.Errorf("%w: cannot list values of %q", domain.ErrValidation, field)
	}

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, storageErr(fmt.Sprintf("failed to get distinct %s values", field), err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, storageErr(fmt.Sprintf("failed to scan %s value", field), err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(fmt.Sprintf("failed to iterate %s values", field), err)
	}
	return values, nil
}

// Update replaces every editable field of question id with those in q.
// q.ID is ignored.
func (db *DB) Update(ctx context.Context, id int64, q domain.Question) error {
	if err := domain.Validate(&q); err != nil {
		return err
	}

	res, err := db.conn.ExecContext(ctx, `
		UPDATE questions
		SET company = ?, role = ?, topic = ?, difficulty = ?, question = ?, answer = ?, date_added = ?, notes = ?
		WHERE id = ?
	`,
		nullable(q.Company),
		nullable(q.Role),
		nullable(q.Topic),
		string(q.Difficulty),
		q.Question,
		nullable(q.Answer),
		nullable(q.DateAdded),
		nullable(q.Notes),
		id,
	)
	if err != nil {
		return storageErr(fmt.Sprintf("failed to update question %d", id), err)
	}
	return requireAffected(res, id)
}

// Delete permanently removes question id.
func (db *DB) Delete(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		return storageErr(fmt.Sprintf("failed to delete question %d", id), err)
	}
	return requireAffected(res, id)
}

// Sample draws one question uniformly at random from those matching f.
func (db *DB) Sample(ctx context.Context, f Filter) (domain.Question, error) {
	where, args := f.where()
	row := db.conn.QueryRowContext(ctx, selectColumns+where+` ORDER BY RANDOM() LIMIT 1`, args...)
	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Question{}, domain.ErrEmptyCollection
		}
		return domain.Question{}, storageErr("failed to sample question", err)
	}
	return q, nil
}

func requireAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("failed to read affected rows", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuestion(s scanner) (domain.Question, error) {
	var (
		q                                                     domain.Question
		company, role, topic, difficulty, answer, date, notes sql.NullString
	)
	if err := s.Scan(&q.ID, &company, &role, &topic, &difficulty, &q.Question, &answer, &date, &notes); err != nil {
		return domain.Question{}, err
	}
	q.Company = company.String
	q.Role = role.String
	q.Topic = topic.String
	q.Difficulty = domain.Difficulty(difficulty.String)
	if q.Difficulty == "" {
		q.Difficulty = domain.Easy
	}
	q.Answer = answer.String
	q.DateAdded = date.String
	q.Notes = notes.String
	return q, nil
}

// nullable stores empty optional fields as NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
