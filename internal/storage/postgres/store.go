// Package postgres implements docstore.Store on a single JSONB table.
package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/greenbasket/pkg/docstore"
)

const (
	listDocumentsSQL = `SELECT id, fields, created_at FROM documents
		WHERE collection = $1 ORDER BY created_at, id`

	getDocumentSQL = `SELECT id, fields, created_at FROM documents
		WHERE collection = $1 AND id = $2`

	getDocumentsSQL = `SELECT id, fields, created_at FROM documents
		WHERE collection = $1 AND id = ANY($2)`

	createDocumentSQL = `INSERT INTO documents (collection, id, fields)
		VALUES ($1, $2, $3::jsonb) RETURNING created_at`

	updateDocumentSQL = `UPDATE documents SET fields = fields || $3::jsonb
		WHERE collection = $1 AND id = $2`

	findDocumentsSQL = `SELECT id, fields, created_at FROM documents
		WHERE collection = $1 AND fields @> $2::jsonb ORDER BY created_at, id`
)

const uniqueViolation = "23505"

var _ docstore.Store = (*Store)(nil)

// Store implements docstore.Store backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store that uses the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ListAll returns all documents of a collection in creation order.
func (s *Store) ListAll(ctx context.Context, collection string) ([]docstore.Document, error) {
	rows, err := s.pool.Query(ctx, listDocumentsSQL, collection)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", collection)
	}
	docs, err := pgx.CollectRows(rows, scanDocument)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", collection)
	}
	return docs, nil
}

// GetByID returns docstore.ErrNotFound when the document does not exist.
func (s *Store) GetByID(ctx context.Context, collection, id string) (*docstore.Document, error) {
	rows, err := s.pool.Query(ctx, getDocumentSQL, collection, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s/%s", collection, id)
	}

	doc, err := pgx.CollectExactlyOneRow(rows, scanDocument)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get %s/%s", collection, id)
	}
	return &doc, nil
}

// GetByIDs fetches all requested documents in one query and returns them in
// request order.
func (s *Store) GetByIDs(ctx context.Context, collection string, ids []string) ([]docstore.Document, error) {
	if len(ids) == 0 {
		return []docstore.Document{}, nil
	}
	rows, err := s.pool.Query(ctx, getDocumentsSQL, collection, ids)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s batch", collection)
	}
	docs, err := pgx.CollectRows(rows, scanDocument)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s batch", collection)
	}

	byID := make(map[string]docstore.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	out := make([]docstore.Document, 0, len(docs))
	for _, id := range ids {
		d, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, d)
		delete(byID, id)
	}
	return out, nil
}

// Create inserts a document with a generated UUID. A unique index violation
// is reported as docstore.ErrConflict.
func (s *Store) Create(ctx context.Context, collection string, fields docstore.Fields) (string, error) {
	payload, err := marshalFields(fields)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	var createdAt time.Time
	if err := s.pool.QueryRow(ctx, createDocumentSQL, collection, id, payload).Scan(&createdAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", errors.Wrapf(docstore.ErrConflict, "create %s: %s", collection, pgErr.ConstraintName)
		}
		return "", errors.Wrapf(err, "create %s", collection)
	}
	return id, nil
}

// Update merges partial into the stored top-level fields.
func (s *Store) Update(ctx context.Context, collection, id string, partial docstore.Fields) error {
	payload, err := marshalFields(partial)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, updateDocumentSQL, collection, id, payload)
	if err != nil {
		return errors.Wrapf(err, "update %s/%s", collection, id)
	}
	if tag.RowsAffected() == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

// List uses JSONB containment, so filter values should be scalars: an array
// value would match any stored array that contains it.
func (s *Store) List(ctx context.Context, collection string, filter docstore.Filter) ([]docstore.Document, error) {
	if filter.Field == "" {
		return s.ListAll(ctx, collection)
	}

	payload, err := marshalFields(docstore.Fields{filter.Field: filter.Value})
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, findDocumentsSQL, collection, payload)
	if err != nil {
		return nil, errors.Wrapf(err, "find %s by %s", collection, filter.Field)
	}
	docs, err := pgx.CollectRows(rows, scanDocument)
	if err != nil {
		return nil, errors.Wrapf(err, "find %s by %s", collection, filter.Field)
	}
	return docs, nil
}

func marshalFields(f docstore.Fields) (string, error) {
	if f == nil {
		f = docstore.Fields{}
	}
	data, err := json.Marshal(f)
	if err != nil {
		return "", errors.Wrap(err, "marshal fields")
	}
	return string(data), nil
}

func scanDocument(row pgx.CollectableRow) (docstore.Document, error) {
	var (
		d   docstore.Document
		raw []byte
	)
	if err := row.Scan(&d.ID, &raw, &d.CreatedAt); err != nil {
		return d, err
	}
	fields, err := docstore.Decode(raw)
	if err != nil {
		return d, err
	}
	d.Fields = fields
	return d, nil
}
