package store

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/mindmaps/internal/dbx"
	"github.com/starford/mindmaps/internal/models"
)

const mapColumns = `id, title, data, user_id, created_at, updated_at`

// DefaultSearchLimit caps search results when the caller does not.
const DefaultSearchLimit = 20

type scanner interface {
	Scan(dest ...any) error
}

// Maps is the repository for mind maps.
type Maps struct {
	querier
}

// NewMaps binds a mind-map repository to q, which may be a pool or a transaction.
func NewMaps(q dbx.DBTX, driver string) *Maps {
	return &Maps{querier{q: q, driver: driver}}
}

func scanMap(row scanner) (*models.MindMap, error) {
	m := &models.MindMap{}
	if err := row.Scan(&m.ID, &m.Title, &m.Data, &m.UserID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return m, nil
}

// FindByIDAndOwner returns map id if it belongs to ownerID. A missing map and
// someone else's map both yield apperr.ErrNotFound.
func (r *Maps) FindByIDAndOwner(ctx context.Context, id, ownerID int64) (*models.MindMap, error) {
	m, err := scanMap(r.queryRow(ctx, `SELECT `+mapColumns+` FROM mindmaps WHERE id = ? AND user_id = ?`, id, ownerID))
	if err != nil {
		return nil, wrap("find map", err)
	}
	return m, nil
}

// FindByID returns map id regardless of owner.
func (r *Maps) FindByID(ctx context.Context, id int64) (*models.MindMap, error) {
	m, err := scanMap(r.queryRow(ctx, `SELECT `+mapColumns+` FROM mindmaps WHERE id = ?`, id))
	if err != nil {
		return nil, wrap("find map by id", err)
	}
	return m, nil
}

// ListByOwner returns every map of ownerID, most recently updated first.
func (r *Maps) ListByOwner(ctx context.Context, ownerID int64) ([]models.MindMap, error) {
	rows, err := r.query(ctx, `SELECT `+mapColumns+` FROM mindmaps WHERE user_id = ? ORDER BY updated_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("store: list maps: %w", err)
	}
	defer rows.Close()

	out := []models.MindMap{}
	for rows.Next() {
		m, err := scanMap(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan map: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Insert stores m and fills in its ID. searchText is the indexed plain text.
func (r *Maps) Insert(ctx context.Context, m *models.MindMap, searchText string) error {
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	err := r.queryRow(ctx, `
		INSERT INTO mindmaps (title, data, user_id, search_text, title_key, text_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, m.Title, m.Data, m.UserID, searchText, searchKey(m.Title), textKey(searchText), m.CreatedAt, m.UpdatedAt).Scan(&m.ID)
	if err != nil {
		return wrap("insert map", err)
	}
	return nil
}

// Update writes title, data, search text and updated_at of m, scoped to its owner.
func (r *Maps) Update(ctx context.Context, m *models.MindMap, searchText string) error {
	return r.execOne(ctx, "update map", `
		UPDATE mindmaps SET title = ?, data = ?, search_text = ?, title_key = ?, text_key = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, m.Title, m.Data, searchText, searchKey(m.Title), textKey(searchText), m.UpdatedAt, m.ID, m.UserID)
}

// UpdateTitle renames map id regardless of owner.
func (r *Maps) UpdateTitle(ctx context.Context, id int64, title string, at time.Time) error {
	return r.execOne(ctx, "update map title",
		`UPDATE mindmaps SET title = ?, title_key = ?, updated_at = ? WHERE id = ?`, title, searchKey(title), at, id)
}

// Delete removes map id if it belongs to ownerID.
func (r *Maps) Delete(ctx context.Context, id, ownerID int64) error {
	return r.execOne(ctx, "delete map", `DELETE FROM mindmaps WHERE id = ? AND user_id = ?`, id, ownerID)
}

// DeleteByID removes map id regardless of owner.
func (r *Maps) DeleteByID(ctx context.Context, id int64) error {
	return r.execOne(ctx, "delete map by id", `DELETE FROM mindmaps WHERE id = ?`, id)
}

// Search matches query against titles and indexed text of ownerID's maps,
// case-insensitively. Both sides are folded in Go, since SQLite's LOWER only
// handles ASCII.
func (r *Maps) Search(ctx context.Context, ownerID int64, query string, limit int) ([]models.MapSummary, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	like := likePattern(query)
	rows, err := r.query(ctx, `
		SELECT id, title, substr(search_text, 1, 200)
		FROM mindmaps
		WHERE user_id = ?
		  AND (title_key LIKE ? ESCAPE '\' OR text_key LIKE ? ESCAPE '\')
		ORDER BY updated_at DESC, id DESC
		LIMIT ?
	`, ownerID, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search maps: %w", err)
	}
	defer rows.Close()

	out := []models.MapSummary{}
	for rows.Next() {
		var s models.MapSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.Snippet); err != nil {
			return nil, fmt.Errorf("store: scan search hit: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MapWithOwner is a map joined with its owner's email.
type MapWithOwner struct {
	models.MindMap
	OwnerEmail string `json:"owner_email"`
}

// ListWithOwner returns every map with its owner's email, ordered by id.
func (r *Maps) ListWithOwner(ctx context.Context) ([]MapWithOwner, error) {
	rows, err := r.query(ctx, `
		SELECT m.id, m.title, m.data, m.user_id, m.created_at, m.updated_at, u.email
		FROM mindmaps m
		JOIN users u ON u.id = m.user_id
		ORDER BY m.id
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list maps with owner: %w", err)
	}
	defer rows.Close()

	out := []MapWithOwner{}
	for rows.Next() {
		var m MapWithOwner
		if err := rows.Scan(&m.ID, &m.Title, &m.Data, &m.UserID, &m.CreatedAt, &m.UpdatedAt, &m.OwnerEmail); err != nil {
			return nil, fmt.Errorf("store: scan map: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
