package repository // repository holds data access logic for domain entities

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kioskconnect/backend/internal/model"
)

// ErrScreenNotFound is returned when a screen lookup fails.
var ErrScreenNotFound = errors.New("screen not found")

// ScreenRepo provides methods to create and retrieve kiosk screens
// and their restaurant assignments.
type ScreenRepo struct {
	db *sql.DB
}

// NewScreenRepo constructs a ScreenRepo with the given DB handle.
func NewScreenRepo(db *sql.DB) *ScreenRepo {
	return &ScreenRepo{db: db}
}

const screenColumns = `id, name, grid_rows, grid_columns, show_language, created_at, updated_at`

func scanScreen(row interface {
	Scan(dest ...interface{}) error
}, s *model.Screen) error {
	return row.Scan(&s.ID, &s.Name, &s.GridRows, &s.GridColumns, &s.ShowLanguage, &s.CreatedAt, &s.UpdatedAt)
}

// Create inserts a new screen and re-reads the row so generated
// fields are populated on the passed struct.
func (r *ScreenRepo) Create(ctx context.Context, s *model.Screen) error {
	const qInsert = `INSERT INTO screens (name, grid_rows, grid_columns, show_language)
	                 VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert, s.Name, s.GridRows, s.GridColumns, s.ShowLanguage)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)

	const qSelect = `SELECT ` + screenColumns + ` FROM screens WHERE id = ?`
	return scanScreen(r.db.QueryRowContext(ctx, qSelect, s.ID), s)
}

// GetByID retrieves a screen by its ID.  It returns
// ErrScreenNotFound when no row is found.
func (r *ScreenRepo) GetByID(ctx context.Context, id uint64) (*model.Screen, error) {
	const q = `SELECT ` + screenColumns + ` FROM screens WHERE id = ?`
	var s model.Screen
	if err := scanScreen(r.db.QueryRowContext(ctx, q, id), &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScreenNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListAll returns all screens ordered by id.
func (r *ScreenRepo) ListAll(ctx context.Context) ([]*model.Screen, error) {
	const q = `SELECT ` + screenColumns + ` FROM screens ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Screen
	for rows.Next() {
		s := new(model.Screen)
		if err := scanScreen(rows, s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces a screen's configuration.  It returns
// ErrScreenNotFound when no row is affected.
func (r *ScreenRepo) Update(ctx context.Context, s *model.Screen) error {
	const q = `UPDATE screens
	           SET name = ?, grid_rows = ?, grid_columns = ?, show_language = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, s.Name, s.GridRows, s.GridColumns, s.ShowLanguage, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrScreenNotFound
	}
	const qSelect = `SELECT ` + screenColumns + ` FROM screens WHERE id = ?`
	return scanScreen(r.db.QueryRowContext(ctx, qSelect, s.ID), s)
}

// Delete removes a screen and its assignments.  Calls that
// originated from the screen are retained for history.
func (r *ScreenRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()

	var exists uint64
	if err = tx.QueryRowContext(ctx, `SELECT id FROM screens WHERE id = ?`, id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrScreenNotFound
		}
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM screen_assignments WHERE screen_id = ?`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM screens WHERE id = ?`, id); err != nil {
		return err
	}
	return nil
}

// AssignRestaurants replaces the screen's restaurant assignment
// with the given ordered list.  Position follows slice order.  The
// replacement happens in one transaction so a kiosk never observes
// a half-updated grid.
func (r *ScreenRepo) AssignRestaurants(ctx context.Context, screenID uint64, restaurantIDs []uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()

	var exists uint64
	if err = tx.QueryRowContext(ctx, `SELECT id FROM screens WHERE id = ?`, screenID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrScreenNotFound
		}
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM screen_assignments WHERE screen_id = ?`, screenID); err != nil {
		return err
	}
	if len(restaurantIDs) == 0 {
		return nil
	}
	query := `INSERT INTO screen_assignments (screen_id, restaurant_id, position) VALUES `
	args := make([]interface{}, 0, len(restaurantIDs)*3)
	for i, rid := range restaurantIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, screenID, rid, i)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return nil
}

// ListAssignments returns the restaurants assigned to a screen in
// grid order.
func (r *ScreenRepo) ListAssignments(ctx context.Context, screenID uint64) ([]model.ScreenAssignment, error) {
	const q = `SELECT screen_id, restaurant_id, position
	           FROM screen_assignments
	           WHERE screen_id = ?
	           ORDER BY position`
	rows, err := r.db.QueryContext(ctx, q, screenID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.ScreenAssignment, 0)
	for rows.Next() {
		var a model.ScreenAssignment
		if err := rows.Scan(&a.ScreenID, &a.RestaurantID, &a.Position); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
