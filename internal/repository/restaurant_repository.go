// Package repository contains data access logic separated from HTTP
// handlers.  This file covers restaurants: the tenants a kiosk can
// call.  The status column (available|busy) is deliberately absent
// from every write in this file — it belongs to the call coordinator
// and is only ever flipped inside call transition transactions.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kioskconnect/backend/internal/model"
)

// ErrRestaurantNotFound is returned when a restaurant lookup fails.
var ErrRestaurantNotFound = errors.New("restaurant not found")

// RestaurantRepo encapsulates all database queries related to
// restaurants.
type RestaurantRepo struct {
	db *sql.DB
}

// NewRestaurantRepo constructs a RestaurantRepo with the provided DB
// handle.
func NewRestaurantRepo(db *sql.DB) *RestaurantRepo {
	return &RestaurantRepo{db: db}
}

const restaurantColumns = `id, name_en, name_ar, description_en, description_ar,
                           menu_image_url, phone, status, created_at, updated_at`

func scanRestaurant(row interface {
	Scan(dest ...interface{}) error
}, r *model.Restaurant) error {
	return row.Scan(&r.ID, &r.NameEn, &r.NameAr, &r.DescriptionEn, &r.DescriptionAr,
		&r.MenuImageURL, &r.Phone, &r.Status, &r.CreatedAt, &r.UpdatedAt)
}

// Create inserts a new restaurant.  The status column defaults to
// available in the schema and is not supplied here.  On success the
// record is re-read so the caller receives generated fields.
func (r *RestaurantRepo) Create(ctx context.Context, rest *model.Restaurant) error {
	const qInsert = `INSERT INTO restaurants (name_en, name_ar, description_en, description_ar, menu_image_url, phone)
	                 VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert,
		rest.NameEn, rest.NameAr, rest.DescriptionEn, rest.DescriptionAr, rest.MenuImageURL, rest.Phone)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rest.ID = uint64(id)

	const qSelect = `SELECT ` + restaurantColumns + ` FROM restaurants WHERE id = ?`
	return scanRestaurant(r.db.QueryRowContext(ctx, qSelect, rest.ID), rest)
}

// GetByID fetches a restaurant by its ID.  It returns
// ErrRestaurantNotFound if no row is found.
func (r *RestaurantRepo) GetByID(ctx context.Context, id uint64) (*model.Restaurant, error) {
	const q = `SELECT ` + restaurantColumns + ` FROM restaurants WHERE id = ?`
	var rest model.Restaurant
	if err := scanRestaurant(r.db.QueryRowContext(ctx, q, id), &rest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRestaurantNotFound
		}
		return nil, err
	}
	return &rest, nil
}

// ListAll returns all restaurants ordered by id.  The kiosk home
// grid and the admin list both consume this.
func (r *RestaurantRepo) ListAll(ctx context.Context) ([]*model.Restaurant, error) {
	const q = `SELECT ` + restaurantColumns + ` FROM restaurants ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Restaurant
	for rows.Next() {
		rest := new(model.Restaurant)
		if err := scanRestaurant(rows, rest); err != nil {
			return nil, err
		}
		out = append(out, rest)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces the restaurant's display metadata.  The status
// column is intentionally not part of the update.  It returns
// ErrRestaurantNotFound when no row is affected.
func (r *RestaurantRepo) Update(ctx context.Context, rest *model.Restaurant) error {
	const q = `UPDATE restaurants
	           SET name_en = ?, name_ar = ?, description_en = ?, description_ar = ?,
	               menu_image_url = ?, phone = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		rest.NameEn, rest.NameAr, rest.DescriptionEn, rest.DescriptionAr,
		rest.MenuImageURL, rest.Phone, rest.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRestaurantNotFound
	}
	const qSelect = `SELECT ` + restaurantColumns + ` FROM restaurants WHERE id = ?`
	return scanRestaurant(r.db.QueryRowContext(ctx, qSelect, rest.ID), rest)
}

// Delete removes a restaurant together with its screen assignments
// and staff bindings.  Call records are retained: they are the
// durable history and are never deleted.  Deleting a restaurant
// that currently has an ACTIVE call returns ErrConflict; the call
// must be ended first.
func (r *RestaurantRepo) Delete(ctx context.Context, id uint64) error {
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

	var status string
	if err = tx.QueryRowContext(ctx, `SELECT status FROM restaurants WHERE id = ? FOR UPDATE`, id).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrRestaurantNotFound
		}
		return err
	}
	if status == model.StatusBusy {
		err = ErrConflict
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM screen_assignments WHERE restaurant_id = ?`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE users SET restaurant_id = NULL WHERE restaurant_id = ?`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM restaurants WHERE id = ?`, id); err != nil {
		return err
	}
	return nil
}
