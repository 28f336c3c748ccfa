package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kioskconnect/backend/internal/coordinator"
	"github.com/kioskconnect/backend/internal/model"
)

// CallRepo provides durable storage for call records and, through
// the same transactions, the restaurant status flips that go with
// them.  It implements coordinator.Store.  Call rows are never
// deleted; completed calls are retained so the dashboard can show
// history and staff can reconnect and see pending calls after a
// restart.  All timestamps are stored in UTC.
type CallRepo struct {
	db *sql.DB
}

// NewCallRepo returns a new CallRepo bound to the given database.
func NewCallRepo(db *sql.DB) *CallRepo { return &CallRepo{db: db} }

// DB exposes the underlying handle for transaction management by
// callers that need to compose with other repositories.
func (r *CallRepo) DB() *sql.DB { return r.db }

const callColumns = `c.id, c.restaurant_id, c.origin_id, c.status, c.outcome, c.accepted_by,
                     c.revision, c.created_at, c.accepted_at, c.completed_at, s.name`

// scanCall reads one call row, including the joined screen name,
// from the given scanner.
func scanCall(row interface {
	Scan(dest ...interface{}) error
}) (model.Call, error) {
	var (
		c          model.Call
		outcome    sql.NullString
		acceptedBy sql.NullInt64
		acceptedAt sql.NullTime
		doneAt     sql.NullTime
		screenName sql.NullString
	)
	err := row.Scan(&c.ID, &c.RestaurantID, &c.OriginID, &c.Status, &outcome, &acceptedBy,
		&c.Revision, &c.CreatedAt, &acceptedAt, &doneAt, &screenName)
	if err != nil {
		return model.Call{}, err
	}
	if outcome.Valid {
		v := outcome.String
		c.Outcome = &v
	}
	if acceptedBy.Valid {
		v := uint64(acceptedBy.Int64)
		c.AcceptedBy = &v
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		c.AcceptedAt = &t
	}
	if doneAt.Valid {
		t := doneAt.Time
		c.CompletedAt = &t
	}
	if screenName.Valid {
		c.ScreenName = screenName.String
	}
	return c, nil
}

// CreateCall inserts a new PENDING call row.  The caller supplies
// the ID, revision and creation timestamp.
func (r *CallRepo) CreateCall(ctx context.Context, c *model.Call) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO calls (id, restaurant_id, origin_id, status, revision, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.RestaurantID, c.OriginID, c.Status, c.Revision, c.CreatedAt)
	if err != nil {
		return transient(err)
	}
	return nil
}

// GetCall returns a single call by ID with its screen name joined
// in, or coordinator.ErrCallNotFound.
func (r *CallRepo) GetCall(ctx context.Context, id string) (model.Call, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+callColumns+`
         FROM calls c
         LEFT JOIN screens s ON s.id = c.origin_id
         WHERE c.id = ?`, id)
	c, err := scanCall(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Call{}, coordinator.ErrCallNotFound
		}
		return model.Call{}, transient(err)
	}
	return c, nil
}

// ListCalls returns every call for the restaurant, newest first.
func (r *CallRepo) ListCalls(ctx context.Context, restaurantID uint64) ([]model.Call, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+callColumns+`
         FROM calls c
         LEFT JOIN screens s ON s.id = c.origin_id
         WHERE c.restaurant_id = ?
         ORDER BY c.created_at DESC, c.id DESC`, restaurantID)
	if err != nil {
		return nil, transient(err)
	}
	defer rows.Close()
	calls := make([]model.Call, 0)
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, transient(err)
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, transient(err)
	}
	return calls, nil
}

// AcceptCall applies the PENDING -> ACTIVE transition in one
// transaction: the accepted row gains accepted_by/accepted_at and
// a revision bump, every rival PENDING call for the restaurant is
// completed with outcome superseded, and the restaurant flips
// busy.  The call row is locked FOR UPDATE and its status
// re-verified, so a second coordinator process racing on the same
// row observes coordinator.ErrInvalidTransition.
func (r *CallRepo) AcceptCall(ctx context.Context, callID string, actorID uint64, at time.Time) (model.Call, []model.Call, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Call{}, nil, transient(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var status string
	var restaurantID uint64
	err = tx.QueryRowContext(ctx,
		`SELECT status, restaurant_id FROM calls WHERE id = ? FOR UPDATE`, callID).
		Scan(&status, &restaurantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Call{}, nil, coordinator.ErrCallNotFound
		}
		return model.Call{}, nil, transient(err)
	}
	if status != model.CallPending {
		return model.Call{}, nil, coordinator.ErrInvalidTransition
	}

	// Collect the rival pending calls before completing them so
	// they can be returned for event publishing.
	rivalIDs, err := pendingRivalIDs(ctx, tx, restaurantID, callID)
	if err != nil {
		return model.Call{}, nil, transient(err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE calls SET status = ?, accepted_by = ?, accepted_at = ?, revision = revision + 1
         WHERE id = ?`,
		model.CallActive, actorID, at, callID); err != nil {
		return model.Call{}, nil, transient(err)
	}
	if len(rivalIDs) > 0 {
		if _, err = tx.ExecContext(ctx,
			`UPDATE calls SET status = ?, outcome = ?, completed_at = ?, revision = revision + 1
             WHERE restaurant_id = ? AND status = ? AND id <> ?`,
			model.CallCompleted, model.OutcomeSuperseded, at,
			restaurantID, model.CallPending, callID); err != nil {
			return model.Call{}, nil, transient(err)
		}
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE restaurants SET status = ? WHERE id = ?`,
		model.StatusBusy, restaurantID); err != nil {
		return model.Call{}, nil, transient(err)
	}

	accepted, err := getCallTx(ctx, tx, callID)
	if err != nil {
		return model.Call{}, nil, transient(err)
	}
	superseded := make([]model.Call, 0, len(rivalIDs))
	for _, id := range rivalIDs {
		c, err := getCallTx(ctx, tx, id)
		if err != nil {
			return model.Call{}, nil, transient(err)
		}
		superseded = append(superseded, c)
	}

	if err := tx.Commit(); err != nil {
		return model.Call{}, nil, transient(err)
	}
	committed = true
	return accepted, superseded, nil
}

// EndCall applies the ACTIVE -> COMPLETED transition in one
// transaction and flips the restaurant back to available.
func (r *CallRepo) EndCall(ctx context.Context, callID string, actorID uint64, at time.Time) (model.Call, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Call{}, transient(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var status string
	var restaurantID uint64
	err = tx.QueryRowContext(ctx,
		`SELECT status, restaurant_id FROM calls WHERE id = ? FOR UPDATE`, callID).
		Scan(&status, &restaurantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Call{}, coordinator.ErrCallNotFound
		}
		return model.Call{}, transient(err)
	}
	if status != model.CallActive {
		return model.Call{}, coordinator.ErrInvalidTransition
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE calls SET status = ?, outcome = ?, completed_at = ?, revision = revision + 1
         WHERE id = ?`,
		model.CallCompleted, model.OutcomeEnded, at, callID); err != nil {
		return model.Call{}, transient(err)
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE restaurants SET status = ? WHERE id = ?`,
		model.StatusAvailable, restaurantID); err != nil {
		return model.Call{}, transient(err)
	}

	ended, err := getCallTx(ctx, tx, callID)
	if err != nil {
		return model.Call{}, transient(err)
	}
	if err := tx.Commit(); err != nil {
		return model.Call{}, transient(err)
	}
	committed = true
	return ended, nil
}

// ExpirePending completes every PENDING call for the restaurant
// created at or before cutoff with outcome expired, in one
// transaction, and returns the calls it closed.  Expiry never
// touches the restaurant status: a pending call was never
// occupying the active slot.
func (r *CallRepo) ExpirePending(ctx context.Context, restaurantID uint64, cutoff, at time.Time) ([]model.Call, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, transient(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM calls
         WHERE restaurant_id = ? AND status = ? AND created_at <= ?
         FOR UPDATE`,
		restaurantID, model.CallPending, cutoff)
	if err != nil {
		return nil, transient(err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, transient(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, transient(err)
	}
	if len(ids) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, transient(err)
		}
		committed = true
		return []model.Call{}, nil
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE calls SET status = ?, outcome = ?, completed_at = ?, revision = revision + 1
         WHERE restaurant_id = ? AND status = ? AND created_at <= ?`,
		model.CallCompleted, model.OutcomeExpired, at,
		restaurantID, model.CallPending, cutoff); err != nil {
		return nil, transient(err)
	}

	expired := make([]model.Call, 0, len(ids))
	for _, id := range ids {
		c, err := getCallTx(ctx, tx, id)
		if err != nil {
			return nil, transient(err)
		}
		expired = append(expired, c)
	}
	if err := tx.Commit(); err != nil {
		return nil, transient(err)
	}
	committed = true
	return expired, nil
}

// RestaurantsWithPendingBefore lists restaurants holding PENDING
// calls created at or before cutoff.  The sweeper uses it to know
// which per-restaurant locks to take.
func (r *CallRepo) RestaurantsWithPendingBefore(ctx context.Context, cutoff time.Time) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT restaurant_id FROM calls WHERE status = ? AND created_at <= ?`,
		model.CallPending, cutoff)
	if err != nil {
		return nil, transient(err)
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, transient(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, transient(err)
	}
	return ids, nil
}

// RestaurantStatus returns the availability flag for a restaurant
// or coordinator.ErrRestaurantNotFound.
func (r *CallRepo) RestaurantStatus(ctx context.Context, restaurantID uint64) (string, error) {
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT status FROM restaurants WHERE id = ?`, restaurantID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", coordinator.ErrRestaurantNotFound
		}
		return "", transient(err)
	}
	return status, nil
}

// pendingRivalIDs returns the IDs of every other PENDING call for
// the restaurant, locked FOR UPDATE within the transaction.
func pendingRivalIDs(ctx context.Context, tx *sql.Tx, restaurantID uint64, exceptID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM calls
         WHERE restaurant_id = ? AND status = ? AND id <> ?
         FOR UPDATE`,
		restaurantID, model.CallPending, exceptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// getCallTx re-reads a full call row inside a transaction.
func getCallTx(ctx context.Context, tx *sql.Tx, id string) (model.Call, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+callColumns+`
         FROM calls c
         LEFT JOIN screens s ON s.id = c.origin_id
         WHERE c.id = ?`, id)
	return scanCall(row)
}

// transient tags a driver-level failure as retryable.  Sentinel
// errors from the coordinator taxonomy pass through untouched.
func transient(err error) error {
	return fmt.Errorf("%w: %v", coordinator.ErrUnavailable, err)
}
