package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"trailventure-backend/internal/domains/booking/model"
	promomodel "trailventure-backend/internal/domains/promo/model"
)

const bookingColumns = `
	id, user_id, event_id, event_category,
	total_amount, discount_amount, final_amount,
	status, created_at, updated_at`

// PostgresRepository implements BookingRepository on PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) BookingRepository {
	return &PostgresRepository{db: db}
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.EventID,
		&b.EventCategory,
		&b.TotalAmount,
		&b.DiscountAmount,
		&b.FinalAmount,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PostgresRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (
			id, user_id, event_id, event_category,
			total_amount, discount_amount, final_amount,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		booking.ID,
		booking.UserID,
		booking.EventID,
		booking.EventCategory,
		booking.TotalAmount,
		booking.DiscountAmount,
		booking.FinalAmount,
		booking.Status,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	return r.findByID(ctx, r.db, id, false)
}

// FindByIDForUpdate locks the booking row for the duration of the
// transaction. Always lock the promo row before the booking row.
func (r *PostgresRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Booking, error) {
	return r.findByID(ctx, tx, id, true)
}

func (r *PostgresRepository) findByID(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	b, err := scanBooking(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promomodel.ErrBookingNotFound
		}
		return nil, fmt.Errorf("find booking by id: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]*model.Booking, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM bookings WHERE user_id = $1`
	if err := r.db.QueryRow(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, total, rows.Err()
}

// UpdateAmounts rewrites the discount and final amounts. total_amount is
// intentionally untouched; it is the immutable pre-discount price.
func (r *PostgresRepository) UpdateAmounts(ctx context.Context, tx pgx.Tx, id uuid.UUID, discount, final decimal.Decimal) error {
	query := `
		UPDATE bookings
		SET discount_amount = $2, final_amount = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, id, discount, final)
	if err != nil {
		return fmt.Errorf("update booking amounts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return promomodel.ErrBookingNotFound
	}
	return nil
}
