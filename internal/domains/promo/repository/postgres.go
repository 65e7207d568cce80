package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"trailventure-backend/internal/domains/promo/model"
)

const promoColumns = `
	id, code, description,
	discount_type, discount_value, max_discount_amount, min_order_amount,
	usage_limit, user_usage_limit, usage_count,
	valid_from, valid_until,
	applicable_events, applicable_categories, excluded_events,
	is_public, target_users,
	status, created_at, updated_at`

// PostgresRepository implements PromoRepository on PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) PromoRepository {
	return &PostgresRepository{db: db}
}

// querier covers both pool and transaction connections.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanPromo(row pgx.Row) (*model.PromoCode, error) {
	var p model.PromoCode
	var targetUsers []string
	err := row.Scan(
		&p.ID,
		&p.Code,
		&p.Description,
		&p.DiscountType,
		&p.DiscountValue,
		&p.MaxDiscountAmount,
		&p.MinOrderAmount,
		&p.UsageLimit,
		&p.UserUsageLimit,
		&p.UsageCount,
		&p.ValidFrom,
		&p.ValidUntil,
		pq.Array(&p.ApplicableEvents),
		pq.Array(&p.ApplicableCategories),
		pq.Array(&p.ExcludedEvents),
		&p.IsPublic,
		pq.Array(&targetUsers),
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	for _, raw := range targetUsers {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse target user id: %w", err)
		}
		p.TargetUsers = append(p.TargetUsers, id)
	}
	return &p, nil
}

func targetUserStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// -------------------------------------------------------------------
// READ OPERATIONS
// -------------------------------------------------------------------

func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PromoCode, error) {
	return r.findByID(ctx, r.db, id, false)
}

// FindByIDForUpdate locks the promo row by id. Remove uses it to take the
// promo lock before the booking lock, matching Apply's order.
func (r *PostgresRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.PromoCode, error) {
	return r.findByID(ctx, tx, id, true)
}

func (r *PostgresRepository) findByID(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*model.PromoCode, error) {
	query := `SELECT ` + promoColumns + ` FROM promo_codes WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	p, err := scanPromo(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCodeNotFoundErr
		}
		return nil, fmt.Errorf("find promo by id: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) FindByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	return r.findByCode(ctx, r.db, code, false)
}

// FindByCodeForUpdate locks the promo row for the duration of the
// transaction. Lock order is promo first, booking second, everywhere.
func (r *PostgresRepository) FindByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.PromoCode, error) {
	return r.findByCode(ctx, tx, code, true)
}

func (r *PostgresRepository) findByCode(ctx context.Context, q querier, code string, forUpdate bool) (*model.PromoCode, error) {
	query := `SELECT ` + promoColumns + ` FROM promo_codes WHERE UPPER(code) = UPPER($1)`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	p, err := scanPromo(q.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrInvalidCode
		}
		return nil, fmt.Errorf("find promo by code: %w", err)
	}
	return p, nil
}

// ListPublicActive returns public codes inside their validity window that
// still have uses left.
func (r *PostgresRepository) ListPublicActive(ctx context.Context) ([]*model.PromoCode, error) {
	query := `
		SELECT ` + promoColumns + `
		FROM promo_codes
		WHERE is_public = true
		  AND status = 'active'
		  AND valid_from <= NOW()
		  AND valid_until >= NOW()
		  AND (usage_limit IS NULL OR usage_count < usage_limit)
		ORDER BY valid_until ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list public promos: %w", err)
	}
	defer rows.Close()

	var promos []*model.PromoCode
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan public promo: %w", err)
		}
		promos = append(promos, p)
	}
	return promos, rows.Err()
}

func (r *PostgresRepository) ListAdmin(ctx context.Context, filter *model.ListCodesFilter) ([]*model.PromoCode, int, error) {
	conditions := []string{"1=1"}
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(code ILIKE $%d OR description ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}
	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM promo_codes WHERE ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count promos: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM promo_codes
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, promoColumns, where, argIdx, argIdx+1)
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list promos: %w", err)
	}
	defer rows.Close()

	var promos []*model.PromoCode
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan promo: %w", err)
		}
		promos = append(promos, p)
	}
	return promos, total, rows.Err()
}

func (r *PostgresRepository) CountUserUsage(ctx context.Context, promoID, userID uuid.UUID) (int, error) {
	return countUserUsage(ctx, r.db, promoID, userID)
}

func (r *PostgresRepository) CountUserUsageTx(ctx context.Context, tx pgx.Tx, promoID, userID uuid.UUID) (int, error) {
	return countUserUsage(ctx, tx, promoID, userID)
}

func countUserUsage(ctx context.Context, q querier, promoID, userID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM promo_usages
		WHERE promo_code_id = $1 AND user_id = $2
	`

	var count int
	if err := q.QueryRow(ctx, query, promoID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count user usage: %w", err)
	}
	return count, nil
}

// -------------------------------------------------------------------
// WRITE OPERATIONS
// -------------------------------------------------------------------

func (r *PostgresRepository) Create(ctx context.Context, promo *model.PromoCode) error {
	query := `
		INSERT INTO promo_codes (
			id, code, description,
			discount_type, discount_value, max_discount_amount, min_order_amount,
			usage_limit, user_usage_limit, usage_count,
			valid_from, valid_until,
			applicable_events, applicable_categories, excluded_events,
			is_public, target_users,
			status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, NOW(), NOW()
		)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		promo.ID,
		promo.Code,
		promo.Description,
		promo.DiscountType,
		promo.DiscountValue,
		promo.MaxDiscountAmount,
		promo.MinOrderAmount,
		promo.UsageLimit,
		promo.UserUsageLimit,
		promo.UsageCount,
		promo.ValidFrom,
		promo.ValidUntil,
		pq.Array(promo.ApplicableEvents),
		pq.Array(promo.ApplicableCategories),
		pq.Array(promo.ExcludedEvents),
		promo.IsPublic,
		pq.Array(targetUserStrings(promo.TargetUsers)),
		promo.Status,
	).Scan(&promo.CreatedAt, &promo.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return &model.AppError{
				Code:       model.ErrCodeDuplicateCode,
				Message:    "a promo code with this code already exists",
				HTTPStatus: 409,
			}
		}
		return fmt.Errorf("create promo: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, promo *model.PromoCode) error {
	query := `
		UPDATE promo_codes
		SET description = $2,
		    discount_value = $3,
		    max_discount_amount = $4,
		    min_order_amount = $5,
		    usage_limit = $6,
		    user_usage_limit = $7,
		    valid_from = $8,
		    valid_until = $9,
		    applicable_events = $10,
		    applicable_categories = $11,
		    excluded_events = $12,
		    is_public = $13,
		    target_users = $14,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query,
		promo.ID,
		promo.Description,
		promo.DiscountValue,
		promo.MaxDiscountAmount,
		promo.MinOrderAmount,
		promo.UsageLimit,
		promo.UserUsageLimit,
		promo.ValidFrom,
		promo.ValidUntil,
		pq.Array(promo.ApplicableEvents),
		pq.Array(promo.ApplicableCategories),
		pq.Array(promo.ExcludedEvents),
		promo.IsPublic,
		pq.Array(targetUserStrings(promo.TargetUsers)),
	).Scan(&promo.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrCodeNotFoundErr
		}
		return fmt.Errorf("update promo: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.CodeStatus) error {
	query := `
		UPDATE promo_codes
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update promo status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCodeNotFoundErr
	}
	return nil
}

// Delete hard-deletes a code. Callers must ensure the code has no usage
// history first; codes with history are retired, not deleted.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM promo_codes WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return model.ErrCodeInUseErr
		}
		return fmt.Errorf("delete promo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCodeNotFoundErr
	}
	return nil
}

// -------------------------------------------------------------------
// USAGE LEDGER (transactional)
// -------------------------------------------------------------------

// InsertUsage writes the usage row. The unique index on booking_id is the
// hard guarantee of one code per booking; a violation maps to
// ALREADY_APPLIED.
func (r *PostgresRepository) InsertUsage(ctx context.Context, tx pgx.Tx, usage *model.PromoUsage) error {
	query := `
		INSERT INTO promo_usages (
			id, promo_code_id, user_id, booking_id,
			original_amount, discount_amount, final_amount, used_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING used_at
	`

	err := tx.QueryRow(ctx, query,
		usage.ID,
		usage.PromoCodeID,
		usage.UserID,
		usage.BookingID,
		usage.OriginalAmount,
		usage.DiscountAmount,
		usage.FinalAmount,
	).Scan(&usage.UsedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.ErrAlreadyApplied
		}
		return fmt.Errorf("insert promo usage: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindUsageByBooking(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID) (*model.PromoUsage, error) {
	query := `
		SELECT id, promo_code_id, user_id, booking_id,
		       original_amount, discount_amount, final_amount, used_at
		FROM promo_usages
		WHERE booking_id = $1
	`

	var q querier = r.db
	if tx != nil {
		q = tx
	}

	var u model.PromoUsage
	err := q.QueryRow(ctx, query, bookingID).Scan(
		&u.ID,
		&u.PromoCodeID,
		&u.UserID,
		&u.BookingID,
		&u.OriginalAmount,
		&u.DiscountAmount,
		&u.FinalAmount,
		&u.UsedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNoPromoApplied
		}
		return nil, fmt.Errorf("find usage by booking: %w", err)
	}
	return &u, nil
}

// DeleteUsageByBooking removes the usage row and returns it so the caller
// knows which promo to decrement and which amounts to restore.
func (r *PostgresRepository) DeleteUsageByBooking(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID) (*model.PromoUsage, error) {
	query := `
		DELETE FROM promo_usages
		WHERE booking_id = $1
		RETURNING id, promo_code_id, user_id, booking_id,
		          original_amount, discount_amount, final_amount, used_at
	`

	var u model.PromoUsage
	err := tx.QueryRow(ctx, query, bookingID).Scan(
		&u.ID,
		&u.PromoCodeID,
		&u.UserID,
		&u.BookingID,
		&u.OriginalAmount,
		&u.DiscountAmount,
		&u.FinalAmount,
		&u.UsedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNoPromoApplied
		}
		return nil, fmt.Errorf("delete usage by booking: %w", err)
	}
	return &u, nil
}

// IncrementUsage bumps the counter only while under the limit. A false
// return means the guard failed and the code is exhausted.
func (r *PostgresRepository) IncrementUsage(ctx context.Context, tx pgx.Tx, promoID uuid.UUID) (bool, error) {
	query := `
		UPDATE promo_codes
		SET usage_count = usage_count + 1, updated_at = NOW()
		WHERE id = $1
		  AND (usage_limit IS NULL OR usage_count < usage_limit)
	`

	tag, err := tx.Exec(ctx, query, promoID)
	if err != nil {
		return false, fmt.Errorf("increment promo usage: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DecrementUsage floors at zero so removal after a manual counter reset
// cannot go negative.
func (r *PostgresRepository) DecrementUsage(ctx context.Context, tx pgx.Tx, promoID uuid.UUID) error {
	query := `
		UPDATE promo_codes
		SET usage_count = GREATEST(usage_count - 1, 0), updated_at = NOW()
		WHERE id = $1
	`

	if _, err := tx.Exec(ctx, query, promoID); err != nil {
		return fmt.Errorf("decrement promo usage: %w", err)
	}
	return nil
}

// -------------------------------------------------------------------
// ADMIN REPORTING
// -------------------------------------------------------------------

func (r *PostgresRepository) ListUsageByCode(ctx context.Context, promoID uuid.UUID, page, limit int) ([]*model.PromoUsage, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM promo_usages WHERE promo_code_id = $1`
	if err := r.db.QueryRow(ctx, countQuery, promoID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count usage history: %w", err)
	}

	query := `
		SELECT id, promo_code_id, user_id, booking_id,
		       original_amount, discount_amount, final_amount, used_at
		FROM promo_usages
		WHERE promo_code_id = $1
		ORDER BY used_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, promoID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list usage history: %w", err)
	}
	defer rows.Close()

	var usages []*model.PromoUsage
	for rows.Next() {
		var u model.PromoUsage
		err := rows.Scan(
			&u.ID,
			&u.PromoCodeID,
			&u.UserID,
			&u.BookingID,
			&u.OriginalAmount,
			&u.DiscountAmount,
			&u.FinalAmount,
			&u.UsedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan usage: %w", err)
		}
		usages = append(usages, &u)
	}
	return usages, total, rows.Err()
}

func (r *PostgresRepository) GetUsageStats(ctx context.Context, promoID uuid.UUID) (*model.UsageStats, error) {
	query := `
		SELECT p.id, p.code,
		       COUNT(u.id) AS total_uses,
		       COUNT(DISTINCT u.user_id) AS unique_users,
		       COALESCE(SUM(u.discount_amount), 0) AS total_discount
		FROM promo_codes p
		LEFT JOIN promo_usages u ON u.promo_code_id = p.id
		WHERE p.id = $1
		GROUP BY p.id, p.code
	`

	var stats model.UsageStats
	err := r.db.QueryRow(ctx, query, promoID).Scan(
		&stats.PromoCodeID,
		&stats.Code,
		&stats.TotalUses,
		&stats.UniqueUsers,
		&stats.TotalDiscount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCodeNotFoundErr
		}
		return nil, fmt.Errorf("get usage stats: %w", err)
	}
	return &stats, nil
}

// -------------------------------------------------------------------
// UTILITY
// -------------------------------------------------------------------

func (r *PostgresRepository) CheckCodeExists(ctx context.Context, code string, excludeID *uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM promo_codes WHERE UPPER(code) = UPPER($1)`
	args := []any{code}
	if excludeID != nil {
		query += ` AND id != $2`
		args = append(args, *excludeID)
	}
	query += `)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check code exists: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) HasUsage(ctx context.Context, promoID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM promo_usages WHERE promo_code_id = $1)`
	if err := r.db.QueryRow(ctx, query, promoID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check promo usage: %w", err)
	}
	return exists, nil
}
