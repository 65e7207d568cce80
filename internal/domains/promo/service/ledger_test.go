package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingmodel "trailventure-backend/internal/domains/booking/model"
	bookingrepo "trailventure-backend/internal/domains/booking/repository"
	"trailventure-backend/internal/domains/promo/model"
	"trailventure-backend/internal/domains/promo/repository"
	"trailventure-backend/pkg/database"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakeTx satisfies pgx.Tx through embedding; only identity matters here
// because the fake repositories ignore the transaction handle.
type fakeTx struct{ pgx.Tx }

type fakeTxRunner struct{}

func (fakeTxRunner) RunInTx(ctx context.Context, fn database.TxFunc) error {
	return fn(fakeTx{})
}

// lockRecorder captures the order in which row locks are taken so lock
// ordering stays consistent across operations.
type lockRecorder struct {
	mu  sync.Mutex
	seq []string
}

func (l *lockRecorder) record(name string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq = append(l.seq, name)
}

func (l *lockRecorder) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq = nil
}

// fakePromoRepo keeps promos and the usage ledger in memory and mirrors the
// SQL guards of the real repository.
type fakePromoRepo struct {
	repository.PromoRepository

	mu             sync.Mutex
	locks          *lockRecorder
	promos         map[uuid.UUID]*model.PromoCode
	usageByBooking map[uuid.UUID]*model.PromoUsage
}

func newFakePromoRepo(promos ...*model.PromoCode) *fakePromoRepo {
	r := &fakePromoRepo{
		promos:         make(map[uuid.UUID]*model.PromoCode),
		usageByBooking: make(map[uuid.UUID]*model.PromoUsage),
	}
	for _, p := range promos {
		r.promos[p.ID] = p
	}
	return r
}

func (r *fakePromoRepo) findByCode(code string) (*model.PromoCode, error) {
	for _, p := range r.promos {
		if p.Code == model.NormalizeCode(code) {
			return p, nil
		}
	}
	return nil, model.ErrInvalidCode
}

func (r *fakePromoRepo) FindByCode(_ context.Context, code string) (*model.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findByCode(code)
}

func (r *fakePromoRepo) FindByCodeForUpdate(_ context.Context, _ pgx.Tx, code string) (*model.PromoCode, error) {
	r.locks.record("promo")
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findByCode(code)
}

func (r *fakePromoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.promos[id]; ok {
		return p, nil
	}
	return nil, model.ErrCodeNotFoundErr
}

func (r *fakePromoRepo) FindByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*model.PromoCode, error) {
	r.locks.record("promo")
	return r.FindByID(ctx, id)
}

func (r *fakePromoRepo) countUserUsage(promoID, userID uuid.UUID) int {
	count := 0
	for _, u := range r.usageByBooking {
		if u.PromoCodeID == promoID && u.UserID == userID {
			count++
		}
	}
	return count
}

func (r *fakePromoRepo) CountUserUsage(_ context.Context, promoID, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countUserUsage(promoID, userID), nil
}

func (r *fakePromoRepo) CountUserUsageTx(_ context.Context, _ pgx.Tx, promoID, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countUserUsage(promoID, userID), nil
}

func (r *fakePromoRepo) InsertUsage(_ context.Context, _ pgx.Tx, usage *model.PromoUsage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.usageByBooking[usage.BookingID]; exists {
		return model.ErrAlreadyApplied
	}
	usage.UsedAt = time.Now()
	r.usageByBooking[usage.BookingID] = usage
	return nil
}

func (r *fakePromoRepo) FindUsageByBooking(_ context.Context, _ pgx.Tx, bookingID uuid.UUID) (*model.PromoUsage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.usageByBooking[bookingID]; ok {
		return u, nil
	}
	return nil, model.ErrNoPromoApplied
}

func (r *fakePromoRepo) DeleteUsageByBooking(_ context.Context, _ pgx.Tx, bookingID uuid.UUID) (*model.PromoUsage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.usageByBooking[bookingID]
	if !ok {
		return nil, model.ErrNoPromoApplied
	}
	delete(r.usageByBooking, bookingID)
	return u, nil
}

// IncrementUsage mirrors the guarded SQL update.
func (r *fakePromoRepo) IncrementUsage(_ context.Context, _ pgx.Tx, promoID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.promos[promoID]
	if !ok {
		return false, nil
	}
	if p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit {
		return false, nil
	}
	p.UsageCount++
	return true, nil
}

func (r *fakePromoRepo) DecrementUsage(_ context.Context, _ pgx.Tx, promoID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.promos[promoID]; ok && p.UsageCount > 0 {
		p.UsageCount--
	}
	return nil
}

func (r *fakePromoRepo) ListPublicActive(_ context.Context) ([]*model.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PromoCode
	now := time.Now()
	for _, p := range r.promos {
		if p.IsPublic && p.IsActive() && p.WithinWindow(now) && !p.IsExhausted() {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeBookingRepo keeps bookings in memory.
type fakeBookingRepo struct {
	bookingrepo.BookingRepository

	mu       sync.Mutex
	locks    *lockRecorder
	bookings map[uuid.UUID]*bookingmodel.Booking
}

func newFakeBookingRepo(bookings ...*bookingmodel.Booking) *fakeBookingRepo {
	r := &fakeBookingRepo{bookings: make(map[uuid.UUID]*bookingmodel.Booking)}
	for _, b := range bookings {
		r.bookings[b.ID] = b
	}
	return r
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*bookingmodel.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bookings[id]; ok {
		return b, nil
	}
	return nil, model.ErrBookingNotFound
}

func (r *fakeBookingRepo) FindByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*bookingmodel.Booking, error) {
	r.locks.record("booking")
	return r.FindByID(ctx, id)
}

func (r *fakeBookingRepo) UpdateAmounts(_ context.Context, _ pgx.Tx, id uuid.UUID, discount, final decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return model.ErrBookingNotFound
	}
	b.DiscountAmount = discount
	b.FinalAmount = final
	return nil
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func newBooking(userID uuid.UUID, amount string) *bookingmodel.Booking {
	total := dec(amount)
	return &bookingmodel.Booking{
		ID:             uuid.New(),
		UserID:         userID,
		EventID:        "trek-annapurna",
		EventCategory:  "trekking",
		TotalAmount:    total,
		DiscountAmount: decimal.Zero,
		FinalAmount:    total,
		Status:         bookingmodel.BookingStatusPending,
	}
}

func newService(promos *fakePromoRepo, bookings *fakeBookingRepo) ServiceInterface {
	return NewPromoService(promos, bookings, fakeTxRunner{}, nil)
}

// ---------------------------------------------------------------------------
// Validate
// ---------------------------------------------------------------------------

func TestValidate_UnknownCode(t *testing.T) {
	svc := newService(newFakePromoRepo(), newFakeBookingRepo())

	result, err := svc.Validate(context.Background(), uuid.New(), &model.ValidateRequest{
		Code:           "NOPE",
		OriginalAmount: dec("100"),
	})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, model.ErrCodeInvalidCode, result.RejectionCode)
}

func TestValidate_EligibleComputesDiscount(t *testing.T) {
	promo := eligiblePromo()
	svc := newService(newFakePromoRepo(promo), newFakeBookingRepo())

	result, err := svc.Validate(context.Background(), uuid.New(), &model.ValidateRequest{
		Code:           "summer20 ", // normalization: trims and uppercases
		OriginalAmount: dec("400"),
		EventID:        "trek-annapurna",
		EventCategory:  "trekking",
	})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "SUMMER20", result.Code)
	require.NotNil(t, result.Description)
	assert.Equal(t, *promo.Description, *result.Description)
	require.NotNil(t, result.DiscountAmount)
	require.NotNil(t, result.FinalAmount)
	assert.True(t, dec("80").Equal(*result.DiscountAmount))
	assert.True(t, dec("320").Equal(*result.FinalAmount))
}

// TestValidate_IsReadOnly: a dry-run validation must not touch the usage
// counter.
func TestValidate_IsReadOnly(t *testing.T) {
	promo := eligiblePromo()
	svc := newService(newFakePromoRepo(promo), newFakeBookingRepo())

	_, err := svc.Validate(context.Background(), uuid.New(), &model.ValidateRequest{
		Code:           "SUMMER20",
		OriginalAmount: dec("400"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, promo.UsageCount)
}

// ---------------------------------------------------------------------------
// Apply
// ---------------------------------------------------------------------------

func TestApply_Success(t *testing.T) {
	promo := eligiblePromo()
	userID := uuid.New()
	booking := newBooking(userID, "400")

	promos := newFakePromoRepo(promo)
	bookings := newFakeBookingRepo(booking)
	svc := newService(promos, bookings)

	applied, err := svc.Apply(context.Background(), userID, false, booking.ID, &model.ApplyRequest{Code: "SUMMER20"})
	require.NoError(t, err)

	assert.True(t, dec("80").Equal(applied.DiscountAmount))
	assert.True(t, dec("320").Equal(applied.FinalAmount))
	assert.True(t, dec("400").Equal(applied.OriginalAmount))
	assert.Equal(t, "SUMMER20", applied.Code)
	require.NotNil(t, applied.Description)
	assert.Equal(t, *promo.Description, *applied.Description)

	// Booking amounts updated, counter bumped, ledger row written.
	assert.True(t, dec("80").Equal(booking.DiscountAmount))
	assert.True(t, dec("320").Equal(booking.FinalAmount))
	assert.Equal(t, 1, promo.UsageCount)

	usage, err := promos.FindUsageByBooking(context.Background(), nil, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, promo.ID, usage.PromoCodeID)
	assert.Equal(t, userID, usage.UserID)
}

func TestApply_UnknownCode(t *testing.T) {
	userID := uuid.New()
	booking := newBooking(userID, "400")
	svc := newService(newFakePromoRepo(), newFakeBookingRepo(booking))

	_, err := svc.Apply(context.Background(), userID, false, booking.ID, &model.ApplyRequest{Code: "NOPE"})
	assertAppError(t, err, model.ErrCodeInvalidCode)
}

func TestApply_BookingNotFound(t *testing.T) {
	svc := newService(newFakePromoRepo(eligiblePromo()), newFakeBookingRepo())

	_, err := svc.Apply(context.Background(), uuid.New(), false, uuid.New(), &model.ApplyRequest{Code: "SUMMER20"})
	assertAppError(t, err, model.ErrCodeBookingNotFound)
}

// TestApply_OwnershipEnforced: a stranger cannot apply a code to someone
// else's booking, but an admin can.
func TestApply_OwnershipEnforced(t *testing.T) {
	promo := eligiblePromo()
	owner := uuid.New()
	booking := newBooking(owner, "400")
	svc := newService(newFakePromoRepo(promo), newFakeBookingRepo(booking))

	_, err := svc.Apply(context.Background(), uuid.New(), false, booking.ID, &model.ApplyRequest{Code: "SUMMER20"})
	assertAppError(t, err, model.ErrCodeUnauthorized)

	_, err = svc.Apply(context.Background(), uuid.New(), true, booking.ID, &model.ApplyRequest{Code: "SUMMER20"})
	require.NoError(t, err)
}

func TestApply_SecondCodeRejected(t *testing.T) {
	first := eligiblePromo()
	second := eligiblePromo()
	second.Code = "WINTER10"
	second.ID = uuid.New()

	userID := uuid.New()
	booking := newBooking(userID, "400")
	svc := newService(newFakePromoRepo(first, second), newFakeBookingRepo(booking))

	_, err := svc.Apply(context.Background(), userID, false, booking.ID, &model.ApplyRequest{Code: "SUMMER20"})
	require.NoError(t, err)

	_, err = svc.Apply(context.Background(), userID, false, booking.ID, &model.ApplyRequest{Code: "WINTER10"})
	assertAppError(t, err, model.ErrCodeAlreadyApplied)

	// First application is untouched.
	assert.True(t, dec("80").Equal(booking.DiscountAmount))
	assert.Equal(t, 1, first.UsageCount)
	assert.Equal(t, 0, second.UsageCount)
}

// TestApply_LastUseWins: with usage_limit=1, exactly one of two applies
// succeeds and the counter never exceeds the limit.
func TestApply_LastUseWins(t *testing.T) {
	promo := eligiblePromo()
	limit := 1
	promo.UsageLimit = &limit

	userA, userB := uuid.New(), uuid.New()
	bookingA := newBooking(userA, "400")
	bookingB := newBooking(userB, "300")

	svc := newService(newFakePromoRepo(promo), newFakeBookingRepo(bookingA, bookingB))

	_, errA := svc.Apply(context.Background(), userA, false, bookingA.ID, &model.ApplyRequest{Code: "SUMMER20"})
	_, errB := svc.Apply(context.Background(), userB, false, bookingB.ID, &model.ApplyRequest{Code: "SUMMER20"})

	require.NoError(t, errA)
	assertAppError(t, errB, model.ErrCodeGlobalLimitExceeded)
	assert.Equal(t, 1, promo.UsageCount)
}

func TestApply_UserLimitCountsPriorUses(t *testing.T) {
	promo := eligiblePromo()
	limit := 1
	promo.UserUsageLimit = &limit

	userID := uuid.New()
	bookingA := newBooking(userID, "400")
	bookingB := newBooking(userID, "300")

	svc := newService(newFakePromoRepo(promo), newFakeBookingRepo(bookingA, bookingB))

	_, err := svc.Apply(context.Background(), userID, false, bookingA.ID, &model.ApplyRequest{Code: "SUMMER20"})
	require.NoError(t, err)

	_, err = svc.Apply(context.Background(), userID, false, bookingB.ID, &model.ApplyRequest{Code: "SUMMER20"})
	assertAppError(t, err, model.ErrCodeUserLimitExceeded)
}

func TestApply_BelowMinimumUsesBookingAmount(t *testing.T) {
	promo := eligiblePromo()
	promo.MinOrderAmount = decPtr("500")

	userID := uuid.New()
	booking := newBooking(userID, "400")
	svc := newService(newFakePromoRepo(promo), newFakeBookingRepo(booking))

	_, err := svc.Apply(context.Background(), userID, false, booking.ID, &model.ApplyRequest{Code: "SUMMER20"})
	assertAppError(t, err, model.ErrCodeBelowMinimum)
	assert.Equal(t, 0, promo.UsageCount)
	assert.True(t, booking.DiscountAmount.IsZero())
}

// ---------------------------------------------------------------------------
// Remove
// ---------------------------------------------------------------------------

func TestRemove_RestoresBookingAndCounter(t *testing.T) {
	promo := eligiblePromo()
	userID := uuid.New()
	booking := newBooking(userID, "400")

	promos := newFakePromoRepo(promo)
	svc := newService(promos, newFakeBookingRepo(booking))

	_, err := svc.Apply(context.Background(), userID, false, booking.ID, &model.ApplyRequest{Code: "SUMMER20"})
	require.NoError(t, err)

	restored, err := svc.Remove(context.Background(), userID, false, booking.ID)
	require.NoError(t, err)

	assert.True(t, restored.DiscountAmount.IsZero())
	assert.True(t, dec("400").Equal(restored.FinalAmount))
	assert.True(t, booking.DiscountAmount.IsZero())
	assert.True(t, dec("400").Equal(booking.FinalAmount))
	assert.Equal(t, 0, promo.UsageCount)

	_, err = promos.FindUsageByBooking(context.Background(), nil, booking.ID)
	assertAppError(t, err, model.ErrCodeNoPromoApplied)
}

// TestRemove_SecondRemovalReportsNoPromo: removal is idempotent in effect;
// the second call changes nothing and reports NO_PROMO_APPLIED.
func TestRemove_SecondRemovalReportsNoPromo(t *testing.T) {
	promo := eligiblePromo()
	userID := uuid.New()
	booking := newBooking(userID, "400")
	svc := newService(newFakePromoRepo(promo), newFakeBookingRepo(booking))

	_, err := svc.Apply(context.Background(), userID, false, booking.ID, &model.ApplyRequest{Code: "SUMMER20"})
	require.NoError(t, err)

	_, err = svc.Remove(context.Background(), userID, false, booking.ID)
	require.NoError(t, err)

	_, err = svc.Remove(context.Background(), userID, false, booking.ID)
	assertAppError(t, err, model.ErrCodeNoPromoApplied)
	assert.True(t, dec("400").Equal(booking.FinalAmount))
	assert.Equal(t, 0, promo.UsageCount)
}

func TestRemove_OwnershipEnforced(t *testing.T) {
	promo := eligiblePromo()
	owner := uuid.New()
	booking := newBooking(owner, "400")
	svc := newService(newFakePromoRepo(promo), newFakeBookingRepo(booking))

	_, err := svc.Apply(context.Background(), owner, false, booking.ID, &model.ApplyRequest{Code: "SUMMER20"})
	require.NoError(t, err)

	_, err = svc.Remove(context.Background(), uuid.New(), false, booking.ID)
	assertAppError(t, err, model.ErrCodeUnauthorized)
}

// TestRemove_LocksPromoBeforeBooking: Remove takes row locks in the same
// order as Apply (promo first, then booking) so a concurrent apply and
// remove against the same pair of rows cannot deadlock.
func TestRemove_LocksPromoBeforeBooking(t *testing.T) {
	promo := eligiblePromo()
	userID := uuid.New()
	booking := newBooking(userID, "400")

	rec := &lockRecorder{}
	promos := newFakePromoRepo(promo)
	promos.locks = rec
	bookings := newFakeBookingRepo(booking)
	bookings.locks = rec
	svc := newService(promos, bookings)

	_, err := svc.Apply(context.Background(), userID, false, booking.ID, &model.ApplyRequest{Code: "SUMMER20"})
	require.NoError(t, err)
	assert.Equal(t, []string{"promo", "booking"}, rec.seq)

	rec.reset()
	_, err = svc.Remove(context.Background(), userID, false, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"promo", "booking"}, rec.seq)
}

// TestApplyRemoveApply_ReusesFreedSlot: removing an application frees both
// the global slot and the per-user slot.
func TestApplyRemoveApply_ReusesFreedSlot(t *testing.T) {
	promo := eligiblePromo()
	limit := 1
	promo.UsageLimit = &limit
	promo.UserUsageLimit = &limit

	userID := uuid.New()
	booking := newBooking(userID, "400")
	svc := newService(newFakePromoRepo(promo), newFakeBookingRepo(booking))

	_, err := svc.Apply(context.Background(), userID, false, booking.ID, &model.ApplyRequest{Code: "SUMMER20"})
	require.NoError(t, err)
	_, err = svc.Remove(context.Background(), userID, false, booking.ID)
	require.NoError(t, err)

	_, err = svc.Apply(context.Background(), userID, false, booking.ID, &model.ApplyRequest{Code: "SUMMER20"})
	require.NoError(t, err)
	assert.Equal(t, 1, promo.UsageCount)
}

func assertAppError(t *testing.T, err error, code model.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	var appErr *model.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}
