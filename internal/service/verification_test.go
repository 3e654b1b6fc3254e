package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alchile/backend/internal/config"
	"github.com/alchile/backend/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCodeStore mirrors the conditional-write semantics of the MySQL
// repository so sequence properties can be tested against real state.
type fakeCodeStore struct {
	mu    sync.Mutex
	codes map[uuid.UUID]*domain.VerificationCode
	err   error
}

func newFakeCodeStore() *fakeCodeStore {
	return &fakeCodeStore{codes: make(map[uuid.UUID]*domain.VerificationCode)}
}

func (f *fakeCodeStore) Create(_ context.Context, code *domain.VerificationCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := *code
	f.codes[code.ID] = &cp
	return nil
}

func (f *fakeCodeStore) GetActive(_ context.Context, userID uuid.UUID, now time.Time) (*domain.VerificationCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	var matches []*domain.VerificationCode
	for _, c := range f.codes {
		if c.UserID == userID && !c.Verified && c.ExpiresAt.After(now) {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return nil, domain.ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ExpiresAt.After(matches[j].ExpiresAt) })

	cp := *matches[0]
	return &cp, nil
}

func (f *fakeCodeStore) GetLast(_ context.Context, userID uuid.UUID) (*domain.VerificationCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	var last *domain.VerificationCode
	for _, c := range f.codes {
		if c.UserID != userID {
			continue
		}
		if last == nil || c.CreatedAt.After(last.CreatedAt) {
			last = c
		}
	}
	if last == nil {
		return nil, domain.ErrNotFound
	}

	cp := *last
	return &cp, nil
}

func (f *fakeCodeStore) RegisterAttempt(_ context.Context, id uuid.UUID, maxAttempts int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}

	c, ok := f.codes[id]
	if !ok || c.Verified || c.Attempts >= maxAttempts {
		return false, nil
	}
	c.Attempts++
	return true, nil
}

func (f *fakeCodeStore) Consume(_ context.Context, id uuid.UUID, maxAttempts int, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}

	c, ok := f.codes[id]
	if !ok || c.Verified || c.Attempts >= maxAttempts {
		return false, nil
	}
	c.Attempts++
	c.Verified = true
	verifiedAt := now
	c.VerifiedAt = &verifiedAt
	return true, nil
}

func (f *fakeCodeStore) InvalidateOutstanding(_ context.Context, userID uuid.UUID, now time.Time, limit int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}

	var n int64
	for _, c := range f.codes {
		if n >= int64(limit) {
			break
		}
		if c.UserID == userID && !c.Verified {
			c.Verified = true
			verifiedAt := now
			c.VerifiedAt = &verifiedAt
			n++
		}
	}
	return n, nil
}

func (f *fakeCodeStore) DeleteExpired(_ context.Context, now time.Time, limit int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}

	var n int64
	for id, c := range f.codes {
		if n >= int64(limit) {
			break
		}
		if c.ExpiresAt.Before(now) {
			delete(f.codes, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeCodeStore) get(id uuid.UUID) *domain.VerificationCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.codes[id]; ok {
		cp := *c
		return &cp
	}
	return nil
}

type fakeRateLimitStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*domain.RateLimit
	err     error
}

func newFakeRateLimitStore() *fakeRateLimitStore {
	return &fakeRateLimitStore{records: make(map[uuid.UUID]*domain.RateLimit)}
}

func (f *fakeRateLimitStore) Increment(_ context.Context, userID uuid.UUID, max int, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}

	r, ok := f.records[userID]
	if !ok || !r.ResetAt.After(now) || r.Attempts >= max {
		return false, nil
	}
	r.Attempts++
	r.LastAttempt = now
	return true, nil
}

func (f *fakeRateLimitStore) ResetWindow(_ context.Context, userID uuid.UUID, now time.Time, resetAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}

	r, ok := f.records[userID]
	if !ok || r.ResetAt.After(now) {
		return false, nil
	}
	r.Attempts = 1
	r.LastAttempt = now
	r.ResetAt = resetAt
	return true, nil
}

func (f *fakeRateLimitStore) Create(_ context.Context, limit *domain.RateLimit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}

	if _, ok := f.records[limit.UserID]; ok {
		return domain.ErrDuplicateEntry
	}
	cp := *limit
	f.records[limit.UserID] = &cp
	return nil
}

func (f *fakeRateLimitStore) Get(_ context.Context, userID uuid.UUID) (*domain.RateLimit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	r, ok := f.records[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRateLimitStore) Delete(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.records, userID)
	return nil
}

type fakeDeliverer struct {
	err  error
	sent []struct {
		to   string
		code string
	}
}

func (f *fakeDeliverer) SendOTP(_ context.Context, to string, code string, _ time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, struct {
		to   string
		code string
	}{to, code})
	return "fake-channel", nil
}

type sequenceGenerator struct {
	codes []string
	i     int
}

func (g *sequenceGenerator) Generate() (string, error) {
	code := g.codes[g.i%len(g.codes)]
	g.i++
	return code, nil
}

type fixture struct {
	svc       *verificationService
	limiter   *rateLimiter
	codes     *fakeCodeStore
	limits    *fakeRateLimitStore
	deliverer *fakeDeliverer
	now       time.Time
}

func newFixture(t *testing.T, genCodes ...string) *fixture {
	t.Helper()

	if len(genCodes) == 0 {
		genCodes = []string{"482913", "910472", "335781", "204896"}
	}

	f := &fixture{
		codes:     newFakeCodeStore(),
		limits:    newFakeRateLimitStore(),
		deliverer: &fakeDeliverer{},
		now:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	f.limiter = newRateLimiter(f.limits, config.RateLimitConfig{
		MaxIssuances: 3,
		Window:       time.Hour,
	})
	f.limiter.now = func() time.Time { return f.now }

	f.svc = newVerificationService(
		f.codes,
		f.limiter,
		f.deliverer,
		&sequenceGenerator{codes: genCodes},
		config.OTPConfig{
			Expiration:     10 * time.Minute,
			MaxAttempts:    3,
			ResendCooldown: time.Minute,
		},
	)
	f.svc.now = func() time.Time { return f.now }

	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func TestRequestCode_IssuesAndDelivers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	ip := "203.0.113.7"

	id, err := f.svc.RequestCode(ctx, userID, "+5215555555555", domain.PurposeRegistration, &ip, nil)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	record := f.codes.get(id)
	require.NotNil(t, record)
	assert.Equal(t, userID, record.UserID)
	assert.Equal(t, 0, record.Attempts)
	assert.False(t, record.Verified)
	assert.Equal(t, f.now.Add(10*time.Minute), record.ExpiresAt)
	assert.Equal(t, &ip, record.IPAddress)

	require.Len(t, f.deliverer.sent, 1)
	assert.Equal(t, "+5215555555555", f.deliverer.sent[0].to)
	assert.Equal(t, record.Code, f.deliverer.sent[0].code)
}

func TestRequestCode_SupersedesPreviousCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := f.svc.RequestCode(ctx, userID, "+5215555555555", domain.PurposeRegistration, nil, nil)
	require.NoError(t, err)
	firstCode := f.deliverer.sent[0].code

	f.advance(time.Second)

	_, err = f.svc.RequestCode(ctx, userID, "+5215555555555", domain.PurposeResend, nil, nil)
	require.NoError(t, err)
	secondCode := f.deliverer.sent[1].code
	require.NotEqual(t, firstCode, secondCode)

	valid, err := f.svc.VerifyCode(ctx, userID, firstCode)
	assert.False(t, valid)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)

	valid, err = f.svc.VerifyCode(ctx, userID, secondCode)
	assert.True(t, valid)
	assert.NoError(t, err)
}

func TestVerifyCode_AttemptCeiling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := f.svc.RequestCode(ctx, userID, "+5215555555555", domain.PurposeLogin, nil, nil)
	require.NoError(t, err)
	correct := f.deliverer.sent[0].code

	for want := 2; want >= 0; want-- {
		valid, err := f.svc.VerifyCode(ctx, userID, "000000")
		assert.False(t, valid)
		require.ErrorIs(t, err, ErrInvalidOrExpired)

		var invalid *InvalidCodeError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, want, invalid.AttemptsRemaining)
	}

	// Even the correct code is rejected once the budget is spent.
	valid, err := f.svc.VerifyCode(ctx, userID, correct)
	assert.False(t, valid)
	assert.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestVerifyCode_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := f.svc.RequestCode(ctx, userID, "+5215555555555", domain.PurposeRegistration, nil, nil)
	require.NoError(t, err)
	code := f.deliverer.sent[0].code

	f.advance(11 * time.Minute)

	valid, err := f.svc.VerifyCode(ctx, userID, code)
	assert.False(t, valid)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestVerifyCode_EndToEnd(t *testing.T) {
	f := newFixture(t, "482913")
	ctx := context.Background()
	userID := uuid.New()

	id, err := f.svc.RequestCode(ctx, userID, "+5215555555555", domain.PurposeRegistration, nil, nil)
	require.NoError(t, err)

	valid, err := f.svc.VerifyCode(ctx, userID, "482913")
	require.NoError(t, err)
	assert.True(t, valid)

	record := f.codes.get(id)
	assert.True(t, record.Verified)
	assert.NotNil(t, record.VerifiedAt)
	assert.Equal(t, 1, record.Attempts)

	// A verified record is terminal.
	valid, err = f.svc.VerifyCode(ctx, userID, "482913")
	assert.False(t, valid)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestRequestCode_RateLimited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := f.svc.RequestCode(ctx, userID, "+5215555555555", domain.PurposeResend, nil, nil)
		require.NoError(t, err)
	}

	created := len(f.codes.codes)

	_, err := f.svc.RequestCode(ctx, userID, "+5215555555555", domain.PurposeResend, nil, nil)
	assert.ErrorIs(t, err, ErrRateLimited)
	// A blocked issuance generates nothing and invalidates nothing.
	assert.Len(t, f.codes.codes, created)

	// Window elapses, issuance works again.
	f.advance(61 * time.Minute)
	_, err = f.svc.RequestCode(ctx, userID, "+5215555555555", domain.PurposeResend, nil, nil)
	assert.NoError(t, err)
}

func TestRequestCode_DeliveryFailureKeepsRecord(t *testing.T) {
	f := newFixture(t)
	f.deliverer.err = errors.New("both channels down")
	ctx := context.Background()
	userID := uuid.New()

	id, err := f.svc.RequestCode(ctx, userID, "+5215555555555", domain.PurposeRegistration, nil, nil)
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	require.NotEqual(t, uuid.Nil, id)

	record := f.codes.get(id)
	require.NotNil(t, record)
	assert.False(t, record.Verified)

	// And the persisted code is still verifiable.
	valid, verr := f.svc.VerifyCode(ctx, userID, record.Code)
	assert.True(t, valid)
	assert.NoError(t, verr)
}

func TestRequestCode_StoreUnavailable(t *testing.T) {
	f := newFixture(t)
	f.limits.err = errors.New("connection refused")
	ctx := context.Background()

	_, err := f.svc.RequestCode(ctx, uuid.New(), "+5215555555555", domain.PurposeRegistration, nil, nil)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestCleanupExpired_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.RequestCode(ctx, uuid.New(), "+5215555555555", domain.PurposeRegistration, nil, nil)
		require.NoError(t, err)
	}

	f.advance(11 * time.Minute)

	count, err := f.svc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	count, err = f.svc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestGetLastCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	record, err := f.svc.GetLastCode(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, record)

	first, err := f.svc.RequestCode(ctx, userID, "+5215555555555", domain.PurposeRegistration, nil, nil)
	require.NoError(t, err)
	f.advance(time.Second)
	second, err := f.svc.RequestCode(ctx, userID, "+5215555555555", domain.PurposeResend, nil, nil)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	record, err = f.svc.GetLastCode(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, second, record.ID)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	status, err := f.svc.Status(ctx, userID)
	require.NoError(t, err)
	assert.False(t, status.Active)
	assert.Zero(t, status.RetryAfter)

	_, err = f.svc.RequestCode(ctx, userID, "+5215555555555", domain.PurposeRegistration, nil, nil)
	require.NoError(t, err)

	status, err = f.svc.Status(ctx, userID)
	require.NoError(t, err)
	assert.True(t, status.Active)
	assert.Equal(t, time.Minute, status.RetryAfter)
	assert.Equal(t, 3, status.AttemptsRemaining)
	require.NotNil(t, status.ExpiresAt)
	assert.Equal(t, f.now.Add(10*time.Minute), *status.ExpiresAt)

	f.advance(90 * time.Second)

	status, err = f.svc.Status(ctx, userID)
	require.NoError(t, err)
	assert.True(t, status.Active)
	assert.Zero(t, status.RetryAfter)
}

func TestRateLimiter_AdminLiftUnblocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		allowed, _, err := f.limiter.CheckAndRecord(ctx, userID)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	allowed, resetAt, err := f.limiter.CheckAndRecord(ctx, userID)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, f.now.Add(time.Hour), resetAt)

	admin := newRateLimitService(f.limits)
	require.NoError(t, admin.Lift(ctx, userID))

	allowed, _, err = f.limiter.CheckAndRecord(ctx, userID)
	require.NoError(t, err)
	assert.True(t, allowed)
}
