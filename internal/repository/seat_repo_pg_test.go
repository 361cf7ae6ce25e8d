package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Domenick1991/skyline/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSeatLocker struct {
	mock.Mock
}

func (m *MockSeatLocker) AcquireSeatLock(ctx context.Context, flightID string, row int, column string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, flightID, row, column, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockSeatLocker) ReleaseSeatLock(ctx context.Context, flightID string, row int, column string) error {
	args := m.Called(ctx, flightID, row, column)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSeatInventory(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewSeatInventory(pool, nil, time.Second, discardLogger())
	assert.NotNil(t, repo)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}

func TestSeatInventory_LockSeats_Contended(t *testing.T) {
	locker := &MockSeatLocker{}
	seats := []domain.Seat{
		{CabinClass: domain.CabinClassEconomy, Row: 10, Column: "A"},
		{CabinClass: domain.CabinClassEconomy, Row: 10, Column: "B"},
	}
	locker.On("AcquireSeatLock", mock.Anything, "f-1", 10, "A", time.Second).Return(true, nil).Once()
	locker.On("AcquireSeatLock", mock.Anything, "f-1", 10, "B", time.Second).Return(false, nil).Once()
	locker.On("ReleaseSeatLock", mock.Anything, "f-1", 10, "A").Return(nil).Once()

	inv := &PGSeatInventory{locker: locker, lockTTL: time.Second, logger: discardLogger()}

	booked, err := inv.BookSeats(context.Background(), "f-1", seats)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFlightUnavailable)
	assert.Nil(t, booked)
	locker.AssertExpectations(t)
}

func TestSeatInventory_LockSeats_LockerError(t *testing.T) {
	locker := &MockSeatLocker{}
	boom := errors.New("redis down")
	locker.On("AcquireSeatLock", mock.Anything, "f-1", 3, "C", time.Second).Return(false, boom).Once()

	inv := &PGSeatInventory{locker: locker, lockTTL: time.Second, logger: discardLogger()}

	_, err := inv.BookSeats(context.Background(), "f-1", []domain.Seat{{CabinClass: domain.CabinClassBusiness, Row: 3, Column: "C"}})

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrFlightUnavailable)
	locker.AssertNotCalled(t, "ReleaseSeatLock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSeatInventory_LockSeats_NilLocker(t *testing.T) {
	inv := &PGSeatInventory{logger: discardLogger()}

	locked, err := inv.lockSeats(context.Background(), "f-1", []domain.Seat{{Row: 1, Column: "A"}})

	assert.NoError(t, err)
	assert.Empty(t, locked)
}
