package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Domenick1991/skyline/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// SeatInventory reserves and releases seats on flights.
type SeatInventory interface {
	BookSeats(ctx context.Context, flightID string, seats []domain.Seat) ([]domain.BookedSeat, error)
	CancelBookedSeats(ctx context.Context, seatIDs []string) ([]string, error)
}

// SeatLocker guards a seat while a booking transaction for it is running.
type SeatLocker interface {
	AcquireSeatLock(ctx context.Context, flightID string, row int, column string, ttl time.Duration) (bool, error)
	ReleaseSeatLock(ctx context.Context, flightID string, row int, column string) error
}

type PGSeatInventory struct {
	db      *pgxpool.Pool
	locker  SeatLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// NewSeatInventory returns the Postgres inventory. locker may be nil.
func NewSeatInventory(db *pgxpool.Pool, locker SeatLocker, lockTTL time.Duration, logger *slog.Logger) SeatInventory {
	return &PGSeatInventory{db: db, locker: locker, lockTTL: lockTTL, logger: logger}
}

func (r *PGSeatInventory) BookSeats(ctx context.Context, flightID string, seats []domain.Seat) ([]domain.BookedSeat, error) {
	locked, err := r.lockSeats(ctx, flightID, seats)
	defer r.unlockSeats(context.WithoutCancel(ctx), flightID, locked)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin seats tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM flights WHERE id=$1)`, flightID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("find flight %s: %w", flightID, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrFlightNotFound, flightID)
	}

	booked := make([]domain.BookedSeat, 0, len(seats))
	for _, seat := range seats {
		var b domain.BookedSeat
		err := tx.QueryRow(ctx, `INSERT INTO booked_seats (id, flight_id, cabin_class, seat_row, seat_column)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, cabin_class, seat_row, seat_column`,
			uuid.NewString(), flightID, seat.CabinClass, seat.Row, seat.Column).
			Scan(&b.ID, &b.CabinClass, &b.Row, &b.Column)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("%w: seat %s on flight %s", domain.ErrFlightUnavailable, seat, flightID)
			}
			return nil, fmt.Errorf("insert booked seat %s: %w", seat, err)
		}
		booked = append(booked, b)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit seats tx: %w", err)
	}
	return booked, nil
}

func (r *PGSeatInventory) CancelBookedSeats(ctx context.Context, seatIDs []string) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin release tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `DELETE FROM booked_seats WHERE id = ANY($1::text[]::uuid[]) RETURNING id::text`, seatIDs)
	if err != nil {
		return nil, fmt.Errorf("delete booked seats: %w", err)
	}
	released, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect released seats: %w", err)
	}

	if len(released) != len(seatIDs) {
		return nil, fmt.Errorf("%w: released %d of %d seats", domain.ErrSeatNotFound, len(released), len(seatIDs))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit release tx: %w", err)
	}
	return released, nil
}

func (r *PGSeatInventory) lockSeats(ctx context.Context, flightID string, seats []domain.Seat) ([]domain.Seat, error) {
	if r.locker == nil {
		return nil, nil
	}

	locked := make([]domain.Seat, 0, len(seats))
	for _, seat := range seats {
		ok, err := r.locker.AcquireSeatLock(ctx, flightID, seat.Row, seat.Column, r.lockTTL)
		if err != nil {
			return locked, fmt.Errorf("lock seat %s: %w", seat, err)
		}
		if !ok {
			return locked, fmt.Errorf("%w: seat %s on flight %s is being booked", domain.ErrFlightUnavailable, seat, flightID)
		}
		locked = append(locked, seat)
	}
	return locked, nil
}

func (r *PGSeatInventory) unlockSeats(ctx context.Context, flightID string, seats []domain.Seat) {
	for _, seat := range seats {
		if err := r.locker.ReleaseSeatLock(ctx, flightID, seat.Row, seat.Column); err != nil {
			r.logger.Warn("failed to release seat lock", "flight_id", flightID, "seat", seat.String(), "error", err)
		}
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var _ SeatInventory = (*PGSeatInventory)(nil)
