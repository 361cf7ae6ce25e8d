package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/skyline/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookingRepository stores whole Booking aggregates. Writes are unconditional
// except IssueTicket.
type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	Save(ctx context.Context, booking *domain.Booking) error
	// IssueTicket moves a PENDING booking to ISSUED in one conditional write
	// and reports whether a booking was changed.
	IssueTicket(ctx context.Context, id string, issuedAt time.Time) (bool, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	doc, err := json.Marshal(booking)
	if err != nil {
		return fmt.Errorf("marshal booking: %w", err)
	}

	_, err = r.db.Exec(ctx, `INSERT INTO bookings (id, flight_id, ticket_status, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		booking.ID, booking.FlightID, booking.Ticket.Status, doc, booking.CreatedTimestamp)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	var doc []byte
	if err := r.db.QueryRow(ctx, `SELECT document FROM bookings WHERE id=$1`, id).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("select booking: %w", err)
	}

	var b domain.Booking
	if err := json.Unmarshal(doc, &b); err != nil {
		return nil, fmt.Errorf("unmarshal booking %s: %w", id, err)
	}
	return &b, nil
}

func (r *PGBookingRepository) Save(ctx context.Context, booking *domain.Booking) error {
	doc, err := json.Marshal(booking)
	if err != nil {
		return fmt.Errorf("marshal booking: %w", err)
	}

	cmd, err := r.db.Exec(ctx, `UPDATE bookings SET ticket_status=$2, document=$3, updated_at=now() WHERE id=$1`,
		booking.ID, booking.Ticket.Status, doc)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func (r *PGBookingRepository) IssueTicket(ctx context.Context, id string, issuedAt time.Time) (bool, error) {
	ticket, err := json.Marshal(domain.Ticket{Status: domain.TicketStatusIssued, IssueTimestamp: &issuedAt})
	if err != nil {
		return false, fmt.Errorf("marshal ticket: %w", err)
	}

	cmd, err := r.db.Exec(ctx, `
        UPDATE bookings
        SET ticket_status = $2,
            document = jsonb_set(document, '{ticket}', $3::jsonb),
            updated_at = now()
        WHERE id = $1
        AND ticket_status = $4
    `, id, domain.TicketStatusIssued, ticket, domain.TicketStatusPending)
	if err != nil {
		return false, fmt.Errorf("issue ticket: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
