package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Domenick1991/skyline/config"
	"github.com/Domenick1991/skyline/internal/domain"
	"github.com/Domenick1991/skyline/internal/repository"
	"github.com/google/uuid"
)

type BookingUseCase interface {
	Create(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	Find(ctx context.Context, id string) (*domain.Booking, error)
	Update(ctx context.Context, id string, input UpdateBookingInput) (*domain.Booking, error)
	Cancel(ctx context.Context, id string) (*domain.Booking, error)
	CheckIn(ctx context.Context, id string, input CheckInInput) (*domain.Booking, error)
}

// Dispatcher queues a booking event without waiting for the broker.
type Dispatcher interface {
	Queue(ctx context.Context, exchange, routingKey, bookingID string)
}

// Routes names the exchanges and routing keys of the events the service emits.
type Routes struct {
	TicketExchange    string
	EmailExchange     string
	TicketBooking     string
	EmailConfirmation string
	EmailCancellation string
	EmailBoardingPass string
}

func RoutesFromConfig(cfg config.KafkaConfig) Routes {
	return Routes{
		TicketExchange:    cfg.TicketExchange,
		EmailExchange:     cfg.EmailExchange,
		TicketBooking:     cfg.TicketBookingRoutingKey,
		EmailConfirmation: cfg.EmailBookingConfirmationRoutingKey,
		EmailCancellation: cfg.EmailCancellationRoutingKey,
		EmailBoardingPass: cfg.EmailBoardingPassRoutingKey,
	}
}

type ContactInput = domain.Contact

// PassengerInput holds the personal fields of a passenger.
type PassengerInput struct {
	NameTitle   string        `json:"nameTitle,omitempty"`
	GivenNames  string        `json:"givenNames"`
	Surname     string        `json:"surname"`
	DateOfBirth time.Time     `json:"dateOfBirth"`
	Gender      domain.Gender `json:"gender"`
}

func (p PassengerInput) passenger() domain.Passenger {
	return domain.Passenger{
		NameTitle:   p.NameTitle,
		GivenNames:  p.GivenNames,
		Surname:     p.Surname,
		DateOfBirth: p.DateOfBirth,
		Gender:      p.Gender,
	}
}

type CreatePassengerInput struct {
	PassengerInput
	Seat domain.Seat `json:"seat"`
}

type CreateBookingInput struct {
	FlightID   string                 `json:"flightId"`
	Passengers []CreatePassengerInput `json:"passengers"`
	Contact    ContactInput           `json:"contact"`
}

// UpdateBookingInput replaces the contact and the personal fields of every
// passenger, matched by position.
type UpdateBookingInput struct {
	Passengers []PassengerInput `json:"passengers"`
	Contact    ContactInput     `json:"contact"`
}

type CheckInPassengerInput struct {
	PassengerInput
	BookedSeatID string          `json:"bookedSeatId"`
	Passport     domain.Passport `json:"passport"`
}

type CheckInInput struct {
	Passengers []CheckInPassengerInput `json:"passengers"`
}

type BookingService struct {
	bookings   repository.BookingRepository
	seats      repository.SeatInventory
	dispatcher Dispatcher
	routes     Routes
	logger     *slog.Logger
	now        func() time.Time
}

type BookingServiceOption func(*BookingService)

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	seats repository.SeatInventory,
	dispatcher Dispatcher,
	routes Routes,
	logger *slog.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:   bookings,
		seats:      seats,
		dispatcher: dispatcher,
		routes:     routes,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Create reserves the requested seats and stores a PENDING booking. Nothing is
// stored when the inventory refuses the seats.
func (s *BookingService) Create(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if err := ValidateCreate(input); err != nil {
		return nil, err
	}

	requested := make([]domain.Seat, 0, len(input.Passengers))
	for _, p := range input.Passengers {
		requested = append(requested, p.Seat)
	}

	booked, err := s.seats.BookSeats(ctx, input.FlightID, requested)
	if err != nil {
		return nil, err
	}

	passengers := make([]domain.Passenger, 0, len(input.Passengers))
	for i, p := range input.Passengers {
		seat, ok := findBookedSeat(booked, p.Seat)
		if !ok {
			s.logger.Error("inventory reply is missing a requested seat",
				"flight_id", input.FlightID, "passenger", i, "seat", p.Seat.String())
			s.releaseSeats(ctx, seatIDs(booked))
			return nil, fmt.Errorf("%w: seat %s on flight %s", domain.ErrSeatAssignmentMissing, p.Seat, input.FlightID)
		}
		passenger := p.passenger()
		passenger.BookedSeatID = seat.ID
		passengers = append(passengers, passenger)
	}

	booking := &domain.Booking{
		ID:               uuid.NewString(),
		Passengers:       passengers,
		FlightID:         input.FlightID,
		Contact:          input.Contact,
		Ticket:           domain.Ticket{Status: domain.TicketStatusPending},
		CreatedTimestamp: s.now().UTC(),
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		s.releaseSeats(ctx, seatIDs(booked))
		return nil, err
	}

	s.logger.Info("booking created", "booking_id", booking.ID, "flight_id", booking.FlightID, "passengers", len(passengers))
	s.dispatcher.Queue(ctx, s.routes.TicketExchange, s.routes.TicketBooking, booking.ID)
	s.dispatcher.Queue(ctx, s.routes.EmailExchange, s.routes.EmailConfirmation, booking.ID)
	return booking, nil
}

func (s *BookingService) Find(ctx context.Context, id string) (*domain.Booking, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	return s.bookings.GetByID(ctx, id)
}

// Update merges contact and passenger personal fields. Seats, passports,
// check-in state and the ticket are never changed here.
func (s *BookingService) Update(ctx context.Context, id string, input UpdateBookingInput) (*domain.Booking, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if err := ValidateUpdate(input); err != nil {
		return nil, err
	}

	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureMutable(booking); err != nil {
		return nil, err
	}
	if len(input.Passengers) != len(booking.Passengers) {
		return nil, domain.ErrPassengerCountChange
	}

	for i := range booking.Passengers {
		p := &booking.Passengers[i]
		in := input.Passengers[i]
		p.NameTitle = in.NameTitle
		p.GivenNames = in.GivenNames
		p.Surname = in.Surname
		p.DateOfBirth = in.DateOfBirth
		p.Gender = in.Gender
	}
	booking.Contact = input.Contact
	booking.UpdatesTimestamps = append(booking.UpdatesTimestamps, s.now().UTC())

	if err := s.bookings.Save(ctx, booking); err != nil {
		return nil, err
	}
	s.logger.Info("booking updated", "booking_id", booking.ID)
	return booking, nil
}

// Cancel stores the booking as CANCELED and then releases its seats. When the
// release fails the booking stays canceled and a *domain.SeatReleaseError is
// returned together with it.
func (s *BookingService) Cancel(ctx context.Context, id string) (*domain.Booking, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureMutable(booking); err != nil {
		return nil, err
	}

	canceledAt := s.now().UTC()
	booking.Ticket.Status = domain.TicketStatusCanceled
	booking.CancelTimestamp = &canceledAt
	if err := s.bookings.Save(ctx, booking); err != nil {
		return nil, err
	}
	s.logger.Info("booking canceled", "booking_id", booking.ID)

	var releaseErr error
	ids := booking.BookedSeatIDs()
	if _, err := s.seats.CancelBookedSeats(ctx, ids); err != nil {
		s.logger.Error("booking canceled but seats were not released",
			"booking_id", booking.ID, "seat_ids", ids, "error", err)
		releaseErr = &domain.SeatReleaseError{BookingID: booking.ID, SeatIDs: ids, Err: err}
	}

	s.dispatcher.Queue(ctx, s.routes.EmailExchange, s.routes.EmailCancellation, booking.ID)
	return booking, releaseErr
}

// CheckIn checks in every passenger of the booking or none of them.
func (s *BookingService) CheckIn(ctx context.Context, id string, input CheckInInput) (*domain.Booking, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if err := ValidateCheckIn(input); err != nil {
		return nil, err
	}

	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Canceled() {
		return nil, domain.ErrAlreadyCanceled
	}
	if booking.Ticket.Status != domain.TicketStatusIssued {
		return nil, domain.ErrNotTicketed
	}

	bySeat := make(map[string]CheckInPassengerInput, len(input.Passengers))
	for _, p := range input.Passengers {
		bySeat[p.BookedSeatID] = p
	}

	matched := make([]CheckInPassengerInput, len(booking.Passengers))
	for i, stored := range booking.Passengers {
		in, ok := bySeat[stored.BookedSeatID]
		if !ok || !stored.SamePerson(in.passenger()) {
			return nil, &domain.CheckInValidationError{Index: i}
		}
		if stored.CheckInTimestamp != nil {
			return nil, &domain.PassengerAlreadyCheckedInError{Index: i}
		}
		matched[i] = in
	}

	checkedInAt := s.now().UTC()
	for i := range booking.Passengers {
		passport := matched[i].Passport
		booking.Passengers[i].Passport = &passport
		booking.Passengers[i].CheckInTimestamp = &checkedInAt
	}

	if err := s.bookings.Save(ctx, booking); err != nil {
		return nil, err
	}
	s.logger.Info("passengers checked in", "booking_id", booking.ID, "passengers", len(booking.Passengers))
	s.dispatcher.Queue(ctx, s.routes.EmailExchange, s.routes.EmailBoardingPass, booking.ID)
	return booking, nil
}

func ensureMutable(b *domain.Booking) error {
	if b.Canceled() {
		return domain.ErrAlreadyCanceled
	}
	if b.AnyCheckedIn() {
		return domain.ErrAlreadyCheckedIn
	}
	return nil
}

// releaseSeats gives back seats reserved for a booking that was never stored.
func (s *BookingService) releaseSeats(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	if _, err := s.seats.CancelBookedSeats(context.WithoutCancel(ctx), ids); err != nil {
		s.logger.Error("failed to release seats of an unsaved booking", "seat_ids", ids, "error", err)
	}
}

func findBookedSeat(booked []domain.BookedSeat, seat domain.Seat) (domain.BookedSeat, bool) {
	for _, b := range booked {
		if b.Matches(seat) {
			return b, true
		}
	}
	return domain.BookedSeat{}, false
}

func seatIDs(booked []domain.BookedSeat) []string {
	ids := make([]string, 0, len(booked))
	for _, b := range booked {
		ids = append(ids, b.ID)
	}
	return ids
}

var _ BookingUseCase = (*BookingService)(nil)
