package domain

import "time"

type TicketStatus string

const (
	TicketStatusPending  TicketStatus = "PENDING"
	TicketStatusIssued   TicketStatus = "ISSUED"
	TicketStatusCanceled TicketStatus = "CANCELED"
)

type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderOther       Gender = "other"
	GenderUnspecified Gender = "unspecified"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderUnspecified:
		return true
	}
	return false
}

// Booking is the PNR aggregate. It is always loaded and written as a whole.
type Booking struct {
	ID                string      `json:"id"`
	Passengers        []Passenger `json:"passengers"`
	FlightID          string      `json:"flightId"`
	Contact           Contact     `json:"contact"`
	Ticket            Ticket      `json:"ticket"`
	CreatedTimestamp  time.Time   `json:"createdTimestamp"`
	UpdatesTimestamps []time.Time `json:"updatesTimestamps,omitempty"`
	CancelTimestamp   *time.Time  `json:"cancelTimestamp,omitempty"`
}

type Passenger struct {
	NameTitle         string     `json:"nameTitle,omitempty"`
	GivenNames        string     `json:"givenNames"`
	Surname           string     `json:"surname"`
	DateOfBirth       time.Time  `json:"dateOfBirth"`
	Gender            Gender     `json:"gender"`
	BookedSeatID      string     `json:"bookedSeatId"`
	Passport          *Passport  `json:"passport,omitempty"`
	CheckInTimestamp  *time.Time `json:"checkInTimestamp,omitempty"`
	BoardingTimestamp *time.Time `json:"boardingTimestamp,omitempty"`
}

type Passport struct {
	Number         string    `json:"number"`
	ExpirationDate time.Time `json:"expirationDate"`
	CountryIssued  string    `json:"countryIssued"`
}

type Contact struct {
	FirstName string  `json:"firstName"`
	Surname   string  `json:"surname"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	Address   Address `json:"address"`
}

type Address struct {
	CountryCode     string `json:"countryCode"`
	SubdivisionCode string `json:"subdivisionCode,omitempty"`
	City            string `json:"city"`
	Street          string `json:"street"`
	HouseNumber     string `json:"houseNumber"`
	PostalCode      string `json:"postalCode"`
}

type Ticket struct {
	Status         TicketStatus `json:"status"`
	IssueTimestamp *time.Time   `json:"issueTimestamp,omitempty"`
}

func (b *Booking) Canceled() bool {
	return b.Ticket.Status == TicketStatusCanceled
}

// AnyCheckedIn reports whether at least one passenger has checked in.
func (b *Booking) AnyCheckedIn() bool {
	for _, p := range b.Passengers {
		if p.CheckInTimestamp != nil {
			return true
		}
	}
	return false
}

func (b *Booking) BookedSeatIDs() []string {
	ids := make([]string, 0, len(b.Passengers))
	for _, p := range b.Passengers {
		ids = append(ids, p.BookedSeatID)
	}
	return ids
}

// SamePerson compares the personal fields used to identify a passenger at check-in.
func (p Passenger) SamePerson(other Passenger) bool {
	return p.NameTitle == other.NameTitle &&
		p.GivenNames == other.GivenNames &&
		p.Surname == other.Surname &&
		p.Gender == other.Gender &&
		p.DateOfBirth.Equal(other.DateOfBirth)
}
