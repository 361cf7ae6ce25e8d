package domain

import "fmt"

type CabinClass string

const (
	CabinClassEconomy  CabinClass = "E"
	CabinClassBusiness CabinClass = "B"
	CabinClassFirst    CabinClass = "F"
)

func (c CabinClass) Valid() bool {
	switch c {
	case CabinClassEconomy, CabinClassBusiness, CabinClassFirst:
		return true
	}
	return false
}

// Seat is a seat requested by a passenger when booking.
type Seat struct {
	CabinClass CabinClass `json:"cabinClass"`
	Row        int        `json:"row"`
	Column     string     `json:"column"`
}

func (s Seat) String() string {
	return fmt.Sprintf("%d%s", s.Row, s.Column)
}

// BookedSeat is a seat reserved by the inventory for a flight.
type BookedSeat struct {
	ID         string     `json:"id"`
	CabinClass CabinClass `json:"cabinClass"`
	Row        int        `json:"row"`
	Column     string     `json:"column"`
}

func (b BookedSeat) Matches(s Seat) bool {
	return b.Row == s.Row && b.Column == s.Column
}
