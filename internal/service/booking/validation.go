package booking

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	seatColumnRe  = regexp.MustCompile(`^[A-Z]$`)
	phoneRe       = regexp.MustCompile(`^\+?[0-9 ()-]{6,20}$`)
	countryCodeRe = regexp.MustCompile(`^[A-Z]{2}$`)
	subdivisionRe = regexp.MustCompile(`^[A-Z]{2}-[A-Z0-9]{1,3}$`)
)

// FieldError describes one invalid request field. Field is a slash separated
// path into the request body, e.g. "passengers/0/seat/row".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

type validator struct {
	errs ValidationErrors
}

func (v *validator) add(field, format string, args ...any) {
	v.errs = append(v.errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, "must not be empty")
	}
}

func (v *validator) match(field, value string, re *regexp.Regexp) {
	if !re.MatchString(value) {
		v.add(field, "must match %s", re.String())
	}
}

func (v *validator) uuid(field, value string) {
	if err := uuid.Validate(value); err != nil {
		v.add(field, "must be a uuid")
	}
}

func (v *validator) result() error {
	if len(v.errs) == 0 {
		return nil
	}
	return v.errs
}

// ValidateID checks a booking id taken from a request path.
func ValidateID(id string) error {
	var v validator
	v.uuid("id", id)
	return v.result()
}

func ValidateCreate(in CreateBookingInput) error {
	var v validator
	v.uuid("flightId", in.FlightID)
	if len(in.Passengers) == 0 {
		v.add("passengers", "at least one passenger is required")
	}
	seen := make(map[string]int, len(in.Passengers))
	for i, p := range in.Passengers {
		path := fmt.Sprintf("passengers/%d", i)
		v.passenger(path, p.PassengerInput)

		seat := p.Seat
		if !seat.CabinClass.Valid() {
			v.add(path+"/seat/cabinClass", "must be one of E, B, F")
		}
		if seat.Row <= 0 {
			v.add(path+"/seat/row", "must be positive")
		}
		v.match(path+"/seat/column", seat.Column, seatColumnRe)
		if j, ok := seen[seat.String()]; ok {
			v.add(path+"/seat", "duplicates the seat of passenger %d", j)
		} else {
			seen[seat.String()] = i
		}
	}
	v.contact(in.Contact)
	return v.result()
}

func ValidateUpdate(in UpdateBookingInput) error {
	var v validator
	if len(in.Passengers) == 0 {
		v.add("passengers", "at least one passenger is required")
	}
	for i, p := range in.Passengers {
		v.passenger(fmt.Sprintf("passengers/%d", i), p)
	}
	v.contact(in.Contact)
	return v.result()
}

func ValidateCheckIn(in CheckInInput) error {
	var v validator
	if len(in.Passengers) == 0 {
		v.add("passengers", "at least one passenger is required")
	}
	seen := make(map[string]int, len(in.Passengers))
	for i, p := range in.Passengers {
		path := fmt.Sprintf("passengers/%d", i)
		v.passenger(path, p.PassengerInput)
		v.uuid(path+"/bookedSeatId", p.BookedSeatID)
		if j, ok := seen[p.BookedSeatID]; ok {
			v.add(path+"/bookedSeatId", "duplicates the seat of passenger %d", j)
		} else {
			seen[p.BookedSeatID] = i
		}

		v.required(path+"/passport/number", p.Passport.Number)
		if p.Passport.ExpirationDate.IsZero() {
			v.add(path+"/passport/expirationDate", "is required")
		}
		v.match(path+"/passport/countryIssued", p.Passport.CountryIssued, countryCodeRe)
	}
	return v.result()
}

func (v *validator) passenger(path string, p PassengerInput) {
	if p.NameTitle != "" {
		v.required(path+"/nameTitle", p.NameTitle)
	}
	v.required(path+"/givenNames", p.GivenNames)
	v.required(path+"/surname", p.Surname)
	if p.DateOfBirth.IsZero() {
		v.add(path+"/dateOfBirth", "is required")
	}
	if !p.Gender.Valid() {
		v.add(path+"/gender", "must be one of male, female, other, unspecified")
	}
}

func (v *validator) contact(c ContactInput) {
	v.required("contact/firstName", c.FirstName)
	v.required("contact/surname", c.Surname)
	if _, err := mail.ParseAddress(c.Email); err != nil {
		v.add("contact/email", "must be a valid email address")
	}
	v.match("contact/phone", c.Phone, phoneRe)

	a := c.Address
	v.match("contact/address/countryCode", a.CountryCode, countryCodeRe)
	if a.SubdivisionCode != "" {
		v.match("contact/address/subdivisionCode", a.SubdivisionCode, subdivisionRe)
	}
	v.required("contact/address/city", a.City)
	v.required("contact/address/street", a.Street)
	v.required("contact/address/houseNumber", a.HouseNumber)
	v.required("contact/address/postalCode", a.PostalCode)
}
