package domain

import "errors"

var (
	ErrPersonNotFound       = errors.New("person not found")
	ErrVaccineNotFound      = errors.New("vaccine not found")
	ErrHealthCenterNotFound = errors.New("health center not found")
	ErrDuplicatedPerson     = errors.New("duplicated person")
	ErrNoVaccines           = errors.New("no vaccines available")

	// ErrNegativeStock means a dose was taken without checking availability first.
	ErrNegativeStock = errors.New("negative stock")
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrLotNotFound         = errors.New("vaccine lot not found")
)
