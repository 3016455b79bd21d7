package services

import "errors"

// Sentinel errors returned by the service layer. Handlers translate
// these into HTTP statuses; anything else is a server error.
var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidProfessional is returned when an appointment references
	// a professional that does not exist.
	ErrInvalidProfessional = errors.New("invalid professional")

	// ErrPastDate is returned when an appointment date is not strictly
	// in the future.
	ErrPastDate = errors.New("appointment date must be in the future")

	// ErrSlotConflict is returned when the professional already has an
	// appointment at the exact same datetime.
	ErrSlotConflict = errors.New("slot already booked for this professional")

	// ErrInvalidStatus is returned by the dedicated status endpoint for
	// values outside CONFIRMED, CANCELED and FINISHED.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrMissingRelation is returned when a required relation chain
	// (appointment -> professional -> user) is broken.
	ErrMissingRelation = errors.New("missing related record")
)
