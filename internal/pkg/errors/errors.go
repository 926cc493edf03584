package errors

import "errors"

// Custom application errors
var (
	ErrNotFound          = errors.New("reminder not found")            // No pending job with the given id
	ErrAlreadyExists     = errors.New("reminder already exists")       // Duplicate schedule attempt for a live id
	ErrParse             = errors.New("could not understand the date") // Unparseable datetime input
	ErrDatabaseOperation = errors.New("database operation failed")     // Generic job store error
	ErrScheduling        = errors.New("scheduling failed")             // Generic timer arming error
	ErrDelivery          = errors.New("message delivery failed")       // Outbound chat callback could not be sent
	ErrInternalServer    = errors.New("internal server error")         // Generic internal error
)
