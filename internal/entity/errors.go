package entity

import "errors"

var (
	// Event errors
	ErrEventNotFound          = errors.New("event not found")
	ErrEventHasOrders         = errors.New("event has existing orders")
	ErrTicketCategoryNotFound = errors.New("ticket category not found")

	// Order errors
	ErrOrderNotFound             = errors.New("order not found")
	ErrInsufficientTickets       = errors.New("not enough remaining tickets")
	ErrInvalidQuantity           = errors.New("ticket quantity must be positive")
	ErrPaymentVerificationFailed = errors.New("payment signature verification failed")
	ErrAlreadyCheckedIn          = errors.New("order already checked in")

	// User errors
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")

	// Category errors
	ErrCategoryNotFound = errors.New("category not found")

	// General errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden operation")
)
