package service

import "errors"

var (
	// ErrUnauthorized covers every failed login: unknown email and wrong
	// password produce the identical outcome so accounts cannot be
	// enumerated through the login endpoint.
	ErrUnauthorized = errors.New("invalid credentials")

	// ErrNotRegistered is returned by the recovery flow when the email has
	// no account. Unlike login, this path intentionally reveals
	// non-registration.
	ErrNotRegistered = errors.New("email is not registered")

	// ErrInvalidOtp covers a recovery code that is missing, expired or does
	// not match. A single signal, same reasoning as ErrUnauthorized.
	ErrInvalidOtp = errors.New("invalid or expired otp")

	// ErrDeliveryFailed is returned when the recovery mail cannot be sent.
	ErrDeliveryFailed = errors.New("failed to send email")
)
