// Package services defines the business logic for sessions, moods, and users.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmptyMessage is returned when a submitted answer is empty after
	// trimming whitespace.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrTooLong is returned when a submitted answer exceeds the maximum
	// configured length limit.
	ErrTooLong = errors.New("message too long")

	// ErrUserNotFound indicates that the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidMood is returned when a mood value is outside the five
	// canonical labels.
	ErrInvalidMood = errors.New("invalid mood value")

	// ErrDuplicateUser is returned when registering a username that is
	// already taken.
	ErrDuplicateUser = errors.New("username already taken")

	// ErrInvalidCredentials is returned by registration validation when
	// username or password is blank.
	ErrInvalidCredentials = errors.New("username and password are required")
)
