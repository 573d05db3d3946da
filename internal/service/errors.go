package service

import (
	"errors"
	"time"
)

var (
	ErrInvalidURL          = errors.New("url must be an absolute http or https URL")
	ErrInvalidValidity     = errors.New("validity must be a positive number of minutes, at most 153722867")
	ErrInvalidShortcode    = errors.New("shortcode must be 3-20 alphanumeric characters")
	ErrShortcodeTaken      = errors.New("shortcode is already in use")
	ErrAllocationExhausted = errors.New("could not allocate a unique shortcode")
	ErrNotFound            = errors.New("short url not found")
	ErrExpired             = errors.New("short url has expired")
)

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time
