package app

import "errors"

var (
	// ErrEmptyMessage indicates a chat turn with no usable text.
	ErrEmptyMessage = errors.New("message required")
	// ErrMissingFields indicates a story submission with empty text fields.
	ErrMissingFields = errors.New("name, program, university and content are required")
	// ErrInvalidRating indicates a rating outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	// ErrUnsupportedImage indicates an upload with a non-image extension.
	ErrUnsupportedImage = errors.New("unsupported image type")
	// ErrResourceNotFound indicates a download for unknown file metadata.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrSignupFieldsRequired indicates a signup with missing fields.
	ErrSignupFieldsRequired = errors.New("name, email and password are required")
	// ErrEmailAlreadyExists indicates a duplicate signup email.
	ErrEmailAlreadyExists = errors.New("an account with this email already exists")
)
