package repository

import "errors"

var (
	// ErrInvalidImageURL indicates an invalid image URL
	ErrInvalidImageURL = errors.New("invalid image URL")

	// ErrImageNotLoadable indicates the URL did not resolve to a decodable image
	ErrImageNotLoadable = errors.New("image not loadable")

	// ErrFileUnreadable indicates a selected file could not be read
	ErrFileUnreadable = errors.New("file unreadable")
)
