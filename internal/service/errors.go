package service

import "errors"

var (
	ErrItemNotFound       = errors.New("item not found")
	ErrNoPhoto            = errors.New("item has no photo")
	ErrClassifierDisabled = errors.New("classifier is not configured")
	ErrUnsupportedFormat  = errors.New("unsupported export format")
	ErrExportsDisabled    = errors.New("export history requires a database")
	ErrUnknownTable       = errors.New("unknown table")
)
