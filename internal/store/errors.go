package store

import "errors"

var (
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyServiced = errors.New("already serviced")
)
