package dbbadger

import "errors"

var (
	// ErrNullDatadir ...
	ErrNullDatadir = errors.New("datadir must not be null")
)
