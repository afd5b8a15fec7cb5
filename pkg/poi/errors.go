package poi

import "errors"

var (
	// ErrNullEndpoint ...
	ErrNullEndpoint = errors.New("aggregator endpoint must not be null")
	// ErrInvalidEndpoint ...
	ErrInvalidEndpoint = errors.New("aggregator endpoint must be a valid http(s) url")
	// ErrEmptyQuery ...
	ErrEmptyQuery = errors.New("query must carry at least one blinded commitment")
	// ErrUnexpectedStatus ...
	ErrUnexpectedStatus = errors.New("aggregator replied with an unexpected http status")
)
