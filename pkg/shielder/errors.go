package shielder

import (
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrNullClient ...
	ErrNullClient = errors.New("contract caller must not be null")
	// ErrNullContractAddress ...
	ErrNullContractAddress = errors.New("pool contract address must not be null")
	// ErrNullValue ...
	ErrNullValue = errors.New("shield value must be a positive integer")
	// ErrEmptyRequests ...
	ErrEmptyRequests = errors.New("shield request list must not be empty")
	// ErrDegenerateRecipientKey is returned when the recipient's viewing
	// public key is not a usable curve point.
	ErrDegenerateRecipientKey = errors.New("recipient viewing key is not a valid curve point")
)

// CallRevertError reports that simulating the shield call predicts a revert.
// It is raised before any signature is requested. Reason carries the decoded
// human-readable revert reason when one could be derived, Raw the untouched
// revert data otherwise.
type CallRevertError struct {
	Reason string
	Raw    []byte
}

func (e *CallRevertError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("contract call would revert: %s", e.Reason)
	}
	if len(e.Raw) > 0 {
		return fmt.Sprintf("contract call would revert with data 0x%s", hex.EncodeToString(e.Raw))
	}
	return "contract call would revert"
}
