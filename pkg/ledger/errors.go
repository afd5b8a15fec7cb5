package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNullClient ...
	ErrNullClient = errors.New("chain client must not be null")
	// ErrNullContractAddress ...
	ErrNullContractAddress = errors.New("pool contract address must not be null")
	// ErrInvalidBlockRange ...
	ErrInvalidBlockRange = errors.New("from block must not exceed to block")
)

// ChunkError reports the failure of one block-range chunk. A failed chunk
// never aborts the surrounding scan, partial results stay valid and the
// range can be retried on the next pass.
type ChunkError struct {
	FromBlock uint64
	ToBlock   uint64
	Err       error
}

func (e ChunkError) Error() string {
	return fmt.Sprintf(
		"ledger query failed for blocks [%d, %d]: %v", e.FromBlock, e.ToBlock, e.Err,
	)
}

func (e ChunkError) Unwrap() error { return e.Err }
