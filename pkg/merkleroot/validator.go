// Package merkleroot compares a locally computed accumulator root against the
// root the pool contract reports. The comparison gates compliance proofs: a
// proof built on a desynchronized local accumulator must not be trusted.
package merkleroot

import (
	"fmt"
	"strings"
)

// Result reports the outcome of one root comparison. A mismatch is a signal
// to resynchronize, not an error, so both normalized values are carried for
// the caller to log or act on.
type Result struct {
	Valid   bool
	Local   string
	OnChain string
}

func (r Result) String() string {
	if r.Valid {
		return fmt.Sprintf("root %s in sync", r.Local)
	}
	return fmt.Sprintf("root mismatch: local %s, on-chain %s", r.Local, r.OnChain)
}

// Validate normalizes both roots to 0x-prefixed lowercase 32-byte big-endian
// hex and compares them byte-wise. Case and leading zeros do not matter.
func Validate(localRoot, contractRoot string) Result {
	local := normalize(localRoot)
	onchain := normalize(contractRoot)
	return Result{
		Valid:   local == onchain,
		Local:   local,
		OnChain: onchain,
	}
}

func normalize(root string) string {
	root = strings.ToLower(strings.TrimSpace(root))
	root = strings.TrimPrefix(root, "0x")
	if len(root) < 64 {
		root = strings.Repeat("0", 64-len(root)) + root
	}
	return "0x" + root
}
