package domain

import (
	"math/big"
	"strings"

	"github.com/veil-network/veil-wallet/pkg/ledger"
)

// ProofStatus is the compliance-proof status of one note as reported by the
// proof node, or cached from a previous report.
type ProofStatus string

const (
	// ProofValid ...
	ProofValid ProofStatus = "valid"
	// ProofInvalid ...
	ProofInvalid ProofStatus = "invalid"
	// ProofPending means a proof was submitted and is being verified.
	ProofPending ProofStatus = "pending"
	// ProofMissing means no proof exists yet for this note.
	ProofMissing ProofStatus = "missing"
	// ProofMissingExternal means the note is covered internally but a
	// proof against the external screening lists is still missing.
	ProofMissingExternal ProofStatus = "missing_external"
	// ProofUnknown means the proof node never answered for this note.
	ProofUnknown ProofStatus = "unknown"
)

// BalanceBucket is the user-facing spendability class of a note's value.
type BalanceBucket string

const (
	// BucketSpendable ...
	BucketSpendable BalanceBucket = "Spendable"
	// BucketShieldPending is a shield waiting for the network to generate
	// its compliance proof; there is nothing the holder can do.
	BucketShieldPending BalanceBucket = "ShieldPending"
	// BucketShieldBlocked ...
	BucketShieldBlocked BalanceBucket = "ShieldBlocked"
	// BucketProofSubmitted ...
	BucketProofSubmitted BalanceBucket = "ProofSubmitted"
	// BucketMissingInternalPOI is a transact note for which this wallet
	// itself must submit a proof.
	BucketMissingInternalPOI BalanceBucket = "MissingInternalPOI"
	// BucketMissingExternalPOI ...
	BucketMissingExternalPOI BalanceBucket = "MissingExternalPOI"
	// BucketUnknown ...
	BucketUnknown BalanceBucket = "Unknown"
	// BucketSpent ...
	BucketSpent BalanceBucket = "Spent"
)

// Classify maps (commitment kind, proof status) to a balance bucket. It is a
// pure, total function.
//
// Shield commitments with a missing or unknown status are never directly
// actionable by the holder: their compliance proofs are generated by network
// infrastructure, so both map to the passive ShieldPending. A transact note
// with a missing status is actionable, the wallet itself must submit the
// proof, hence MissingInternalPOI. Collapsing these two rows breaks the
// wallet's call-to-action logic.
func Classify(kind ledger.CommitmentKind, status ProofStatus) BalanceBucket {
	switch status {
	case ProofValid:
		return BucketSpendable
	case ProofInvalid:
		return BucketShieldBlocked
	case ProofPending:
		return BucketProofSubmitted
	case ProofMissing:
		if kind == ledger.KindShield {
			return BucketShieldPending
		}
		return BucketMissingInternalPOI
	case ProofMissingExternal:
		if kind == ledger.KindShield {
			return BucketShieldPending
		}
		return BucketMissingExternalPOI
	default:
		if kind == ledger.KindShield {
			return BucketShieldPending
		}
		return BucketUnknown
	}
}

// TokenBalance aggregates the value of one token across buckets. The
// aggregation key is the lowercase token address.
type TokenBalance struct {
	TokenAddress string
	Token        ledger.TokenData
	Buckets      map[BalanceBucket]*big.Int
}

// Spendable is the total immediately spendable value.
func (b *TokenBalance) Spendable() *big.Int {
	return b.bucket(BucketSpendable)
}

// Total is the sum over all buckets except Spent.
func (b *TokenBalance) Total() *big.Int {
	total := new(big.Int)
	for bucket, value := range b.Buckets {
		if bucket == BucketSpent {
			continue
		}
		total.Add(total, value)
	}
	return total
}

func (b *TokenBalance) bucket(bucket BalanceBucket) *big.Int {
	if value, ok := b.Buckets[bucket]; ok {
		return new(big.Int).Set(value)
	}
	return new(big.Int)
}

func (b *TokenBalance) add(bucket BalanceBucket, value *big.Int) {
	if current, ok := b.Buckets[bucket]; ok {
		current.Add(current, value)
		return
	}
	b.Buckets[bucket] = new(big.Int).Set(value)
}

// AggregateBalances folds the notes of a snapshot into per-token balances.
// Spent notes land in the Spent bucket and never count as spendable; the sum
// is commutative so the result does not depend on note order.
func AggregateBalances(notes []DecryptedNote) map[string]*TokenBalance {
	balances := make(map[string]*TokenBalance)
	for _, note := range notes {
		key := strings.ToLower(note.Token.Address.Hex())
		balance, ok := balances[key]
		if !ok {
			balance = &TokenBalance{
				TokenAddress: key,
				Token:        note.Token,
				Buckets:      make(map[BalanceBucket]*big.Int),
			}
			balances[key] = balance
		}

		bucket := BucketSpent
		if !note.IsSpent {
			bucket = Classify(note.Kind, note.ProofStatus)
		}
		balance.add(bucket, note.Value)
	}
	return balances
}
