package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/veil-network/veil-wallet/pkg/ledger"
	"github.com/veil-network/veil-wallet/pkg/notecrypto"
)

// DecryptedNote is the wallet-local view of an on-ledger commitment that
// successfully opened under the wallet's keys.
type DecryptedNote struct {
	Kind           ledger.CommitmentKind
	CommitmentHash *big.Int
	Token          ledger.TokenData
	Value          *big.Int
	NotePublicKey  *big.Int
	Random         [16]byte

	TreeNumber   uint32
	LeafPosition uint64
	BlockNumber  uint64
	TxHash       common.Hash

	// IsSentNote marks a note opened with the sender-role key, that is a
	// change output authored by this wallet.
	IsSentNote bool
	// IsSpent is recomputed from the published nullifier set on every
	// scan, it is never authoritative on its own.
	IsSpent bool
	// ProofStatus is the last compliance-proof status fetched for this
	// note, kept as the fallback when the proof node is unreachable.
	ProofStatus ProofStatus
}

// Nullifier derives the spend marker of this note for the given nullifying
// key.
func (n DecryptedNote) Nullifier(nullifyingKey *big.Int) (*big.Int, error) {
	return notecrypto.Nullifier(nullifyingKey, n.LeafPosition)
}

// BlindedCommitmentID is the identifier under which the compliance-proof
// collaborator tracks this note. It binds the commitment hash, the note
// public key and the global leaf position without revealing any of them.
func (n DecryptedNote) BlindedCommitmentID() (*big.Int, error) {
	return notecrypto.BlindedCommitment(n.CommitmentHash, n.NotePublicKey, n.LeafPosition)
}

// WalletSnapshot is the immutable unit stored in the decrypted-commitment
// cache. Scans never patch single notes, they replace the whole snapshot
// atomically; readers observe either the previous or the next generation.
type WalletSnapshot struct {
	WalletID uuid.UUID
	// Generation increases with every committed scan of this wallet.
	Generation uint64
	// ScannedToBlock is the highest fully processed block; the next scan
	// resumes from here.
	ScannedToBlock uint64
	Notes          []DecryptedNote
	UpdatedAt      time.Time
}

// UnspentNotes returns the owned notes whose nullifier was not published.
func (s *WalletSnapshot) UnspentNotes() []DecryptedNote {
	unspent := make([]DecryptedNote, 0, len(s.Notes))
	for _, note := range s.Notes {
		if !note.IsSpent {
			unspent = append(unspent, note)
		}
	}
	return unspent
}
