package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet is the durable record of one wallet: nothing but an id and the
// mnemonic encrypted under the owner's passphrase. Keys are derived on
// unlock and never persisted.
type Wallet struct {
	ID                uuid.UUID
	EncryptedMnemonic string
	AccountIndex      uint32
	CreatedAt         time.Time
}
