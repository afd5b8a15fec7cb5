package keychain

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "test test test test test test test test test test test junk"

// TestDeriveKeysGoldenVector pins the full hierarchy of the test mnemonic at
// account 0. Any change to the derivation constants, the path layout or the
// Poseidon input order breaks these values and with them every address and
// note ever derived.
func TestDeriveKeysGoldenVector(t *testing.T) {
	keys, err := DeriveKeys(DeriveKeysOpts{Mnemonic: testMnemonic})
	require.NoError(t, err)

	require.Equal(t,
		"27428ad2e6304fec5b363f4656d10f6983acabaeac21d763eecf979b7769d07e",
		hex.EncodeToString(keys.SpendingPrivateKey[:]),
	)
	require.Equal(t,
		"280d6c9f35cb64c4a422fdfee4b122d40e547321f50d48f1c2999a95f09fc3ca",
		hex.EncodeToString(keys.ViewingPrivateKey[:]),
	)
	require.Equal(t,
		"30942a785704ca876f45d66c13be34ad6b2dc8dac3bcb393d29565d578b446a1",
		hex.EncodeToString(keys.ViewingPublicKey[:]),
	)
	require.Equal(t,
		"18085146967786686351308111952732730407427814903645654965705946341031700285781",
		keys.SpendingPublicKey.X.String(),
	)
	require.Equal(t,
		"5085482798568928837895693541235143911914301049333603211912894678168694947220",
		keys.SpendingPublicKey.Y.String(),
	)
	require.Equal(t,
		"7744859811595949030047375200650878112598432207472768317307528908696184228493",
		keys.NullifyingKey.String(),
	)
	require.Equal(t,
		"9678849854902224199293099267712179523434684496329147580794195173705170643797",
		keys.MasterPublicKey.String(),
	)
}

func TestDeriveKeysDeterministic(t *testing.T) {
	first, err := DeriveKeys(DeriveKeysOpts{Mnemonic: testMnemonic})
	require.NoError(t, err)
	second, err := DeriveKeys(DeriveKeysOpts{Mnemonic: testMnemonic})
	require.NoError(t, err)

	require.Equal(t, first.SpendingPrivateKey, second.SpendingPrivateKey)
	require.Equal(t, first.ViewingPrivateKey, second.ViewingPrivateKey)
	require.Equal(t, first.ViewingPublicKey, second.ViewingPublicKey)
	require.Zero(t, first.SpendingPublicKey.X.Cmp(second.SpendingPublicKey.X))
	require.Zero(t, first.SpendingPublicKey.Y.Cmp(second.SpendingPublicKey.Y))
	require.Zero(t, first.NullifyingKey.Cmp(second.NullifyingKey))
	require.Zero(t, first.MasterPublicKey.Cmp(second.MasterPublicKey))
}

func TestDeriveKeysInvariants(t *testing.T) {
	keys, err := DeriveKeys(DeriveKeysOpts{Mnemonic: testMnemonic})
	require.NoError(t, err)

	nullifyingKey, err := poseidon.Hash([]*big.Int{
		bytesToField(keys.ViewingPrivateKey[:]),
	})
	require.NoError(t, err)
	require.Zero(t, keys.NullifyingKey.Cmp(nullifyingKey))

	masterPublicKey, err := poseidon.Hash([]*big.Int{
		keys.SpendingPublicKey.X,
		keys.SpendingPublicKey.Y,
		keys.NullifyingKey,
	})
	require.NoError(t, err)
	require.Zero(t, keys.MasterPublicKey.Cmp(masterPublicKey))

	require.True(t, keys.SpendingPublicKey.InCurve())
}

func TestDeriveKeysDistinctRolesAndAccounts(t *testing.T) {
	account0, err := DeriveKeys(DeriveKeysOpts{Mnemonic: testMnemonic})
	require.NoError(t, err)
	account1, err := DeriveKeys(DeriveKeysOpts{
		Mnemonic:     testMnemonic,
		AccountIndex: 1,
	})
	require.NoError(t, err)

	// the two derivation paths are independent
	require.NotEqual(t, account0.SpendingPrivateKey, account0.ViewingPrivateKey)
	// accounts do not share keys
	require.NotEqual(t, account0.SpendingPrivateKey, account1.SpendingPrivateKey)
	require.NotEqual(t, account0.ViewingPrivateKey, account1.ViewingPrivateKey)
	require.NotZero(t, account0.MasterPublicKey.Cmp(account1.MasterPublicKey))
}

func TestFailingDeriveKeys(t *testing.T) {
	tests := []struct {
		name          string
		mnemonic      string
		expectedError error
	}{
		{"null_mnemonic", "", ErrNullMnemonic},
		{"not_bip39", "definitely not a valid mnemonic phrase at all", ErrInvalidMnemonic},
		{"bad_checksum", "test test test test test test test test test test test test", ErrInvalidMnemonic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeriveKeys(DeriveKeysOpts{Mnemonic: tt.mnemonic})
			require.EqualError(t, err, tt.expectedError.Error())
		})
	}
}

func TestZeroWipesPrivateMaterial(t *testing.T) {
	keys, err := DeriveKeys(DeriveKeysOpts{Mnemonic: testMnemonic})
	require.NoError(t, err)

	keys.Zero()
	require.Equal(t, [32]byte{}, keys.SpendingPrivateKey)
	require.Equal(t, [32]byte{}, keys.ViewingPrivateKey)
	require.Nil(t, keys.SpendingPublicKey)
	require.Nil(t, keys.MasterPublicKey)
}

func TestNewMnemonic(t *testing.T) {
	mnemonic, err := NewMnemonic(NewMnemonicOpts{})
	require.NoError(t, err)
	require.True(t, IsMnemonicValid(mnemonic))

	_, err = NewMnemonic(NewMnemonicOpts{EntropySize: 100})
	require.EqualError(t, err, ErrInvalidEntropySize.Error())
}
