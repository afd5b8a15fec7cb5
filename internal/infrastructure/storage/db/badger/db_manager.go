package dbbadger

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"
)

// DbManager holds all the badgerhold stores in a single data structure.
// Wallet records and note snapshots live in dedicated directories so that
// wiping the cache never touches the encrypted mnemonics.
type DbManager struct {
	WalletStore *badgerhold.Store
	NoteStore   *badgerhold.Store
}

// NewDbManager opens (or creates if not exists) the badger stores on disk. It
// expects a base data dir and an optional logger.
func NewDbManager(baseDbDir string, logger badger.Logger) (*DbManager, error) {
	if len(baseDbDir) <= 0 {
		return nil, ErrNullDatadir
	}

	walletDb, err := createDb(baseDbDir+"/wallet", logger)
	if err != nil {
		return nil, fmt.Errorf("opening wallet db: %w", err)
	}

	noteDb, err := createDb(baseDbDir+"/notes", logger)
	if err != nil {
		return nil, fmt.Errorf("opening notes db: %w", err)
	}

	return &DbManager{
		WalletStore: walletDb,
		NoteStore:   noteDb,
	}, nil
}

// Close closes all the stores.
func (d *DbManager) Close() error {
	if err := d.WalletStore.Close(); err != nil {
		return err
	}
	return d.NoteStore.Close()
}

// JSONEncode is a custom JSON based encoder for badger
func JSONEncode(value interface{}) ([]byte, error) {
	var buff bytes.Buffer

	en := json.NewEncoder(&buff)

	err := en.Encode(value)
	if err != nil {
		return nil, err
	}

	return buff.Bytes(), nil
}

// JSONDecode is a custom JSON based decoder for badger
func JSONDecode(data []byte, value interface{}) error {
	var buff bytes.Buffer
	de := json.NewDecoder(&buff)

	_, err := buff.Write(data)
	if err != nil {
		return err
	}

	return de.Decode(value)
}

func createDb(dbDir string, logger badger.Logger) (db *badgerhold.Store, err error) {
	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	db, err = badgerhold.Open(badgerhold.Options{
		Encoder:          JSONEncode,
		Decoder:          JSONDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})

	return
}
