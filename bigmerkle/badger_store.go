package bigmerkle

import (
	"errors"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/MuriData/poseidon-merkle/errs"
)

// BadgerStore is the default Store backed by a single badger/v4 database
// directory. It satisfies Store's single-key Get/Put thread-safety
// requirement: badger transactions serialize concurrent access internally.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (creating if absent) a badger database at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errs.Wrap("bigmerkle: open badger store", err)
	}
	return &BadgerStore{db: db}, nil
}

// Get fetches key, reporting found=false (not an error) when absent.
func (b *BadgerStore) Get(key []byte) ([]byte, bool, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			value = append([]byte(nil), v...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.Wrap("bigmerkle: badger get", err)
	}
	return value, true, nil
}

// Put writes key/value, overwriting any prior value.
func (b *BadgerStore) Put(key, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return errs.Wrap("bigmerkle: badger put", err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (b *BadgerStore) Delete(key []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return errs.Wrap("bigmerkle: badger delete", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (b *BadgerStore) Close() error {
	if err := b.db.Close(); err != nil {
		return errs.Wrap("bigmerkle: badger close", err)
	}
	return nil
}

// DestroyBadgerStore removes every file at path. Safe to call on a cache
// directory that may not yet exist.
func DestroyBadgerStore(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return errs.Wrap("bigmerkle: destroy badger store", err)
	}
	return nil
}
