package state

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	bucketMeta     = "meta"
	bucketAccounts = "accounts"
	bucketContest  = "contest"
	bucketEntries  = "entries"
	bucketBoard    = "board"
	bucketSettled  = "settled"
	bucketPasses   = "passes"

	keyHeight  = "height"
	keyContest = "contest"
	keyBoard   = "board"
)

var buckets = []string{
	bucketMeta,
	bucketAccounts,
	bucketContest,
	bucketEntries,
	bucketBoard,
	bucketSettled,
	bucketPasses,
}

// Store persists State records in a bbolt database keyed by
// deterministic identifiers (player, owner, epoch id). The app keeps
// working state in memory and flushes via Save once per block.
type Store struct {
	db *bolt.DB
}

func OpenStore(home string) (*Store, error) {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir home: %w", err)
	}
	db, err := bolt.Open(filepath.Join(home, "gorbadome.db"), 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (st *Store) Close() error {
	return st.db.Close()
}

// Load rebuilds the in-memory state. A fresh database yields a fresh
// state at height 0.
func (st *Store) Load() (*State, error) {
	s := NewState()
	err := st.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket([]byte(bucketMeta))
		if v := meta.Get([]byte(keyHeight)); len(v) == 8 {
			s.Height = int64(binary.LittleEndian.Uint64(v))
		}

		err := tx.Bucket([]byte(bucketAccounts)).ForEach(func(k, v []byte) error {
			if len(v) != 8 {
				return fmt.Errorf("bad balance record for %q", k)
			}
			s.Accounts[string(k)] = binary.LittleEndian.Uint64(v)
			return nil
		})
		if err != nil {
			return err
		}

		if v := tx.Bucket([]byte(bucketContest)).Get([]byte(keyContest)); v != nil {
			c, err := DecodeContest(v)
			if err != nil {
				return err
			}
			s.Contest = c
		}

		err = tx.Bucket([]byte(bucketEntries)).ForEach(func(k, v []byte) error {
			e, err := DecodeEntry(v)
			if err != nil {
				return fmt.Errorf("entry %q: %w", k, err)
			}
			s.Entries[string(k)] = e
			return nil
		})
		if err != nil {
			return err
		}

		if v := tx.Bucket([]byte(bucketBoard)).Get([]byte(keyBoard)); v != nil {
			l, err := DecodeLeaderboard(v)
			if err != nil {
				return err
			}
			s.Board = *l
		}

		err = tx.Bucket([]byte(bucketSettled)).ForEach(func(k, v []byte) error {
			if len(k) != 8 {
				return fmt.Errorf("bad settled epoch key %x", k)
			}
			se, err := DecodeSettledEpoch(v)
			if err != nil {
				return fmt.Errorf("settled epoch %x: %w", k, err)
			}
			s.Settled[binary.BigEndian.Uint64(k)] = se
			return nil
		})
		if err != nil {
			return err
		}

		return tx.Bucket([]byte(bucketPasses)).ForEach(func(k, v []byte) error {
			p, err := DecodePass(v)
			if err != nil {
				return fmt.Errorf("pass %q: %w", k, err)
			}
			s.Passes[string(k)] = p
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return s, nil
}

// Save rewrites all buckets in one transaction. State is small and the
// write path runs once per block, so wholesale rewrite beats tracking
// dirty records.
func (st *Store) Save(s *State) error {
	return st.db.Update(func(tx *bolt.Tx) error {
		for _, name := range buckets {
			if err := tx.DeleteBucket([]byte(name)); err != nil {
				return fmt.Errorf("reset %s bucket: %w", name, err)
			}
			if _, err := tx.CreateBucket([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}

		var h [8]byte
		binary.LittleEndian.PutUint64(h[:], uint64(s.Height))
		if err := tx.Bucket([]byte(bucketMeta)).Put([]byte(keyHeight), h[:]); err != nil {
			return err
		}

		accounts := tx.Bucket([]byte(bucketAccounts))
		for addr, bal := range s.Accounts {
			var v [8]byte
			binary.LittleEndian.PutUint64(v[:], bal)
			if err := accounts.Put([]byte(addr), v[:]); err != nil {
				return err
			}
		}

		if s.Contest != nil {
			if err := tx.Bucket([]byte(bucketContest)).Put([]byte(keyContest), EncodeContest(s.Contest)); err != nil {
				return err
			}
		}

		entries := tx.Bucket([]byte(bucketEntries))
		for player, e := range s.Entries {
			if err := entries.Put([]byte(player), EncodeEntry(e)); err != nil {
				return err
			}
		}

		if err := tx.Bucket([]byte(bucketBoard)).Put([]byte(keyBoard), EncodeLeaderboard(&s.Board)); err != nil {
			return err
		}

		settled := tx.Bucket([]byte(bucketSettled))
		for id, se := range s.Settled {
			var k [8]byte
			binary.BigEndian.PutUint64(k[:], id)
			if err := settled.Put(k[:], EncodeSettledEpoch(se)); err != nil {
				return err
			}
		}

		passes := tx.Bucket([]byte(bucketPasses))
		for owner, p := range s.Passes {
			if err := passes.Put([]byte(owner), EncodePass(p)); err != nil {
				return err
			}
		}
		return nil
	})
}
