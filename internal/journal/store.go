// Package journal records every purchase the bot makes in an embedded bbolt
// database so runs can be reviewed after the fact.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"time"

	apperrors "github.com/GriffinCanCode/crumbot/internal/errors"
	bolt "go.etcd.io/bbolt"
)

// Record is one committed purchase.
type Record struct {
	Seq     uint64    `json:"seq"`
	Session string    `json:"session"`
	Name    string    `json:"name"`
	Cost    float64   `json:"cost"`
	Payoff  float64   `json:"payoff"`
	Upgrade bool      `json:"upgrade"`
	Source  string    `json:"source"`
	Cookies float64   `json:"cookies"`
	At      time.Time `json:"at"`
}

// Store is a bbolt backed purchase log. Keys are big-endian sequence numbers
// so cursor order is insertion order.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the journal at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.StoreFailed, "open journal %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPurchases)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, apperrors.Wrap(err, apperrors.StoreFailed, "create purchases bucket")
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.db.Path() }

// Append writes records in a single transaction and assigns their sequence
// numbers.
func (s *Store) Append(records ...Record) error {
	if len(records) == 0 {
		return nil
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPurchases)
		for i := range records {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			records[i].Seq = seq
			data, err := json.Marshal(records[i])
			if err != nil {
				return err
			}
			if err := b.Put(seqKey(seq), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.StoreFailed, "append purchases")
	}
	return nil
}

// Recent returns up to n records, newest first. n <= 0 returns everything.
func (s *Store) Recent(n int) ([]Record, error) {
	var out []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketPurchases).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if n > 0 && len(out) >= n {
				break
			}
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.StoreFailed, "read purchases")
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketPurchases).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.StoreFailed, "count purchases")
	}
	return n, nil
}

// Totals counts purchases per item name.
func (s *Store) Totals() (map[string]int, error) {
	recs, err := s.Recent(0)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, r := range recs {
		out[r.Name]++
	}
	return out, nil
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
