// Package idempotency remembers which order a checkout Idempotency-Key
// produced, so a retried request returns the same order. Keys are kept in
// a bbolt file and expire after a TTL.
package idempotency

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucket = []byte("checkout")

type inProgress struct{}

func (inProgress) Error() string   { return "a request with this Idempotency-Key is still being processed" }
func (inProgress) StatusCode() int { return http.StatusConflict }

// ErrInProgress means another request holds the key right now.
var ErrInProgress error = inProgress{}

type Record struct {
	OrderID   uint      `json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Pending reports a reserved key whose request has not finished.
func (r Record) Pending() bool { return r.OrderID == 0 }

type Store struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

func Open(path string, ttl time.Duration) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("idempotency: mkdir: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("idempotency: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("idempotency: create bucket: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func key(userID uint, k string) []byte { return []byte(fmt.Sprintf("%d:%s", userID, k)) }

func (s *Store) expired(r Record) bool { return s.now().Sub(r.CreatedAt) > s.ttl }

// Reserve claims k for userID. When k already finished it returns that
// record and false; a k held by a running request is ErrInProgress.
func (s *Store) Reserve(userID uint, k string) (Record, bool, error) {
	var (
		rec      Record
		reserved bool
	)
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if raw := b.Get(key(userID, k)); raw != nil {
			if err := json.Unmarshal(raw, &rec); err == nil && !s.expired(rec) {
				if rec.Pending() {
					return ErrInProgress
				}
				return nil
			}
		}
		rec = Record{CreatedAt: s.now()}
		reserved = true
		return put(b, key(userID, k), rec)
	})
	if err != nil {
		return Record{}, false, err
	}
	return rec, reserved, nil
}

// Complete stores the order a reserved key produced.
func (s *Store) Complete(userID uint, k string, orderID uint) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx.Bucket(bucket), key(userID, k), Record{OrderID: orderID, CreatedAt: s.now()})
	})
}

// Release drops a reservation whose request failed, so the client may retry.
func (s *Store) Release(userID uint, k string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete(key(userID, k))
	})
}

// Prune deletes expired keys and returns how many went.
func (s *Store) Prune() (int, error) {
	n := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		for k, v := c.First(); k != nil; {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil || s.expired(rec) {
				at := append([]byte(nil), k...)
				if err := c.Delete(); err != nil {
					return err
				}
				n++
				// Next after Delete would skip an item.
				k, v = c.Seek(at)
				continue
			}
			k, v = c.Next()
		}
		return nil
	})
	return n, err
}

func put(b *bolt.Bucket, k []byte, r Record) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return b.Put(k, raw)
}
