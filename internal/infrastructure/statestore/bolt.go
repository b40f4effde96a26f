// Package statestore keeps the scheduler's run history in a local bbolt
// file so counters and the last run result survive process restarts.
package statestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"SignalScanner/internal/domain"
	"SignalScanner/internal/ports"
)

var (
	statusBucket = []byte("schedule")
	statusKey    = []byte("current")
)

// Store is a bbolt-backed ports.StatusStore.
type Store struct {
	db *bolt.DB
}

var _ ports.StatusStore = (*Store)(nil)

// Open creates or opens the status database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open status database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(statusBucket)
		return createErr
	})
	if err != nil {
		return nil, fmt.Errorf("create status bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the persisted status, or a zero status when none has
// been written yet.
func (s *Store) Load(_ context.Context) (domain.ScheduleStatus, error) {
	var status domain.ScheduleStatus
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(statusBucket).Get(statusKey)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &status)
	})
	if err != nil {
		return domain.ScheduleStatus{}, fmt.Errorf("load schedule status: %w", err)
	}
	return status, nil
}

// Save overwrites the persisted status.
func (s *Store) Save(_ context.Context, status domain.ScheduleStatus) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		data, marshalErr := json.Marshal(status)
		if marshalErr != nil {
			return marshalErr
		}
		return tx.Bucket(statusBucket).Put(statusKey, data)
	})
	if err != nil {
		return fmt.Errorf("save schedule status: %w", err)
	}
	return nil
}
