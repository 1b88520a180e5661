// Package store persists controller configuration (mode, manual baseline,
// thresholds) across restarts. Only the current configuration is stored;
// readings and history are deliberately not retained.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/sweeney/greenhouse-controller/internal/control"
)

var (
	bucketController = []byte("controller")
	keyState         = []byte("state")
)

// State is the persisted configuration record.
type State struct {
	Mode       control.Mode       `json:"mode"`
	Manual     control.RelayState `json:"manual"`
	Thresholds control.Thresholds `json:"thresholds"`
}

// Store is a bbolt-backed configuration store.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the store at the given path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketController)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}
	return &Store{db: db}, nil
}

// Load returns the persisted state, or nil if nothing has been saved yet.
func (s *Store) Load() (*State, error) {
	var st *State
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketController).Get(keyState)
		if data == nil {
			return nil
		}
		st = &State{}
		if err := json.Unmarshal(data, st); err != nil {
			return fmt.Errorf("decode state: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Save writes the configuration derived from a controller snapshot. While
// in manual mode the live relay state is the manual baseline, so a restart
// resumes with the same actuator targets.
func (s *Store) Save(snap control.Snapshot) error {
	st := State{
		Mode:       snap.Mode,
		Thresholds: snap.Thresholds,
	}
	if snap.Mode == control.ModeManual {
		st.Manual = snap.Relays
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketController).Put(keyState, data)
	})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
