package services

import (
	"context"
	"fmt"

	"github.com/MegaGrindStone/sentichat/internal/models"
	bolt "go.etcd.io/bbolt"
)

// BoltDB implements theme.Store on top of a BoltDB file. Preferences live in a single bucket
// as plain string values.
type BoltDB struct {
	db *bolt.DB
}

var (
	preferencesBucket = []byte("preferences")
	themeKey          = []byte("theme")
)

// NewBoltDB opens (or creates with 0600 permissions) the database at path and makes sure the
// preferences bucket exists.
func NewBoltDB(path string) (BoltDB, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return BoltDB{}, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(preferencesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return BoltDB{}, fmt.Errorf("failed to create preferences bucket: %w", err)
	}

	return BoltDB{db: db}, nil
}

// Theme returns the saved theme. ok is false when no theme was saved yet.
func (b BoltDB) Theme(context.Context) (models.Theme, bool, error) {
	var value string
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(preferencesBucket)
		if bucket == nil {
			return nil
		}
		// The slice is only valid inside the transaction.
		value = string(bucket.Get(themeKey))
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to read theme: %w", err)
	}
	if value == "" {
		return "", false, nil
	}

	theme, err := models.ParseTheme(value)
	if err != nil {
		return "", false, fmt.Errorf("failed to parse stored theme: %w", err)
	}
	return theme, true, nil
}

// SetTheme saves theme, replacing any previous value.
func (b BoltDB) SetTheme(_ context.Context, theme models.Theme) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(preferencesBucket)
		if err != nil {
			return fmt.Errorf("failed to create preferences bucket: %w", err)
		}
		if err := bucket.Put(themeKey, []byte(theme)); err != nil {
			return fmt.Errorf("failed to save theme: %w", err)
		}
		return nil
	})
}

// Close releases the database file.
func (b BoltDB) Close() error {
	return b.db.Close()
}
