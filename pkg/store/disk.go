package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"

	"interview-engine/pkg/models"
)

// PayloadStore persists recording media so committed answers survive a
// process restart. The in-memory store remains the ordering truth.
type PayloadStore interface {
	Save(rec *models.Recording) error
	Load(id string) (*models.Recording, error)
	Delete(id string) error
	Close() error
}

type diskStore struct {
	db *badger.DB
}

func NewDiskStore(path string) (PayloadStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	opts := badger.DefaultOptions(filepath.Join(path, "badger"))
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &diskStore{db: db}, nil
}

// persistedRecording splits metadata from the media blob so the blob is
// stored raw under its own key.
type persistedRecording struct {
	ID              string `json:"id"`
	QuestionID      string `json:"question_id"`
	MimeType        string `json:"mime_type"`
	Chunks          int    `json:"chunks"`
	DurationSeconds int    `json:"duration_seconds"`
	Timestamp       int64  `json:"timestamp"`
	Transcript      string `json:"transcript"`
}

func metaKey(id string) []byte  { return []byte("rec:" + id + ":meta") }
func mediaKey(id string) []byte { return []byte("rec:" + id + ":media") }

func (s *diskStore) Save(rec *models.Recording) error {
	meta, err := json.Marshal(persistedRecording{
		ID:              rec.ID,
		QuestionID:      rec.QuestionID,
		MimeType:        rec.Media.MimeType,
		Chunks:          rec.Media.Chunks,
		DurationSeconds: rec.DurationSeconds,
		Timestamp:       rec.Timestamp.Unix(),
		Transcript:      rec.Transcript,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal recording: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(metaKey(rec.ID), meta); err != nil {
			return err
		}
		return txn.Set(mediaKey(rec.ID), rec.Media.Data)
	})
}

func (s *diskStore) Load(id string) (*models.Recording, error) {
	var rec models.Recording

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(id))
		if err != nil {
			return err
		}
		var meta persistedRecording
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		}); err != nil {
			return err
		}
		rec = models.Recording{
			ID:              meta.ID,
			QuestionID:      meta.QuestionID,
			DurationSeconds: meta.DurationSeconds,
			Transcript:      meta.Transcript,
		}
		rec.Media.MimeType = meta.MimeType
		rec.Media.Chunks = meta.Chunks

		media, err := txn.Get(mediaKey(id))
		if err != nil {
			return err
		}
		return media.Value(func(val []byte) error {
			rec.Media.Data = append([]byte(nil), val...)
			return nil
		})
	})

	if err == badger.ErrKeyNotFound {
		return nil, models.ErrRecordingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recording: %w", err)
	}
	return &rec, nil
}

func (s *diskStore) Delete(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(metaKey(id)); err != nil {
			return err
		}
		return txn.Delete(mediaKey(id))
	})
}

func (s *diskStore) Close() error {
	return s.db.Close()
}
