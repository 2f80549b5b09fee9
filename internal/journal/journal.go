// Package journal records which scenarios were last pulled or pushed, per
// profile, together with a compressed snapshot of the remote document at
// that moment. It backs `scenarios status` and `scenarios restore --offline`.
package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	bolt "go.etcd.io/bbolt"
)

// FileName is the journal database name inside the data directory.
const FileName = "journal.db"

// ErrNotFound indicates no journal entry exists for a scenario.
var ErrNotFound = errors.New("not found in journal")

var bucketProfiles = []byte("profiles")

// Entry is the journal record of one scenario.
type Entry struct {
	Index    string    `cbor:"index"`
	Type     string    `cbor:"type"`
	Name     string    `cbor:"name,omitempty"`
	Dir      string    `cbor:"dir"`
	Hash     string    `cbor:"hash"`
	Action   string    `cbor:"action"`
	SyncedAt time.Time `cbor:"synced_at"`
	// Snapshot is the zstd-compressed remote document.
	Snapshot []byte `cbor:"snapshot,omitempty"`
}

// Document returns the decompressed remote snapshot.
func (e *Entry) Document() ([]byte, error) {
	if len(e.Snapshot) == 0 {
		return nil, fmt.Errorf("journal entry %s has no snapshot", e.Index)
	}
	out, err := decoder.DecodeAll(e.Snapshot, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("journal: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("journal: CBOR decoder initialization failed: " + err.Error())
	}

	encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("journal: zstd encoder initialization failed: " + err.Error())
	}
	decoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("journal: zstd decoder initialization failed: " + err.Error())
	}
}

// Journal is a bbolt-backed sync journal.
type Journal struct {
	db *bolt.DB
}

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketProfiles)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record stores entry for profile, compressing document as its snapshot.
// A nil document keeps the entry without a snapshot.
func (j *Journal) Record(profile string, entry Entry, document []byte) error {
	if entry.Index == "" {
		return fmt.Errorf("journal entry has no index")
	}
	if document != nil {
		entry.Snapshot = encoder.EncodeAll(document, nil)
	}
	data, err := encMode.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode journal entry: %w", err)
	}

	return j.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(bucketProfiles).CreateBucketIfNotExists([]byte(profile))
		if err != nil {
			return err
		}
		return b.Put([]byte(entry.Index), data)
	})
}

// Get returns the entry for index under profile.
func (j *Journal) Get(profile, index string) (*Entry, error) {
	var entry Entry
	err := j.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProfiles).Bucket([]byte(profile))
		if b == nil {
			return fmt.Errorf("scenario %s: %w", index, ErrNotFound)
		}
		data := b.Get([]byte(index))
		if data == nil {
			return fmt.Errorf("scenario %s: %w", index, ErrNotFound)
		}
		return decMode.Unmarshal(data, &entry)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns every entry recorded for profile, ordered by index key.
func (j *Journal) List(profile string) ([]*Entry, error) {
	var entries []*Entry
	err := j.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProfiles).Bucket([]byte(profile))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var entry Entry
			if err := decMode.Unmarshal(v, &entry); err != nil {
				return err
			}
			entries = append(entries, &entry)
			return nil
		})
	})
	return entries, err
}

// Delete removes the entry for index. Deleting a missing entry is not an error.
func (j *Journal) Delete(profile, index string) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProfiles).Bucket([]byte(profile))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(index))
	})
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
