// Package replay records sessions for deterministic playback: every
// event batch polled from an engine and every frame submitted to it is
// appended to a bolt database, keyed by session. A recorded session can
// be played back into tests or tooling without the original engine.
package replay

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
	"src.zr.sh/pkg/backend"
)

const (
	bucketSessions = "sessions"
	bucketEvents   = "events"
	bucketFrames   = "frames"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	cborEncMode = em
}

// ErrNoSession is returned when a session id is not in the database.
var ErrNoSession = errors.New("no such session")

// SessionMeta describes one recorded session.
type SessionMeta struct {
	ID        string `cbor:"id"`
	StartedMs int64  `cbor:"started_ms"`
	Cols      int    `cbor:"cols"`
	Rows      int    `cbor:"rows"`
	Note      string `cbor:"note,omitempty"`
}

// DB is a session database.
type DB struct {
	db *bolt.DB
}

// Open opens (creating if needed) a session database at path.
func Open(path string) (*DB, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open replay db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketSessions, bucketEvents, bucketFrames} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init replay db: %w", err)
	}
	return &DB{db}, nil
}

// Close closes the database.
func (d *DB) Close() error { return d.db.Close() }

// Sessions lists the recorded sessions.
func (d *DB) Sessions() ([]SessionMeta, error) {
	var metas []SessionMeta
	err := d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSessions)).ForEach(func(k, v []byte) error {
			var meta SessionMeta
			if err := cbor.Unmarshal(v, &meta); err != nil {
				return fmt.Errorf("session %s: %w", k, err)
			}
			metas = append(metas, meta)
			return nil
		})
	})
	return metas, err
}

// create registers a new session.
func (d *DB) create(meta SessionMeta) error {
	data, err := cborEncMode.Marshal(meta)
	if err != nil {
		return err
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(bucketSessions)).Put([]byte(meta.ID), data); err != nil {
			return err
		}
		if _, err := tx.Bucket([]byte(bucketEvents)).CreateBucket([]byte(meta.ID)); err != nil {
			return err
		}
		_, err := tx.Bucket([]byte(bucketFrames)).CreateBucket([]byte(meta.ID))
		return err
	})
}

// append adds one blob to a session's event or frame log.
func (d *DB) append(bucket, session string, blob []byte) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket)).Bucket([]byte(session))
		if b == nil {
			return ErrNoSession
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(marshalSeq(seq), blob)
	})
}

func (d *DB) load(bucket, session string) ([][]byte, error) {
	var blobs [][]byte
	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket)).Bucket([]byte(session))
		if b == nil {
			return ErrNoSession
		}
		return b.ForEach(func(k, v []byte) error {
			blob := make([]byte, len(v))
			copy(blob, v)
			blobs = append(blobs, blob)
			return nil
		})
	})
	return blobs, err
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

// Recorder wraps an engine and logs its traffic into a session. It
// implements backend.Engine and is otherwise transparent.
type Recorder struct {
	backend.Engine
	db *DB
	id string
}

// NewRecorder starts a new session recording the engine's traffic. The
// session id is a fresh uuid, returned via Session.
func NewRecorder(e backend.Engine, db *DB, note string) (*Recorder, error) {
	caps, err := e.Caps()
	if err != nil {
		return nil, err
	}
	meta := SessionMeta{
		ID:        uuid.NewString(),
		StartedMs: time.Now().UnixMilli(),
		Cols:      caps.Cols,
		Rows:      caps.Rows,
		Note:      note,
	}
	if err := db.create(meta); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &Recorder{Engine: e, db: db, id: meta.ID}, nil
}

// Session returns the id of the session being recorded.
func (r *Recorder) Session() string { return r.id }

// RequestFrame records the frame, then forwards it.
func (r *Recorder) RequestFrame(ctx context.Context, drawlist []byte) error {
	if err := r.db.append(bucketFrames, r.id, drawlist); err != nil {
		return err
	}
	return r.Engine.RequestFrame(ctx, drawlist)
}

// PollEvents forwards the poll and records the returned batch.
func (r *Recorder) PollEvents(ctx context.Context) ([]byte, error) {
	batch, err := r.Engine.PollEvents(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.db.append(bucketEvents, r.id, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// Player exposes a recorded session for playback.
type Player struct {
	Meta   SessionMeta
	Events [][]byte
	Frames [][]byte
}

// Load reads a whole session out of the database.
func Load(db *DB, session string) (*Player, error) {
	var meta SessionMeta
	err := db.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketSessions)).Get([]byte(session))
		if v == nil {
			return ErrNoSession
		}
		return cbor.Unmarshal(v, &meta)
	})
	if err != nil {
		return nil, err
	}
	events, err := db.load(bucketEvents, session)
	if err != nil {
		return nil, err
	}
	frames, err := db.load(bucketFrames, session)
	if err != nil {
		return nil, err
	}
	return &Player{Meta: meta, Events: events, Frames: frames}, nil
}
