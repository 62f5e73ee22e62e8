package journal

import (
	"encoding/binary"
	"encoding/json"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/sinkhole/internal/filter/domain"
)

var (
	bucketEvents = []byte("events")
	bucketMeta   = []byte("meta")

	keyLast = []byte("last")
)

// event is the stored form of a domain.BlockEvent.
type event struct {
	Layer string `json:"layer"`
	Host  string `json:"host"`
	Rule  string `json:"rule"`
	At    int64  `json:"at"` // unix seconds
}

// boltJournal implements Journal using bbolt. Events live under
// monotonically increasing sequence keys; per-layer counters and the
// newest timestamp live in the meta bucket.
type boltJournal struct {
	db *bbolt.DB
}

// Open opens (or creates) a journal database at path and ensures
// buckets exist.
func Open(path string) (Journal, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketEvents); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketMeta); err != nil {
			return err
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &boltJournal{db: db}, nil
}

func (j *boltJournal) Close() error { return j.db.Close() }

func (j *boltJournal) Append(ev domain.BlockEvent) error {
	stored := event{
		Layer: ev.Layer.String(),
		Host:  ev.Host,
		Rule:  ev.Rule,
		At:    ev.At.Unix(),
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	return j.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		if err := b.Put(key, raw); err != nil {
			return err
		}

		meta := tx.Bucket(bucketMeta)
		if err := bumpCounter(meta, []byte(stored.Layer)); err != nil {
			return err
		}
		last := make([]byte, 8)
		binary.BigEndian.PutUint64(last, uint64(stored.At))
		return meta.Put(keyLast, last)
	})
}

// Recent returns up to n events, newest first.
func (j *boltJournal) Recent(n int) ([]domain.BlockEvent, error) {
	if n <= 0 {
		return nil, nil
	}
	out := make([]domain.BlockEvent, 0, n)
	err := j.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()
		for k, v := c.Last(); k != nil && len(out) < n; k, v = c.Prev() {
			var stored event
			if err := json.Unmarshal(v, &stored); err != nil {
				// skip unreadable records rather than failing the scan
				continue
			}
			layer, err := domain.ParseLayer(stored.Layer)
			if err != nil {
				continue
			}
			out = append(out, domain.BlockEvent{
				Layer: layer,
				Host:  stored.Host,
				Rule:  stored.Rule,
				At:    time.Unix(stored.At, 0).UTC(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (j *boltJournal) Stats() Stats {
	st := Stats{}
	_ = j.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if meta == nil {
			return nil
		}
		st.Resolve = readCounter(meta, []byte(domain.LayerResolve.String()))
		st.Handshake = readCounter(meta, []byte(domain.LayerHandshake.String()))
		st.Request = readCounter(meta, []byte(domain.LayerRequest.String()))
		if v := meta.Get(keyLast); len(v) == 8 {
			st.LastEventUnix = int64(binary.BigEndian.Uint64(v))
		}
		return nil
	})
	return st
}

func bumpCounter(b *bbolt.Bucket, key []byte) error {
	next := readCounterRaw(b.Get(key)) + 1
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	return b.Put(key, buf)
}

func readCounter(b *bbolt.Bucket, key []byte) uint64 {
	return readCounterRaw(b.Get(key))
}

func readCounterRaw(v []byte) uint64 {
	if len(v) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(v)
}
