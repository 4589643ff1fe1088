package audit

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketVerdicts = []byte("verdicts")

// Outcome distinguishes the two verdict kinds this package records. Allow
// verdicts are the overwhelming common case and are not logged here.
type Outcome string

const (
	OutcomeDeny  Outcome = "deny"
	OutcomeError Outcome = "error"
)

// Entry is one recorded deny or error verdict.
type Entry struct {
	Time    time.Time `json:"time"`
	Outcome Outcome   `json:"outcome"`
	Path    string    `json:"path"`
	Cluster string    `json:"cluster"`
	Detail  string    `json:"detail,omitempty"`
}

// Log is a bbolt-backed append-only store of Entry records.
type Log struct {
	db *bolt.DB
}

// Open creates or opens the database at path and ensures its bucket exists.
func Open(path string) (*Log, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketVerdicts)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: create bucket: %w", err)
	}

	return &Log{db: db}, nil
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}

// RecordDeny appends a deny verdict for the given route path and cluster.
func (l *Log) RecordDeny(path, cluster string) error {
	return l.record(Entry{Time: time.Now(), Outcome: OutcomeDeny, Path: path, Cluster: cluster})
}

// RecordError appends a plugin runtime error verdict.
func (l *Log) RecordError(path, cluster string, cause error) error {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return l.record(Entry{Time: time.Now(), Outcome: OutcomeError, Path: path, Cluster: cluster, Detail: detail})
}

func (l *Log) record(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}

	return l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketVerdicts)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, data)
	})
}

// Recent returns up to limit entries in reverse chronological order.
func (l *Log) Recent(limit int) ([]Entry, error) {
	var entries []Entry
	err := l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketVerdicts).Cursor()
		for k, v := c.Last(); k != nil && len(entries) < limit; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("audit: unmarshal entry: %w", err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}
