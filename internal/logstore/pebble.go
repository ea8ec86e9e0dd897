package logstore

import (
	"fmt"
	"os"

	"github.com/rzbill/aesdsocket/internal/eventlog"
	pebblestore "github.com/rzbill/aesdsocket/internal/storage/pebble"
)

const pebbleLogName = "aesdsocket"

// PebbleBackend keeps the log as checksummed chunks in an embedded Pebble
// database rooted at dir.
type PebbleBackend struct {
	opts pebblestore.Options
	db   *pebblestore.DB
	log  *eventlog.Log
}

// NewPebbleBackend returns a backend that will open a database in opts.DataDir
// on Reset.
func NewPebbleBackend(opts pebblestore.Options) *PebbleBackend {
	return &PebbleBackend{opts: opts}
}

func (b *PebbleBackend) Append(p []byte) error {
	if b.log == nil {
		return os.ErrClosed
	}
	_, err := b.log.Append(p)
	return err
}

func (b *PebbleBackend) ReadAll() ([]byte, error) {
	if b.log == nil {
		return nil, os.ErrClosed
	}
	return b.log.ReadAll()
}

// Reset opens the database on first use, discarding anything left behind by
// an earlier process, and truncates the log afterwards.
func (b *PebbleBackend) Reset() error {
	if b.db == nil {
		if err := os.RemoveAll(b.opts.DataDir); err != nil {
			return err
		}
		db, err := pebblestore.Open(b.opts)
		if err != nil {
			return fmt.Errorf("open pebble: %w", err)
		}
		l, err := eventlog.OpenLog(db, pebbleLogName)
		if err != nil {
			_ = db.Close()
			return err
		}
		b.db, b.log = db, l
	}
	return b.log.Truncate()
}

// Destroy closes the database and removes its directory.
func (b *PebbleBackend) Destroy() error {
	var closeErr error
	if b.db != nil {
		closeErr = b.db.Close()
		b.db, b.log = nil, nil
	}
	if err := os.RemoveAll(b.opts.DataDir); err != nil {
		return err
	}
	return closeErr
}

func (b *PebbleBackend) Size() int64 {
	if b.log == nil {
		return 0
	}
	return b.log.Size()
}
