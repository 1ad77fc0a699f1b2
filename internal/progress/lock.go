package progress

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// errors
var (
	ErrLocked = errors.New("checkpoint is locked by another process")
)

// Lock - advisory single-writer lock next to the checkpoint artifact.
// A lock file older than ttl is considered stale and is taken over.
type Lock struct {
	path string
}

// LockPath -
func LockPath(checkpoint string) string {
	return checkpoint + ".lock"
}

// Acquire -
func Acquire(checkpoint string, ttl time.Duration) (*Lock, error) {
	path := LockPath(checkpoint)
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, werr := fmt.Fprintf(f, `{"pid":%d,"time":%d}`+"\n", os.Getpid(), time.Now().Unix())
			cerr := f.Close()
			if werr != nil {
				return nil, werr
			}
			if cerr != nil {
				return nil, cerr
			}
			return &Lock{path}, nil
		}
		if !os.IsExist(err) {
			return nil, errors.Wrap(err, "create lock file")
		}

		fi, err := os.Stat(path)
		if err != nil {
			continue
		}
		if age := time.Since(fi.ModTime()); age < ttl {
			return nil, errors.Wrapf(ErrLocked, "%s (age %s)", path, age.Round(time.Second))
		}
		log.Warn().Str("lock", path).Msg("taking over stale lock")
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "remove stale lock")
		}
	}
	return nil, errors.Wrap(ErrLocked, path)
}

// Refresh - heartbeat keeping the lock fresh
func (l *Lock) Refresh() error {
	if l == nil {
		return nil
	}
	now := time.Now()
	return os.Chtimes(l.path, now, now)
}

// Release -
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
