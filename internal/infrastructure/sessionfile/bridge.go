package sessionfile

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Bridge fans session-file changes out to subscribers. Two channels feed it:
// an fsnotify watch on the session file picks up writes from other processes,
// and Publish covers this process's own writes (a process does not get a
// useful ordering guarantee from watching its own renames).
//
// The bridge fingerprints the raw file payload and only notifies when it
// actually changed, so each change is delivered exactly once. In particular
// the fsnotify echo of our own Publish is swallowed.
type Bridge struct {
	path string
	log  zerolog.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}

	mu          sync.Mutex
	subs        map[int]func()
	nextID      int
	lastSeen    []byte
	dispatching bool
	pending     bool
}

// NewBridge starts watching the directory containing path. Watching the
// directory rather than the file keeps notifications flowing across the
// rename-into-place writes the Store performs.
func NewBridge(path string, log zerolog.Logger) (*Bridge, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		watcher.Close()
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	b := &Bridge{
		path:     path,
		log:      log,
		watcher:  watcher,
		done:     make(chan struct{}),
		subs:     make(map[int]func()),
		lastSeen: readRaw(path),
	}
	go b.watch()
	return b, nil
}

// Subscribe registers fn to run once per session change. The returned cancel
// func unregisters fn; a dispatch already in flight on another goroutine may
// still invoke it one last time. fn may write the store and publish from
// inside the callback; the nested notification is folded into the running
// dispatch rather than recursing.
func (b *Bridge) Subscribe(fn func()) (cancel func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish notifies subscribers of a change written by this process. The
// store write must be complete before calling, so a subscriber reading
// synchronously inside its callback observes the post-write value.
func (b *Bridge) Publish() {
	b.notifyIfChanged()
}

// Close stops the watcher. Subscribers receive no further callbacks.
func (b *Bridge) Close() error {
	close(b.done)
	return b.watcher.Close()
}

func (b *Bridge) watch() {
	for {
		select {
		case <-b.done:
			return
		case ev, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != b.path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			b.notifyIfChanged()
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			b.log.Warn().Err(err).Str("path", b.path).Msg("session watch error")
		}
	}
}

// notifyIfChanged compares the current raw payload against the last one
// delivered and dispatches callbacks only on a real change. Callbacks run
// outside the state mutex, so a callback is free to write the store and
// publish again; only one dispatcher is active at a time and a publish
// arriving mid-dispatch queues another comparison round instead of
// recursing. Each subscription is re-checked right before its callback, so
// a cancelled subscription is skipped.
func (b *Bridge) notifyIfChanged() {
	b.mu.Lock()
	if b.dispatching {
		b.pending = true
		b.mu.Unlock()
		return
	}
	b.dispatching = true
	b.mu.Unlock()

	for {
		raw := readRaw(b.path)

		b.mu.Lock()
		changed := !bytes.Equal(raw, b.lastSeen)
		if changed {
			b.lastSeen = raw
		}
		ids := make([]int, 0, len(b.subs))
		for id := range b.subs {
			ids = append(ids, id)
		}
		b.mu.Unlock()

		if changed {
			for _, id := range ids {
				b.mu.Lock()
				fn, ok := b.subs[id]
				b.mu.Unlock()
				if ok {
					fn()
				}
			}
		}

		b.mu.Lock()
		if !b.pending {
			b.dispatching = false
			b.mu.Unlock()
			return
		}
		b.pending = false
		b.mu.Unlock()
	}
}

func readRaw(path string) []byte {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return raw
}
