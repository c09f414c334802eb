// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/config"
	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/utils"
	"github.com/fsnotify/fsnotify"
)

const (
	lockFileName   = "sync-leader.lock"
	channelDirName = "sync-channel"

	defaultPollInterval = time.Second
	defaultMessageTTL   = time.Minute
)

// Coordinator is one agent's membership in the profile's leader election and
// broadcast channel.
type Coordinator struct {
	id         string
	channelDir string
	lock       *fileLock

	pollInterval time.Duration
	messageTTL   time.Duration

	leader   atomic.Bool
	lockMu   sync.Mutex
	closed   atomic.Bool
	running  atomic.Bool
	watching atomic.Bool

	subMu  sync.RWMutex
	nextID int
	subs   map[int]func(Message)

	seen map[string]time.Time

	logger *logger.Logger
}

// New prepares the profile directory. It does not try to become leader until
// Run is called.
func New(cfg config.ClientCoordinator, logger *logger.Logger) (*Coordinator, error) {
	if cfg.ProfileDir == "" {
		return nil, ErrNoProfileDir
	}

	channelDir := filepath.Join(cfg.ProfileDir, channelDirName)
	if err := os.MkdirAll(channelDir, 0o700); err != nil {
		return nil, fmt.Errorf("create channel directory: %w", err)
	}

	return &Coordinator{
		id:           utils.NewUUIDGenerator().Generate(),
		channelDir:   channelDir,
		lock:         newFileLock(filepath.Join(cfg.ProfileDir, lockFileName)),
		pollInterval: defaultPollInterval,
		messageTTL:   defaultMessageTTL,
		subs:         make(map[int]func(Message)),
		seen:         make(map[string]time.Time),
		logger:       logger,
	}, nil
}

// ID identifies this agent as a message sender.
func (c *Coordinator) ID() string {
	return c.id
}

func (c *Coordinator) IsLeader() bool {
	return c.leader.Load()
}

// Run takes part in the election until ctx is done. onElected runs when this
// agent becomes leader and onDemoted when it gives leadership up on exit;
// both run on the Run goroutine. Incoming messages from other agents are
// delivered to subscribers on the same goroutine.
//
// fsnotify only reports files created after the watch is in place, so the
// channel directory is also scanned once the watch starts and on every poll
// tick. A message is delivered once however it was found.
func (c *Coordinator) Run(ctx context.Context, onElected, onDemoted func()) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("coordinator is already running")
	}
	defer c.running.Store(false)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err = watcher.Add(c.channelDir); err != nil {
		return fmt.Errorf("watch %s: %w", c.channelDir, err)
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	c.scan()
	c.watching.Store(true)
	defer c.watching.Store(false)

	c.elect(onElected)

	for {
		select {
		case <-ctx.Done():
			c.resign(onDemoted)
			return nil

		case <-ticker.C:
			c.elect(onElected)
			c.scan()
			c.prune()

		case event, ok := <-watcher.Events:
			if !ok {
				c.resign(onDemoted)
				return nil
			}
			if event.Has(fsnotify.Create) {
				c.receive(event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				c.resign(onDemoted)
				return nil
			}
			c.logger.Warn().Err(err).Msg("channel watcher error")
		}
	}
}

func (c *Coordinator) elect(onElected func()) {
	if c.leader.Load() {
		return
	}

	c.lockMu.Lock()
	acquired, err := c.lock.TryLock()
	c.lockMu.Unlock()
	if err != nil {
		c.logger.Warn().Err(err).Msg("leader lock unavailable")
		return
	}
	if !acquired {
		return
	}

	c.leader.Store(true)
	c.logger.Info().Str("agent", c.id).Msg("elected sync leader")
	if onElected != nil {
		onElected()
	}
}

func (c *Coordinator) resign(onDemoted func()) {
	if !c.leader.Swap(false) {
		return
	}

	c.lockMu.Lock()
	err := c.lock.Unlock()
	c.lockMu.Unlock()
	if err != nil {
		c.logger.Warn().Err(err).Msg("release leader lock")
	}

	c.logger.Info().Str("agent", c.id).Msg("resigned sync leadership")
	if onDemoted != nil {
		onDemoted()
	}
}

// ── broadcast ────────────────────────────────────────────────────────────────

// RequestSync asks the leader to sync.
func (c *Coordinator) RequestSync() error {
	return c.publish(Message{Type: MessageSyncRequested})
}

// BroadcastSyncComplete tells followers which records the last sync changed.
func (c *Coordinator) BroadcastSyncComplete(changedIDs []string) error {
	return c.publish(Message{Type: MessageSyncComplete, ChangedIDs: changedIDs})
}

// Subscribe registers fn for messages from other agents and returns a
// function that removes it.
func (c *Coordinator) Subscribe(fn func(Message)) (unsubscribe func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextID
	c.nextID++
	c.subs[id] = fn

	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Coordinator) publish(msg Message) error {
	if c.closed.Load() {
		return ErrClosed
	}

	msg.Sender = c.id
	msg.SentAt = time.Now().UTC()

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	name := fmt.Sprintf("%020d-%s.json", msg.SentAt.UnixNano(), c.id)
	tmp := filepath.Join(c.channelDir, "."+name+".tmp")

	if err = os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err = os.Rename(tmp, filepath.Join(c.channelDir, name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// scan delivers every message in the channel directory not seen yet.
func (c *Coordinator) scan() {
	files, err := os.ReadDir(c.channelDir)
	if err != nil {
		c.logger.Warn().Err(err).Msg("list channel directory")
		return
	}

	// ReadDir sorts by name, and names start with the send time.
	for _, f := range files {
		if !f.IsDir() {
			c.receive(filepath.Join(c.channelDir, f.Name()))
		}
	}
}

func (c *Coordinator) receive(path string) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
		return
	}
	if strings.HasSuffix(name, "-"+c.id+".json") {
		return
	}
	if _, ok := c.seen[name]; ok {
		return
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("file", name).Msg("read broadcast message")
		return
	}

	var msg Message
	if err = json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn().Err(err).Str("file", name).Msg("malformed broadcast message")
		c.seen[name] = time.Now()
		return
	}
	c.seen[name] = msg.SentAt

	c.subMu.RLock()
	fns := make([]func(Message), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.RUnlock()

	for _, fn := range fns {
		fn(msg)
	}
}

// prune removes messages older than the TTL. A message is forgotten only once
// its file is gone, otherwise the next scan would deliver it again.
func (c *Coordinator) prune() {
	cutoff := time.Now().Add(-c.messageTTL)

	files, err := os.ReadDir(c.channelDir)
	if err != nil {
		c.logger.Warn().Err(err).Msg("list channel directory")
		return
	}

	present := make(map[string]struct{}, len(files))
	for _, f := range files {
		info, err := f.Info()
		if err != nil || info.ModTime().After(cutoff) {
			present[f.Name()] = struct{}{}
			continue
		}
		if err = os.Remove(filepath.Join(c.channelDir, f.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Debug().Err(err).Str("file", f.Name()).Msg("prune broadcast message")
			present[f.Name()] = struct{}{}
		}
	}

	for name := range c.seen {
		if _, ok := present[name]; !ok {
			delete(c.seen, name)
		}
	}
}

// Close releases leadership if Run left it held and stops publishing.
func (c *Coordinator) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.leader.Store(false)
	c.lockMu.Lock()
	defer c.lockMu.Unlock()
	return c.lock.Unlock()
}
