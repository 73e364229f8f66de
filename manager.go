/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

const roomIDLength = 8

// roomDeps are the collaborators every room of a manager shares.
type roomDeps struct {
	clock     Clock
	generator TwistGenerator
	snapshots *snapshotWriter
	newID     func() string
	onClose   func(*Room)
}

// RoomManager holds the live rooms keyed by name. A room exists from
// the first join until its last member leaves.
type RoomManager struct {
	cfg  *Config
	ctx  context.Context
	deps roomDeps

	mu    sync.Mutex
	rooms map[string]*Room
}

func newRoomManager(ctx context.Context, cfg *Config, generator TwistGenerator, snapshots *snapshotWriter, clock Clock) *RoomManager {
	if clock == nil {
		clock = realClock{}
	}

	m := &RoomManager{
		cfg:   cfg,
		ctx:   ctx,
		rooms: make(map[string]*Room),
	}
	m.deps = roomDeps{
		clock:     clock,
		generator: generator,
		snapshots: snapshots,
		newID:     uuid.NewString,
		onClose:   m.drop,
	}

	if cfg.idleTimeout > 0 {
		go m.reaperLoop()
	}

	return m
}

func (m *RoomManager) getRoom(name string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room, ok := m.rooms[name]; ok {
		return room
	}

	room := newRoom(m.ctx, m.cfg, name, m.deps)
	m.rooms[name] = room
	go room.run()

	logf(m.cfg, "ROOMS: Opened %s", name)

	return room
}

// join registers s with the named room, creating it if needed. A room
// that closes between lookup and registration is replaced.
func (m *RoomManager) join(name string, s *Session) *Room {
	for {
		room := m.getRoom(name)
		if room.join(s) {
			return room
		}
		m.drop(room)
	}
}

// drop forgets room, unless name has already been taken over by a newer
// room.
func (m *RoomManager) drop(room *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rooms[room.name] == room {
		delete(m.rooms, room.name)
	}
}

func (m *RoomManager) lookup(name string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[name]
	return room, ok
}

func (m *RoomManager) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.rooms)
}

// newRoomID generates a crypto-random room name that is not in use.
func (m *RoomManager) newRoomID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	const max = byte(255 - (256 % len(letters)))

	for {
		out := make([]byte, 0, roomIDLength)
		buf := make([]byte, roomIDLength*2)

		for len(out) < roomIDLength {
			if _, err := rand.Read(buf); err != nil {
				panic("crypto/rand failure: " + err.Error())
			}
			for _, b := range buf {
				if b <= max && len(out) < roomIDLength {
					out = append(out, letters[int(b)%len(letters)])
				}
			}
		}

		if _, exists := m.lookup(string(out)); !exists {
			return string(out)
		}
	}
}

// reaperLoop periodically closes rooms that have been idle longer than
// the idle timeout.
func (m *RoomManager) reaperLoop() {
	ticker := time.NewTicker(m.cfg.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.reap(m.deps.clock.Now().Add(-m.cfg.idleTimeout))
		}
	}
}

func (m *RoomManager) reap(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	reaped := 0
	for _, room := range m.rooms {
		if room.idleSince().Before(cutoff) {
			logf(m.cfg, "ROOMS: Closing idle room %s", room.name)
			room.close()
			reaped++
		}
	}

	return reaped
}
