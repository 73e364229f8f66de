/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"sync"
	"testing"
	"time"
)

const testWait = 2 * time.Second

func testConfig() *Config {
	return &Config{
		approvalMode: approvalVoting,
		bind:         "127.0.0.1",
		contextWords: defaultContextWords,
		pingTimeout:  time.Minute,
		port:         8080,
		twistTimeout: time.Second,
		voteWindow:   30 * time.Second,
	}
}

// stubGenerator returns a fixed twist, optionally waiting on release
// first.
type stubGenerator struct {
	mu      sync.Mutex
	text    string
	err     error
	prompts []string
	release chan struct{}
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	release := g.release
	g.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.text, g.err
}

func (g *stubGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func (g *stubGenerator) set(text string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.text, g.err = text, err
}

func newTestManager(t *testing.T, cfg *Config, gen TwistGenerator, snapshots *snapshotWriter) (*RoomManager, *fakeClock) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	clk := newFakeClock()
	return newRoomManager(ctx, cfg, gen, snapshots, clk), clk
}

// joinRoom registers a connectionless session and consumes its greeting.
func joinRoom(t *testing.T, gm *RoomManager, room, playerID, username string) (*Room, *Session) {
	t.Helper()

	s := newSession(nil, playerID, username)
	r := gm.join(room, s)
	expect[StoryMessage](t, s)

	return r, s
}

func next(t *testing.T, s *Session) any {
	t.Helper()

	select {
	case msg, ok := <-s.send:
		if !ok {
			t.Fatalf("session %q was closed", s.username)
		}
		return msg
	case <-time.After(testWait):
		t.Fatalf("timed out waiting for a message to %q", s.username)
	}
	return nil
}

// expect fails unless the next message to s has type T.
func expect[T any](t *testing.T, s *Session) T {
	t.Helper()

	msg := next(t, s)
	typed, ok := msg.(T)
	if !ok {
		t.Fatalf("%q got %T (%+v), wanted %T", s.username, msg, msg, typed)
	}
	return typed
}

// barrier round-trips a get_story through the room, so every event s
// submitted earlier has been handled. It returns the story.
func barrier(t *testing.T, r *Room, s *Session) string {
	t.Helper()

	if !r.submit(s, getStoryEvent{}) {
		t.Fatalf("room %s is closed", r.name)
	}
	return expect[StoryMessage](t, s).Story
}

func add(t *testing.T, r *Room, s *Session, text string) {
	t.Helper()

	if !r.submit(s, addEvent{text: text}) {
		t.Fatalf("room %s is closed", r.name)
	}
}

func vote(t *testing.T, r *Room, s *Session, id string, yes bool) {
	t.Helper()

	if !r.submit(s, voteEvent{twistID: id, yes: yes}) {
		t.Fatalf("room %s is closed", r.name)
	}
}

func waitClosed(t *testing.T, r *Room) {
	t.Helper()

	select {
	case <-r.done:
	case <-time.After(testWait):
		t.Fatalf("room %s did not close", r.name)
	}
}

func assertQuiet(t *testing.T, s *Session) {
	t.Helper()

	select {
	case msg := <-s.send:
		t.Fatalf("%q got unexpected %T (%+v)", s.username, msg, msg)
	default:
	}
}

// waitHungUp waits for the room to close s's send queue.
func waitHungUp(t *testing.T, s *Session) {
	t.Helper()

	for {
		select {
		case _, ok := <-s.send:
			if !ok {
				return
			}
		case <-time.After(testWait):
			t.Fatalf("%q was never hung up on", s.username)
		}
	}
}
