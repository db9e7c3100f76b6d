package config

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestWatchPublishesValidatedUpdate(t *testing.T) {
	m := writeConfig(t, validYAML)
	if _, err := m.Load(); err != nil {
		t.Fatalf("initial Load error: %v", err)
	}

	sub := m.Subscribe(4)
	defer m.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		_ = m.Watch(ctx)
	}()

	// Give the watcher a moment to attach to the directory.
	time.Sleep(100 * time.Millisecond)

	updated := validYAML + "  shutdown_grace_seconds: 9\n"
	if err := os.WriteFile(m.Path(), []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-sub:
		if cfg.Behavior.ShutdownGraceSeconds != 9 {
			t.Fatalf("published grace = %d, want 9", cfg.Behavior.ShutdownGraceSeconds)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no publish after config rewrite")
	}

	cancel()
	select {
	case <-watchDone:
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchKeepsPreviousConfigOnBadWrite(t *testing.T) {
	m := writeConfig(t, validYAML)
	if _, err := m.Load(); err != nil {
		t.Fatalf("initial Load error: %v", err)
	}

	sub := m.Subscribe(4)
	defer m.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(m.Path(), []byte("audio:\n  global_volume: 999\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-sub:
		t.Fatalf("invalid config was published: %+v", cfg)
	case <-time.After(time.Second):
	}
	if got := m.Get(); got == nil || got.Audio.GlobalVolume != 60 {
		t.Fatalf("committed config changed: %+v", got)
	}
}
