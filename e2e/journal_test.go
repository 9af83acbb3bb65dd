package e2e_test

import (
	"errors"
	"testing"

	"github.com/glizzus/sound-bridge/e2e"
	"github.com/glizzus/sound-bridge/internal/config"
	"github.com/glizzus/sound-bridge/internal/journal"
	"github.com/glizzus/sound-bridge/internal/voice"
	"github.com/google/go-cmp/cmp"
)

func TestRedisJournal(t *testing.T) {
	addr := e2e.UseRedis(t)
	j := e2e.GetJournal(t, addr, e2e.JournalKey(t))
	ctx := t.Context()

	ids := &e2e.RandomSnowFlakeGenerator{}
	guildA, _ := ids.Next()
	guildB, _ := ids.Next()

	entries, err := j.Entries(ctx)
	if err != nil {
		t.Fatalf("failed to read empty journal: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected an empty journal, got %v", entries)
	}

	if err := j.Record(ctx, guildA, "chan-a"); err != nil {
		t.Fatalf("failed to record: %v", err)
	}
	if err := j.Record(ctx, guildB, "chan-b"); err != nil {
		t.Fatalf("failed to record: %v", err)
	}
	// A later record for the same guild replaces the earlier one.
	if err := j.Record(ctx, guildA, "chan-c"); err != nil {
		t.Fatalf("failed to record: %v", err)
	}
	if err := j.Remove(ctx, guildB); err != nil {
		t.Fatalf("failed to remove: %v", err)
	}
	if err := j.Remove(ctx, "never-recorded"); err != nil {
		t.Fatalf("removing an absent guild should succeed: %v", err)
	}

	entries, err = j.Entries(ctx)
	if err != nil {
		t.Fatalf("failed to read journal: %v", err)
	}
	if diff := cmp.Diff(map[string]string{guildA: "chan-c"}, entries); diff != "" {
		t.Errorf("journal mismatch (-want +got):\n%s", diff)
	}
}

type leaver struct {
	left []string
}

func (l *leaver) ChannelVoiceJoinManual(gID, cID string, _, _ bool) error {
	if cID != "" {
		return errors.New("expected a leave")
	}
	l.left = append(l.left, gID)
	return nil
}

func TestRecoverStaleFromRedis(t *testing.T) {
	addr := e2e.UseRedis(t)
	key := e2e.JournalKey(t)
	ctx := t.Context()

	// A previous process that died while connected.
	previous := e2e.GetJournal(t, addr, key)
	if err := previous.Record(ctx, "guild-1", "chan-1"); err != nil {
		t.Fatalf("failed to seed journal: %v", err)
	}

	current, closeJournal, err := journal.Open(ctx, &config.RedisConfig{Addr: addr, JournalKey: key})
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	t.Cleanup(func() { _ = closeJournal() })

	l := &leaver{}
	n, err := voice.RecoverStale(ctx, current, l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 recovered guild, got %d", n)
	}
	if diff := cmp.Diff([]string{"guild-1"}, l.left); diff != "" {
		t.Errorf("left guilds mismatch (-want +got):\n%s", diff)
	}

	entries, err := current.Entries(ctx)
	if err != nil {
		t.Fatalf("failed to read journal: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected the journal to be cleared, got %v", entries)
	}
}

func TestOpenJournalUnreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis e2e test in short mode")
	}
	_, _, err := journal.Open(t.Context(), &config.RedisConfig{Addr: "127.0.0.1:1", JournalKey: "unused"})
	if err == nil {
		t.Errorf("expected an error for an unreachable redis")
	}
}
