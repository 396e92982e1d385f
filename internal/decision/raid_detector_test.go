package decision

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-raidguard/internal/models"
	"go-raidguard/internal/state"
)

type call struct {
	action     models.ActionType
	member     models.Member
	reason     string
	deleteDays int
}

type fakeModerator struct {
	mu     sync.Mutex
	calls  []call
	failOn map[string]bool
	during func(member models.Member)
}

func (f *fakeModerator) record(c call) error {
	if f.during != nil {
		f.during(c.member)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if f.failOn[c.member.UserID] {
		return errors.New("50013: Missing Permissions")
	}
	return nil
}

func (f *fakeModerator) Kick(_ context.Context, m models.Member, reason string) error {
	return f.record(call{action: models.ActionTypeKick, member: m, reason: reason})
}

func (f *fakeModerator) Ban(_ context.Context, m models.Member, days int, reason string) error {
	return f.record(call{action: models.ActionTypeBan, member: m, reason: reason, deleteDays: days})
}

func (f *fakeModerator) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func newMember(guildID string, i int) models.Member {
	return models.Member{GuildID: guildID, UserID: fmt.Sprintf("user-%d", i), Username: fmt.Sprintf("bot%d", i)}
}

func newDetector(mod *fakeModerator) (*RaidDetector, *state.WatcherState) {
	watcher := state.NewWatcherState(30 * time.Second)
	return NewRaidDetector(watcher, mod, DefaultPolicy()), watcher
}

func records(w *state.WatcherState, guildID string) []state.JoinRecord {
	var out []state.JoinRecord
	w.WithGuildWindow(guildID, func(gw *state.GuildWindow) { out = gw.Records() })
	return out
}

func TestRaidDetector_ThresholdScenario(t *testing.T) {
	mod := &fakeModerator{}
	d, watcher := newDetector(mod)
	ctx := context.Background()
	t0 := time.Now()

	for i := 0; i < 7; i++ {
		d.OnJoin(ctx, "G", newMember("G", i), t0.Add(time.Duration(i)*500*time.Millisecond))
	}
	assert.Empty(t, mod.Calls(), "7 joins must not trigger")

	d.OnJoin(ctx, "G", newMember("G", 7), t0.Add(4*time.Second))

	calls := mod.Calls()
	require.Len(t, calls, 8)
	for i, c := range calls {
		assert.Equal(t, models.ActionTypeKick, c.action)
		assert.Equal(t, fmt.Sprintf("user-%d", i), c.member.UserID, "actions follow join order")
		assert.Equal(t, "Suspected bot; performing raid defense", c.reason)
	}
	for _, r := range records(watcher, "G") {
		assert.True(t, r.ActionTaken)
	}

	d.OnJoin(ctx, "G", newMember("G", 8), t0.Add(44*time.Second))

	window := records(watcher, "G")
	require.Len(t, window, 1)
	assert.Equal(t, "user-8", window[0].Member.UserID)
	assert.False(t, window[0].ActionTaken)
	assert.Len(t, mod.Calls(), 8)
}

func TestRaidDetector_OnlyPendingActedOnAfterTrigger(t *testing.T) {
	mod := &fakeModerator{}
	d, watcher := newDetector(mod)
	ctx := context.Background()
	t0 := time.Now()

	for i := 0; i < 8; i++ {
		d.OnJoin(ctx, "G", newMember("G", i), t0)
	}
	require.Len(t, mod.Calls(), 8)

	d.OnJoin(ctx, "G", newMember("G", 8), t0.Add(time.Second))

	calls := mod.Calls()
	require.Len(t, calls, 9)
	assert.Equal(t, "user-8", calls[8].member.UserID)
	assert.Len(t, records(watcher, "G"), 9)
}

func TestRaidDetector_RemovalBeforeTriggerDoesNotCount(t *testing.T) {
	mod := &fakeModerator{}
	d, watcher := newDetector(mod)
	ctx := context.Background()
	t0 := time.Now()

	d.OnJoin(ctx, "G", newMember("G", 0), t0)
	d.OnRemoval("G", "user-0")
	assert.Empty(t, records(watcher, "G"))

	for i := 1; i <= 7; i++ {
		d.OnJoin(ctx, "G", newMember("G", i), t0.Add(time.Second))
	}
	assert.Empty(t, mod.Calls(), "the departed member no longer counts toward the burst")

	d.OnJoin(ctx, "G", newMember("G", 8), t0.Add(2*time.Second))
	calls := mod.Calls()
	require.Len(t, calls, 8)
	for _, c := range calls {
		assert.NotEqual(t, "user-0", c.member.UserID)
	}
}

func TestRaidDetector_RemovalOfProcessedMemberIsKept(t *testing.T) {
	mod := &fakeModerator{}
	d, watcher := newDetector(mod)
	ctx := context.Background()
	t0 := time.Now()

	for i := 0; i < 8; i++ {
		d.OnJoin(ctx, "G", newMember("G", i), t0)
	}
	for i := 0; i < 8; i++ {
		d.OnRemoval("G", fmt.Sprintf("user-%d", i))
	}
	assert.Len(t, records(watcher, "G"), 8)

	// the kicked accounts still count toward the window
	d.OnJoin(ctx, "G", newMember("G", 8), t0.Add(time.Second))
	assert.Len(t, mod.Calls(), 9)
}

func TestRaidDetector_FailedActionStillMarked(t *testing.T) {
	mod := &fakeModerator{failOn: map[string]bool{"user-3": true, "user-5": true}}
	d, watcher := newDetector(mod)

	var reports []RaidReport
	d.SetRaidHandler(func(r RaidReport) { reports = append(reports, r) })

	t0 := time.Now()
	for i := 0; i < 8; i++ {
		d.OnJoin(context.Background(), "G", newMember("G", i), t0)
	}

	for _, r := range records(watcher, "G") {
		assert.True(t, r.ActionTaken, r.Member.UserID)
	}
	require.Len(t, reports, 1)
	assert.Equal(t, "G", reports[0].GuildID)
	assert.Equal(t, 8, reports[0].LiveJoins)
	assert.Equal(t, 8, reports[0].Actioned)
	assert.Equal(t, 2, reports[0].Failed)
	assert.Len(t, reports[0].Members, 8)

	// failures are not retried
	d.OnJoin(context.Background(), "G", newMember("G", 8), t0)
	assert.Len(t, mod.Calls(), 9)
}

func TestRaidDetector_BanPolicy(t *testing.T) {
	mod := &fakeModerator{}
	watcher := state.NewWatcherState(time.Minute)
	policy := Policy{MinUsersJoin: 2, Action: models.ActionTypeBan, Reason: "raid", BanDeleteDays: 7}
	d := NewRaidDetector(watcher, mod, policy)

	d.OnJoin(context.Background(), "G", newMember("G", 0), time.Now())
	d.OnJoin(context.Background(), "G", newMember("G", 1), time.Now())

	calls := mod.Calls()
	require.Len(t, calls, 2)
	for _, c := range calls {
		assert.Equal(t, models.ActionTypeBan, c.action)
		assert.Equal(t, 7, c.deleteDays)
		assert.Equal(t, "raid", c.reason)
	}
}

func TestRaidDetector_PerGuildIsolation(t *testing.T) {
	mod := &fakeModerator{}
	d, watcher := newDetector(mod)
	ctx := context.Background()
	t0 := time.Now()

	for i := 0; i < 7; i++ {
		d.OnJoin(ctx, "A", newMember("A", i), t0)
		d.OnJoin(ctx, "B", newMember("B", i), t0)
	}
	d.OnRemoval("B", "user-0")
	d.OnJoin(ctx, "A", newMember("A", 7), t0)

	calls := mod.Calls()
	require.Len(t, calls, 8)
	for _, c := range calls {
		assert.Equal(t, "A", c.member.GuildID)
	}
	assert.Len(t, records(watcher, "A"), 8)
	assert.Len(t, records(watcher, "B"), 6)
	for _, r := range records(watcher, "B") {
		assert.False(t, r.ActionTaken)
	}
}

func TestRaidDetector_DoesNotHoldLockDuringAction(t *testing.T) {
	watcher := state.NewWatcherState(time.Minute)
	mod := &fakeModerator{}
	mod.during = func(m models.Member) {
		done := make(chan struct{})
		go func() {
			watcher.WithGuildWindow(m.GuildID, func(*state.GuildWindow) {})
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Errorf("guild %s window locked while acting on %s", m.GuildID, m.UserID)
		}
	}
	d := NewRaidDetector(watcher, mod, Policy{MinUsersJoin: 2, Action: models.ActionTypeKick, Reason: "raid"})

	d.OnJoin(context.Background(), "G", newMember("G", 0), time.Now())
	d.OnJoin(context.Background(), "G", newMember("G", 1), time.Now())

	assert.Len(t, mod.Calls(), 2)
}

func TestRaidDetector_RemovalDuringActionKeepsRecord(t *testing.T) {
	watcher := state.NewWatcherState(time.Minute)
	mod := &fakeModerator{}
	d := NewRaidDetector(watcher, mod, Policy{MinUsersJoin: 2, Action: models.ActionTypeKick, Reason: "raid"})
	// the gateway reports the kick before the call returns
	mod.during = func(m models.Member) { d.OnRemoval(m.GuildID, m.UserID) }

	d.OnJoin(context.Background(), "G", newMember("G", 0), time.Now())
	d.OnJoin(context.Background(), "G", newMember("G", 1), time.Now())

	window := records(watcher, "G")
	require.Len(t, window, 2)
	for _, r := range window {
		assert.True(t, r.ActionTaken)
	}
}

func TestRaidDetector_ConcurrentJoinsActOnceEach(t *testing.T) {
	mod := &fakeModerator{}
	d, watcher := newDetector(mod)
	t0 := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d.OnJoin(context.Background(), "G", newMember("G", i), t0)
		}(i)
	}
	wg.Wait()

	calls := mod.Calls()
	seen := make(map[string]int)
	for _, c := range calls {
		seen[c.member.UserID]++
	}
	assert.Len(t, calls, 40)
	for user, n := range seen {
		assert.Equal(t, 1, n, user)
	}
	for _, r := range records(watcher, "G") {
		assert.True(t, r.ActionTaken)
	}
}

func TestNewRaidDetector_DefaultsThreshold(t *testing.T) {
	d := NewRaidDetector(state.NewWatcherState(0), &fakeModerator{}, Policy{})
	assert.Equal(t, DefaultMinUsersJoin, d.Policy().MinUsersJoin)
}
