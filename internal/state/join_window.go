package state

import (
	"time"

	"go-raidguard/internal/models"
)

const DefaultJoinWindow = 30 * time.Second

// JoinRecord captures the moment a member joined a guild. ActionTaken only
// ever goes from false to true.
type JoinRecord struct {
	Seq         uint64
	OccurredAt  time.Time
	Member      models.Member
	ActionTaken bool

	// set while a kick/ban for this record is in flight
	claimed bool
}

// GuildWindow holds the joins of one guild that are still inside the search
// duration, in arrival order. It is only reachable through
// WatcherState.WithGuildWindow.
type GuildWindow struct {
	GuildID string

	duration time.Duration
	records  []*JoinRecord
	nextSeq  uint64
}

func newGuildWindow(guildID string, duration time.Duration) *GuildWindow {
	if duration <= 0 {
		duration = DefaultJoinWindow
	}
	return &GuildWindow{
		GuildID:  guildID,
		duration: duration,
		records:  make([]*JoinRecord, 0, 16),
	}
}

// RecordJoin appends a join at now, drops every record older than the window
// and returns how many joins are left.
func (w *GuildWindow) RecordJoin(member models.Member, now time.Time) int {
	w.nextSeq++
	w.records = append(w.records, &JoinRecord{
		Seq:        w.nextSeq,
		OccurredAt: now,
		Member:     member,
	})
	w.evict(now)
	return len(w.records)
}

func (w *GuildWindow) evict(now time.Time) {
	kept := w.records[:0]
	for _, r := range w.records {
		if now.Sub(r.OccurredAt) <= w.duration {
			kept = append(kept, r)
		}
	}
	for i := len(kept); i < len(w.records); i++ {
		w.records[i] = nil
	}
	w.records = kept
}

// ReconcileRemoval forgets every join of userID the detector has not acted on.
// Records already kicked or banned by the detector, or with an action in
// flight, stay until they age out.
func (w *GuildWindow) ReconcileRemoval(userID string) int {
	kept := w.records[:0]
	removed := 0
	for _, r := range w.records {
		if r.ActionTaken || r.claimed || r.Member.UserID != userID {
			kept = append(kept, r)
			continue
		}
		removed++
	}
	for i := len(kept); i < len(w.records); i++ {
		w.records[i] = nil
	}
	w.records = kept
	return removed
}

// PendingActionable returns copies of all records without an action, oldest first.
func (w *GuildWindow) PendingActionable() []JoinRecord {
	pending := make([]JoinRecord, 0, len(w.records))
	for _, r := range w.records {
		if !r.ActionTaken {
			pending = append(pending, *r)
		}
	}
	return pending
}

// ClaimPending is PendingActionable restricted to records no other trigger
// pass is already handling. The returned records are claimed until
// MarkProcessed is called for them.
func (w *GuildWindow) ClaimPending() []JoinRecord {
	pending := make([]JoinRecord, 0, len(w.records))
	for _, r := range w.records {
		if r.ActionTaken || r.claimed {
			continue
		}
		r.claimed = true
		pending = append(pending, *r)
	}
	return pending
}

// MarkProcessed flags the record with the given sequence number as acted on.
// It reports false when the record is no longer in the window.
func (w *GuildWindow) MarkProcessed(seq uint64) bool {
	for _, r := range w.records {
		if r.Seq == seq {
			r.ActionTaken = true
			r.claimed = false
			return true
		}
	}
	return false
}

func (w *GuildWindow) Len() int {
	return len(w.records)
}

// Records returns a snapshot of the window.
func (w *GuildWindow) Records() []JoinRecord {
	out := make([]JoinRecord, len(w.records))
	for i, r := range w.records {
		out[i] = *r
	}
	return out
}
