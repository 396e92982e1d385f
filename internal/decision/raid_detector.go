package decision

import (
	"context"
	"time"

	"go-raidguard/internal/dispatcher"
	"go-raidguard/internal/logging"
	"go-raidguard/internal/metrics"
	"go-raidguard/internal/models"
	"go-raidguard/internal/state"
)

const (
	DefaultMinUsersJoin = 8
	DefaultReason       = "Suspected bot; performing raid defense"
)

// Policy decides when a guild counts as raided and what happens to the
// accounts that joined during the raid.
type Policy struct {
	// MinUsersJoin is the number of joins inside the window that triggers action.
	MinUsersJoin  int
	Action        models.ActionType
	Reason        string
	BanDeleteDays int
}

func DefaultPolicy() Policy {
	return Policy{
		MinUsersJoin:  DefaultMinUsersJoin,
		Action:        models.ActionTypeKick,
		Reason:        DefaultReason,
		BanDeleteDays: 7,
	}
}

// RaidReport describes one completed action pass over a guild window.
type RaidReport struct {
	GuildID   string
	Action    models.ActionType
	LiveJoins int
	Actioned  int
	Failed    int
	Members   []models.Member
}

// RaidDetector feeds member events into the per-guild join windows and kicks
// or bans every pending join once a window reaches the threshold.
type RaidDetector struct {
	watcher   *state.WatcherState
	moderator dispatcher.Moderator
	policy    Policy
	onRaid    func(RaidReport)
}

func NewRaidDetector(watcher *state.WatcherState, moderator dispatcher.Moderator, policy Policy) *RaidDetector {
	if policy.MinUsersJoin < 1 {
		policy.MinUsersJoin = DefaultMinUsersJoin
	}
	return &RaidDetector{
		watcher:   watcher,
		moderator: moderator,
		policy:    policy,
	}
}

// SetRaidHandler registers fn to run after every action pass that touched at
// least one member. fn runs on the event goroutine with no lock held.
func (d *RaidDetector) SetRaidHandler(fn func(RaidReport)) {
	d.onRaid = fn
}

func (d *RaidDetector) Policy() Policy {
	return d.policy
}

// OnJoin records a join and, when the guild's window has reached the
// threshold, acts on every join the detector has not handled yet. The
// guild's window is never locked while a kick or ban is in flight.
func (d *RaidDetector) OnJoin(ctx context.Context, guildID string, member models.Member, now time.Time) {
	var count int
	d.watcher.WithGuildWindow(guildID, func(w *state.GuildWindow) {
		count = w.RecordJoin(member, now)
	})

	metrics.JoinsObserved.Inc()
	metrics.WindowSize.WithLabelValues(guildID).Set(float64(count))
	metrics.GuildsTracked.Set(float64(d.watcher.GuildCount()))
	logging.Info("%d users have joined guild %s within the search duration", count, guildID)

	if count < d.policy.MinUsersJoin {
		return
	}

	logging.Info("Stopping a raid in guild %s", guildID)
	metrics.RaidsTriggered.Inc()

	var pending []state.JoinRecord
	d.watcher.WithGuildWindow(guildID, func(w *state.GuildWindow) {
		pending = w.ClaimPending()
	})

	report := RaidReport{
		GuildID:   guildID,
		Action:    d.policy.Action,
		LiveJoins: count,
	}

	for _, record := range pending {
		if err := d.issue(ctx, record.Member); err != nil {
			logging.Warn("%s of %s in guild %s failed: %v", d.policy.Action, record.Member, guildID, err)
			report.Failed++
		} else {
			logging.Info("%s %s", d.policy.Action, record.Member)
		}
		report.Actioned++
		report.Members = append(report.Members, record.Member)

		seq := record.Seq
		d.watcher.WithGuildWindow(guildID, func(w *state.GuildWindow) {
			w.MarkProcessed(seq)
		})
	}

	if report.Actioned > 0 && d.onRaid != nil {
		d.onRaid(report)
	}
}

func (d *RaidDetector) issue(ctx context.Context, member models.Member) error {
	start := time.Now()
	var err error
	switch d.policy.Action {
	case models.ActionTypeBan:
		err = d.moderator.Ban(ctx, member, d.policy.BanDeleteDays, d.policy.Reason)
	default:
		err = d.moderator.Kick(ctx, member, d.policy.Reason)
	}
	metrics.RecordAction(d.policy.Action.String(), err, time.Since(start).Seconds())
	return err
}

// OnRemoval drops the pending joins of a member who left, or was removed by
// someone other than the detector, before any action was taken.
func (d *RaidDetector) OnRemoval(guildID, userID string) {
	var removed int
	d.watcher.WithGuildWindow(guildID, func(w *state.GuildWindow) {
		removed = w.ReconcileRemoval(userID)
	})

	if removed > 0 {
		metrics.RemovalsReconciled.Add(float64(removed))
		logging.Debug("Dropped %d pending joins of %s in guild %s", removed, userID, guildID)
	}
}
