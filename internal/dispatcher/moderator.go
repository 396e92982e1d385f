package dispatcher

import (
	"context"

	"go-raidguard/internal/models"
)

// Moderator performs the punitive actions of the raid detector. Calls are
// network round trips and may fail; callers treat failure as final.
type Moderator interface {
	Kick(ctx context.Context, member models.Member, reason string) error
	Ban(ctx context.Context, member models.Member, deleteDays int, reason string) error
}
