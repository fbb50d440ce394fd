package redis

import (
	"context"
	"fmt"

	"lodge-ops/internal/attendance"
)

const reviewedKey = "attendance:reviewed"

// MarkReviewed suppresses frequency alerts for the member until UnmarkReviewed.
func (r *Redis) MarkReviewed(ctx context.Context, memberID string) error {
	if err := r.Client.SAdd(ctx, reviewedKey, memberID).Err(); err != nil {
		return fmt.Errorf("mark %s reviewed: %w", memberID, err)
	}
	r.Logger.Info("REDIS", fmt.Sprintf("Member %s marked as reviewed", memberID))
	return nil
}

func (r *Redis) UnmarkReviewed(ctx context.Context, memberID string) error {
	if err := r.Client.SRem(ctx, reviewedKey, memberID).Err(); err != nil {
		return fmt.Errorf("unmark %s reviewed: %w", memberID, err)
	}
	r.Logger.Info("REDIS", fmt.Sprintf("Member %s review cleared", memberID))
	return nil
}

func (r *Redis) Reviewed(ctx context.Context) (attendance.ReviewSet, error) {
	ids, err := r.Client.SMembers(ctx, reviewedKey).Result()
	if err != nil {
		return nil, fmt.Errorf("load reviewed members: %w", err)
	}
	return attendance.NewReviewSet(ids...), nil
}
