package subscription

import "context"

type Repository interface {
	Create(ctx context.Context, s *Subscription) error
	ListActiveByMember(ctx context.Context, memberID int64) ([]Subscription, error)
}
