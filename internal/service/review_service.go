package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/prohmpiriya/eventhub/internal/clock"
	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/internal/dto"
	"github.com/prohmpiriya/eventhub/internal/repository"
)

// reviewService implements ReviewService
type reviewService struct {
	reviews  repository.ReviewRepository
	events   repository.EventRepository
	venues   repository.VenueRepository
	users    repository.UserRepository
	notifier *Notifier
	clock    clock.Clock
}

// NewReviewService creates a new ReviewService
func NewReviewService(repos *repository.Repositories, notifier *Notifier, clk clock.Clock) ReviewService {
	return &reviewService{
		reviews:  repos.Reviews,
		events:   repos.Events,
		venues:   repos.Venues,
		users:    repos.Users,
		notifier: notifier,
		clock:    clk,
	}
}

// CreateReview stores a review of an existing event or venue and refreshes the target's rating
func (s *reviewService) CreateReview(ctx context.Context, req *dto.CreateReviewRequest) (*domain.Review, error) {
	now := s.clock.Now()
	review := req.ToReview()
	review.ID = uuid.NewString()
	review.CreatedAt = now
	review.UpdatedAt = now

	if err := review.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, review); err != nil {
		return nil, err
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}

	s.changed(ctx, review, "created")
	return review, nil
}

func (s *reviewService) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	return s.reviews.GetByID(ctx, id)
}

// UpdateReview changes the rating or comment. The target cannot change.
func (s *reviewService) UpdateReview(ctx context.Context, id string, req *dto.UpdateReviewRequest) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := review.Rating
	req.Apply(review)
	review.UpdatedAt = s.clock.Now()
	if err := review.Validate(); err != nil {
		return nil, err
	}
	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, err
	}

	if review.Rating != previous {
		s.changed(ctx, review, "updated")
	}
	return review, nil
}

func (s *reviewService) DeleteReview(ctx context.Context, id string) error {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.reviews.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, review, "deleted")
	return nil
}

func (s *reviewService) ListReviews(ctx context.Context, target domain.ReviewTarget, targetID string, params *dto.ListParams) (*domain.Page[*domain.Review], error) {
	after, limit, err := params.Page()
	if err != nil {
		return nil, err
	}
	if err := s.checkTarget(ctx, target, targetID); err != nil {
		return nil, err
	}
	rows, err := s.reviews.ListByTarget(ctx, target, targetID, after, limit)
	if err != nil {
		return nil, err
	}
	page := domain.PageOf(rows, limit, domain.SortByCreated)
	return &page, nil
}

// checkReferences rejects reviews naming a missing author or target
func (s *reviewService) checkReferences(ctx context.Context, review *domain.Review) error {
	if _, err := s.users.GetByID(ctx, review.UserID); err != nil {
		if domain.IsNotFoundError(err) {
			return domain.NewValidationError("userId", "user %s does not exist", review.UserID)
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	target, id := review.Target()
	if err := s.checkTarget(ctx, target, id); err != nil {
		if domain.IsNotFoundError(err) {
			return domain.NewValidationError(string(target)+"Id", "%s %s does not exist", target, id)
		}
		return err
	}
	return nil
}

func (s *reviewService) checkTarget(ctx context.Context, target domain.ReviewTarget, id string) error {
	var err error
	if target == domain.ReviewTargetVenue {
		_, err = s.venues.GetByID(ctx, id)
	} else {
		_, err = s.events.GetByID(ctx, id)
	}
	return err
}

func (s *reviewService) changed(ctx context.Context, review *domain.Review, action string) {
	target, id := review.Target()
	s.notifier.Stats(ctx, domain.ReviewStatsJob(review))
	s.notifier.Publish(ctx, domain.NewDomainEvent(domain.ReviewChanged, id, review.UpdatedAt, map[string]interface{}{
		"reviewId": review.ID,
		"target":   target,
		"action":   action,
		"rating":   review.Rating,
	}))
}
