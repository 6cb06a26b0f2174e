package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prohmpiriya/eventhub/internal/clock"
	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/internal/repository"
	"github.com/prohmpiriya/eventhub/pkg/logger"
	"github.com/prohmpiriya/eventhub/pkg/retry"
	"github.com/prohmpiriya/eventhub/pkg/telemetry"
)

const defaultBookingTimeout = 5 * time.Second

// BookingConfig bounds the coordinator's retries
type BookingConfig struct {
	// Retry controls backoff between attempts. RetryIf is replaced: only conflicts retry.
	Retry *retry.Config
	// Timeout caps the whole booking including retries
	Timeout time.Duration
}

// bookingCoordinator implements BookingCoordinator
type bookingCoordinator struct {
	tx       repository.TxManager
	events   repository.EventRepository
	tiers    repository.TicketTierRepository
	checkins repository.CheckinRepository
	users    repository.UserRepository
	notifier *Notifier
	clock    clock.Clock
	retrier  *retry.Retrier
	timeout  time.Duration
	log      *logger.Logger
}

// NewBookingCoordinator creates a new BookingCoordinator
func NewBookingCoordinator(repos *repository.Repositories, notifier *Notifier, clk clock.Clock, cfg BookingConfig) BookingCoordinator {
	retryCfg := retry.DefaultConfig()
	if cfg.Retry != nil {
		c := *cfg.Retry
		retryCfg = &c
	}
	retryCfg.RetryIf = domain.IsConflictError
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultBookingTimeout
	}
	return &bookingCoordinator{
		tx:       repos.Tx,
		events:   repos.Events,
		tiers:    repos.Tiers,
		checkins: repos.Checkins,
		users:    repos.Users,
		notifier: notifier,
		clock:    clk,
		retrier:  retry.New(retryCfg),
		timeout:  cfg.Timeout,
		log:      logger.Get().With(zap.String("component", "booking")),
	}
}

// Book sells one ticket of the requested tier and records the user's checkin in a single
// transaction. Transient conflicts are retried; everything else is returned as is.
func (s *bookingCoordinator) Book(ctx context.Context, req *domain.BookingRequest) (_ *domain.BookingResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "booking.book")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Method == "" {
		req.Method = domain.CheckinMobileApp
	}
	if _, err := s.users.GetByID(ctx, req.UserID); err != nil {
		if domain.IsNotFoundError(err) {
			return nil, domain.NewValidationError("userId", "user %s does not exist", req.UserID)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var result *domain.BookingResult
	var checkin *domain.Checkin
	res := s.retrier.DoWithCallback(attemptCtx, func(ctx context.Context) error {
		r, c, err := s.attempt(ctx, req)
		if err != nil {
			if domain.IsConflictError(err) {
				return err
			}
			return retry.Permanent(err)
		}
		result, checkin = r, c
		return nil
	}, func(attempt int, err error, next time.Duration) {
		s.log.Debug("booking conflict, retrying",
			zap.String("event_id", req.EventID),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", next),
			zap.Error(err),
		)
	})

	if res.Err != nil {
		return nil, s.finalError(ctx, res)
	}

	result.Attempts = res.Attempts
	notifyCheckin(ctx, s.notifier, checkin, map[string]interface{}{
		"price":     result.Price,
		"available": result.Available,
		"sold":      result.Sold,
	})
	return result, nil
}

// attempt runs one transactional pass of the booking state machine
func (s *bookingCoordinator) attempt(ctx context.Context, req *domain.BookingRequest) (*domain.BookingResult, *domain.Checkin, error) {
	state := domain.NewBookingAttempt()
	now := s.clock.Now()
	var result *domain.BookingResult
	var checkin *domain.Checkin

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.events.GetByID(ctx, req.EventID)
		if err != nil {
			return err
		}
		if event.Status != domain.EventStatusPublished {
			return domain.NewValidationError("eventId", "event is %s and not open for booking", event.Status)
		}

		tier, err := s.tiers.GetForUpdate(ctx, req.EventID, req.Tier)
		if err != nil {
			if domain.IsNotFoundError(err) {
				return domain.NewValidationError("tier", "event has no tier named %q", req.Tier)
			}
			return err
		}
		if tier.Available <= 0 {
			return &domain.SoldOutError{EventID: req.EventID, Tier: req.Tier}
		}
		if err := state.Advance(domain.BookingCapacityChecked); err != nil {
			return err
		}

		reserved, err := s.tiers.Reserve(ctx, tier.ID)
		if err != nil {
			return soldOutAs(err, req.EventID, req.Tier)
		}
		if err := s.events.ApplyTicketSale(ctx, req.EventID, tier.Price, now); err != nil {
			return soldOutAs(err, req.EventID, "")
		}
		if err := state.Advance(domain.BookingReserved); err != nil {
			return err
		}

		checkin = &domain.Checkin{
			ID:          uuid.NewString(),
			EventID:     req.EventID,
			UserID:      req.UserID,
			VenueID:     event.VenueID,
			CheckInTime: now,
			Method:      req.Method,
			TicketTier:  tier.Name,
			Metadata:    req.Metadata,
			CreatedAt:   now,
		}
		if err := s.checkins.Create(ctx, checkin); err != nil {
			return err
		}
		if err := state.Advance(domain.BookingCheckinRecorded); err != nil {
			return err
		}

		result = &domain.BookingResult{
			CheckinID: checkin.ID,
			EventID:   req.EventID,
			UserID:    req.UserID,
			Tier:      tier.Name,
			Price:     tier.Price,
			Available: reserved.Available,
			Sold:      reserved.Sold,
			BookedAt:  now,
		}
		return nil
	})
	if err != nil {
		state.Abort(err)
		return nil, nil, err
	}
	if err := state.Advance(domain.BookingCommitted); err != nil {
		return nil, nil, err
	}
	return result, checkin, nil
}

// finalError turns retry exhaustion and the attempt deadline into ConflictError.
// Cancellation by the caller is returned unchanged.
func (s *bookingCoordinator) finalError(ctx context.Context, res *retry.Result) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	switch {
	case errors.Is(res.Err, retry.ErrMaxRetriesExceeded),
		errors.Is(res.Err, retry.ErrContextCanceled),
		errors.Is(res.Err, context.DeadlineExceeded):
		s.log.Warn("booking gave up after conflicts", zap.Int("attempts", res.Attempts), zap.Error(res.LastError))
		return &domain.ConflictError{Op: "booking", Err: res.LastError}
	}
	return res.Err
}

// soldOutAs names the event and tier on a SoldOutError raised by a repository.
// An empty tier reports the event itself as full.
func soldOutAs(err error, eventID, tier string) error {
	if domain.IsSoldOutError(err) {
		return &domain.SoldOutError{EventID: eventID, Tier: tier}
	}
	return err
}
