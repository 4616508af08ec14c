package service

import (
	"context"
	"fmt"
	"time"

	"github.com/htc101524/BoardGameMondays-sub002/events"
	"github.com/htc101524/BoardGameMondays-sub002/models"
)

type lifecycleService struct {
	uowFactory UnitOfWorkFactory
	wallet     Wallet
	startCoins int64
}

// NewLifecycleService creates a new lifecycle service. New members checked in
// for the first time receive startCoins via the wallet.
func NewLifecycleService(uowFactory UnitOfWorkFactory, wallet Wallet, startCoins int64) LifecycleService {
	return &lifecycleService{
		uowFactory: uowFactory,
		wallet:     wallet,
		startCoins: startCoins,
	}
}

// CreateNight creates a game night for a calendar date
func (s *lifecycleService) CreateNight(ctx context.Context, date time.Time) (*models.GameNight, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	night, err := uow.GameNightRepository().Create(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to create game night: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return night, nil
}

// StartNight flips the night to started, locking attendees out of betting
func (s *lifecycleService) StartNight(ctx context.Context, nightID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	started, err := uow.GameNightRepository().MarkStarted(ctx, nightID)
	if err != nil {
		return fmt.Errorf("failed to start night: %w", err)
	}
	if !started {
		// Already started, nothing to announce
		return nil
	}

	attendees, err := uow.GameNightRepository().CountAttendees(ctx, nightID)
	if err != nil {
		return fmt.Errorf("failed to count attendees: %w", err)
	}

	uow.EventBus().Publish(events.NightStartedEvent{
		GameNightID: nightID,
		Attendees:   attendees,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CheckIn registers a member as an attendee of a night
func (s *lifecycleService) CheckIn(ctx context.Context, nightID, memberID int64) (*models.Attendee, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	night, err := uow.GameNightRepository().GetByID(ctx, nightID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game night: %w", err)
	}
	if night == nil {
		return nil, fmt.Errorf("game night %d not found", nightID)
	}

	member, err := uow.MemberRepository().GetByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if member == nil {
		return nil, fmt.Errorf("member %d not found", memberID)
	}

	attendee, err := uow.GameNightRepository().CheckIn(ctx, nightID, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to check in member %d: %w", memberID, err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Seed the wallet once per member; the idempotency key makes replays no-ops
	if s.startCoins > 0 {
		key := fmt.Sprintf("grubstake:%d", memberID)
		if err := s.wallet.Credit(ctx, memberID, s.startCoins, key); err != nil {
			return nil, fmt.Errorf("failed to seed wallet for member %d: %w", memberID, err)
		}
	}

	return attendee, nil
}

// CanMemberBet reports whether the night's lifecycle allows the member to bet
// on its sessions. Attendees of a started night are locked out; everyone else
// is free to bet.
func (s *lifecycleService) CanMemberBet(ctx context.Context, nightID, memberID int64) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	allowed, err := canMemberBet(ctx, uow, nightID, memberID)
	if err != nil {
		return false, err
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return allowed, nil
}

// canMemberBet is the lifecycle gate shared with bet placement, which runs it
// inside its own unit of work.
func canMemberBet(ctx context.Context, uow UnitOfWork, nightID, memberID int64) (bool, error) {
	night, err := uow.GameNightRepository().GetByID(ctx, nightID)
	if err != nil {
		return false, fmt.Errorf("failed to get game night: %w", err)
	}
	if night == nil {
		return false, fmt.Errorf("game night %d not found", nightID)
	}

	if !night.HasStarted {
		return true, nil
	}

	attendee, err := uow.GameNightRepository().IsAttendee(ctx, nightID, memberID)
	if err != nil {
		return false, fmt.Errorf("failed to check attendance: %w", err)
	}

	return !attendee, nil
}
