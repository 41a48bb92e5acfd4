package service

import (
	"context"
	"errors"

	"spotbook/internal/domain"
	"spotbook/internal/events"
	"spotbook/internal/interval"
	"spotbook/internal/metrics"
	"spotbook/internal/models"

	"github.com/rs/zerolog"
)

// BookingService orchestrates the booking lifecycle: authorization, the
// conflict pre-check, and the store's atomic check-and-write.
type BookingService struct {
	repo       domain.Repository
	catalog    domain.ResourceCatalog
	authorizer *Authorizer
	eventBus   domain.EventPublisher
	logger     *zerolog.Logger
}

func NewBookingService(repo domain.Repository, catalog domain.ResourceCatalog, authorizer *Authorizer, eventBus domain.EventPublisher, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		repo:       repo,
		catalog:    catalog,
		authorizer: authorizer,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// CreateBooking books the resource for the actor over the interval. The
// pre-check keeps obviously conflicting requests away from the store; the
// store repeats the check inside its transaction, and both stages surface the
// same ErrConflict.
func (s *BookingService) CreateBooking(ctx context.Context, actorID, resourceID int64, iv interval.Interval) (*models.Booking, error) {
	ownerID, err := s.catalog.GetResourceOwner(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizer.AuthorizeCreate(actorID, ownerID); err != nil {
		return nil, err
	}
	if err := s.authorizer.ValidateInterval(iv); err != nil {
		return nil, err
	}

	conflicts, err := s.repo.FindConflicts(ctx, resourceID, iv, 0)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		metrics.IncConflict("precheck")
		return nil, domain.ErrConflict
	}

	booking := &models.Booking{
		ResourceID:  resourceID,
		RequesterID: actorID,
		StartDate:   iv.Start,
		EndDate:     iv.End,
	}
	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			metrics.IncConflict("store")
		}
		return nil, err
	}

	metrics.IncBookingOp("create")
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("resource_id", resourceID).
		Int64("requester_id", actorID).
		Str("start", iv.Start.Format(models.DateLayout)).
		Str("end", iv.End.Format(models.DateLayout)).
		Msg("booking created")

	s.publishEvent(events.EventBookingCreated, booking, actorID)
	return booking, nil
}

// ModifyBooking moves an existing booking to a new interval. Only the
// requester may do so, only while the booking is still in the future, and the
// new interval must not collide with any other active booking.
func (s *BookingService) ModifyBooking(ctx context.Context, actorID, bookingID int64, iv interval.Interval) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.Active() {
		return nil, domain.ErrNotFound
	}

	if err := s.authorizer.AuthorizeModify(actorID, booking); err != nil {
		return nil, err
	}
	if err := s.authorizer.ValidateInterval(iv); err != nil {
		return nil, err
	}

	conflicts, err := s.repo.FindConflicts(ctx, booking.ResourceID, iv, bookingID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		metrics.IncConflict("precheck")
		return nil, domain.ErrConflict
	}

	updated, err := s.repo.UpdateBookingDates(ctx, bookingID, booking.Version, iv)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			metrics.IncConflict("store")
		}
		return nil, err
	}

	metrics.IncBookingOp("modify")
	s.logger.Info().
		Int64("booking_id", bookingID).
		Str("start", iv.Start.Format(models.DateLayout)).
		Str("end", iv.End.Format(models.DateLayout)).
		Msg("booking dates changed")

	s.publishEvent(events.EventBookingModified, updated, actorID)
	return updated, nil
}

// CancelBooking releases the interval. Allowed for the requester or the
// resource owner, and only before the stay begins.
func (s *BookingService) CancelBooking(ctx context.Context, actorID, bookingID int64) error {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if !booking.Active() {
		return domain.ErrNotFound
	}

	ownerID, err := s.catalog.GetResourceOwner(ctx, booking.ResourceID)
	if err != nil {
		return err
	}

	if err := s.authorizer.AuthorizeCancel(actorID, ownerID, booking); err != nil {
		return err
	}

	if err := s.repo.CancelBooking(ctx, bookingID); err != nil {
		return err
	}

	metrics.IncBookingOp("cancel")
	s.logger.Info().
		Int64("booking_id", bookingID).
		Int64("actor_id", actorID).
		Msg("booking cancelled")

	booking.Status = models.StatusCancelled
	s.publishEvent(events.EventBookingCancelled, booking, actorID)
	return nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *BookingService) ListBookingsByResource(ctx context.Context, resourceID int64) ([]*models.Booking, error) {
	return s.repo.ListBookingsByResource(ctx, resourceID)
}

func (s *BookingService) ListBookingsByRequester(ctx context.Context, requesterID int64) ([]*models.Booking, error) {
	return s.repo.ListBookingsByRequester(ctx, requesterID)
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, actorID int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:   booking.ID,
		ResourceID:  booking.ResourceID,
		RequesterID: booking.RequesterID,
		StartDate:   booking.StartDate,
		EndDate:     booking.EndDate,
		Status:      booking.Status,
		ActorID:     actorID,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}
