package service

import (
	"spotbook/internal/domain"
	"spotbook/internal/interval"
	"spotbook/internal/models"
)

// Authorizer gates every booking lifecycle transition on actor identity and
// the booking's temporal phase. It holds no state beyond the clock.
type Authorizer struct {
	clock          domain.Clock
	maxAdvanceDays int
}

func NewAuthorizer(clock domain.Clock, maxAdvanceDays int) *Authorizer {
	if maxAdvanceDays <= 0 {
		maxAdvanceDays = models.DefaultMaxAdvanceDays
	}
	return &Authorizer{clock: clock, maxAdvanceDays: maxAdvanceDays}
}

// ValidateInterval checks a candidate interval for creation or modification:
// well-formed, starting strictly after now, and within the booking horizon.
func (a *Authorizer) ValidateInterval(iv interval.Interval) error {
	if err := iv.Validate(); err != nil {
		return domain.ErrInvalidInterval
	}

	now := a.clock.Now()
	if !iv.Start.After(now) {
		return domain.ErrInvalidInterval
	}
	if iv.Start.After(now.AddDate(0, 0, a.maxAdvanceDays)) {
		return domain.ErrInvalidInterval
	}
	return nil
}

// AuthorizeCreate rejects owners booking their own resource. The interval is
// validated separately so callers can distinguish the two failures.
func (a *Authorizer) AuthorizeCreate(actorID, ownerID int64) error {
	if actorID == ownerID {
		return domain.ErrForbidden
	}
	return nil
}

// AuthorizeModify permits date changes only by the requester and only while
// the booking is still in the future.
func (a *Authorizer) AuthorizeModify(actorID int64, booking *models.Booking) error {
	if booking.RequesterID != actorID {
		return domain.ErrForbidden
	}
	return a.requireFuture(booking)
}

// AuthorizeCancel permits cancellation by the requester or the resource owner
// while the booking has not started.
func (a *Authorizer) AuthorizeCancel(actorID, ownerID int64, booking *models.Booking) error {
	if booking.RequesterID != actorID && ownerID != actorID {
		return domain.ErrForbidden
	}
	return a.requireFuture(booking)
}

// requireFuture maps Ongoing and Past phases to ErrImmutableState: a stay
// that has begun is a fact, not a record to edit.
func (a *Authorizer) requireFuture(booking *models.Booking) error {
	iv := interval.Interval{Start: booking.StartDate, End: booking.EndDate}
	if iv.PhaseAt(a.clock.Now()) != interval.PhaseFuture {
		return domain.ErrImmutableState
	}
	return nil
}

// Phase exposes the booking's temporal phase at the authorizer's clock.
func (a *Authorizer) Phase(booking *models.Booking) interval.Phase {
	iv := interval.Interval{Start: booking.StartDate, End: booking.EndDate}
	return iv.PhaseAt(a.clock.Now())
}
