package app

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/neomorfeo/rsvp/internal/domain"
)

// reservationFields mirrors the identifier columns of the store.
type reservationFields struct {
	UserID     string `validate:"required,max=64"`
	ResourceID string `validate:"required,max=64"`
}

var fieldErrors = map[string]error{
	"UserID":     domain.ErrInvalidUserID,
	"ResourceID": domain.ErrInvalidResourceID,
}

func (m *ReservationManager) validateReservation(r domain.Reservation) error {
	if err := domain.WindowFromReservation(r).Validate(); err != nil {
		return err
	}

	err := m.validate.Struct(reservationFields{UserID: r.UserID, ResourceID: r.ResourceID})
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			if target, ok := fieldErrors[verrs[0].Field()]; ok {
				return fmt.Errorf("%s failed %q: %w", verrs[0].Field(), verrs[0].Tag(), target)
			}
		}
		return fmt.Errorf("validating reservation: %w", err)
	}

	if _, err := domain.StatusFromRaw(int32(r.Status)); err != nil {
		return err
	}
	return nil
}

func validateID(id uuid.UUID) error {
	if id == uuid.Nil {
		return domain.ErrInvalidReservationID
	}
	return nil
}
