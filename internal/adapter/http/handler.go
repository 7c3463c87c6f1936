package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/neomorfeo/rsvp/internal/app"
	"github.com/neomorfeo/rsvp/internal/domain"
)

// ReservationResponse is the API representation of a reservation.
type ReservationResponse struct {
	ID         string    `json:"id" doc:"Unique identifier"`
	UserID     string    `json:"user_id" doc:"Who holds the reservation"`
	ResourceID string    `json:"resource_id" doc:"What is reserved"`
	Status     string    `json:"status" enum:"pending,confirmed,blocked" doc:"Lifecycle state"`
	Start      time.Time `json:"start" doc:"Window start (RFC 3339, exclusive)"`
	End        time.Time `json:"end" doc:"Window end (RFC 3339, exclusive)"`
	Note       string    `json:"note" doc:"Free-form note"`
}

func toReservationResponse(r domain.Reservation) ReservationResponse {
	window := r.Window.UTC()
	return ReservationResponse{
		ID:         r.ID.String(),
		UserID:     r.UserID,
		ResourceID: r.ResourceID,
		Status:     r.Status.String(),
		Start:      window.Start,
		End:        window.End,
		Note:       r.Note,
	}
}

// --- Reserve ---

type ReserveInput struct {
	Body struct {
		UserID     string    `json:"user_id" minLength:"1" maxLength:"64" doc:"Who holds the reservation"`
		ResourceID string    `json:"resource_id" minLength:"1" maxLength:"64" doc:"What is reserved"`
		Start      time.Time `json:"start" doc:"Window start (RFC 3339)"`
		End        time.Time `json:"end" doc:"Window end (RFC 3339)"`
		Status     string    `json:"status,omitempty" enum:"pending,confirmed,blocked" doc:"Initial status, pending when omitted"`
		Note       string    `json:"note,omitempty" doc:"Free-form note"`
	}
}

type ReservationOutput struct {
	Body ReservationResponse
}

// --- By ID ---

type ReservationIDInput struct {
	ID string `path:"id" doc:"Reservation ID (UUID)"`
}

// --- Update note ---

type UpdateNoteInput struct {
	ID   string `path:"id" doc:"Reservation ID (UUID)"`
	Body struct {
		Note string `json:"note" doc:"Replacement note"`
	}
}

// --- Query ---

type QueryInput struct {
	UserID     string `query:"user_id" required:"false" doc:"Filter by user"`
	ResourceID string `query:"resource_id" required:"false" doc:"Filter by resource"`
	Status     string `query:"status" required:"false" enum:"pending,confirmed,blocked" doc:"Filter by status"`
	Start      string `query:"start" required:"false" doc:"Lower bound of the window (RFC 3339)"`
	End        string `query:"end" required:"false" doc:"Upper bound of the window (RFC 3339)"`
	Page       int    `query:"page" required:"false" default:"1" minimum:"1" maximum:"2147483647" doc:"1-indexed page"`
	PageSize   int    `query:"page_size" required:"false" default:"10" minimum:"1" maximum:"100" doc:"Results per page"`
	Desc       bool   `query:"desc" required:"false" doc:"Order by window start descending"`
}

type QueryOutput struct {
	Body []ReservationResponse
}

// Register adds all reservation API routes to the Huma API.
func Register(api huma.API, mgr *app.ReservationManager) {
	huma.Register(api, huma.Operation{
		OperationID:   "reserve",
		Method:        http.MethodPost,
		Path:          "/api/v1/reservations",
		Summary:       "Reserve a resource for a time window",
		Tags:          []string{"Reservations"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *ReserveInput) (*ReservationOutput, error) {
		r := domain.NewReservation(input.Body.UserID, input.Body.ResourceID,
			input.Body.Start, input.Body.End, input.Body.Note)
		if input.Body.Status != "" {
			status, err := domain.ParseStatus(input.Body.Status)
			if err != nil {
				return nil, toHumaError(err)
			}
			r.Status = status
		}

		created, err := mgr.Reserve(ctx, r)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ReservationOutput{Body: toReservationResponse(created)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-reservation",
		Method:      http.MethodGet,
		Path:        "/api/v1/reservations/{id}",
		Summary:     "Get a reservation by ID",
		Tags:        []string{"Reservations"},
	}, func(ctx context.Context, input *ReservationIDInput) (*ReservationOutput, error) {
		id, err := parseID(input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		r, err := mgr.Get(ctx, id)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ReservationOutput{Body: toReservationResponse(r)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "confirm-reservation",
		Method:      http.MethodPost,
		Path:        "/api/v1/reservations/{id}/confirm",
		Summary:     "Confirm a pending reservation",
		Tags:        []string{"Reservations"},
	}, func(ctx context.Context, input *ReservationIDInput) (*ReservationOutput, error) {
		id, err := parseID(input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		r, err := mgr.ChangeStatus(ctx, id)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ReservationOutput{Body: toReservationResponse(r)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-reservation-note",
		Method:      http.MethodPatch,
		Path:        "/api/v1/reservations/{id}/note",
		Summary:     "Replace the note of a reservation",
		Tags:        []string{"Reservations"},
	}, func(ctx context.Context, input *UpdateNoteInput) (*ReservationOutput, error) {
		id, err := parseID(input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		r, err := mgr.UpdateNote(ctx, id, input.Body.Note)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ReservationOutput{Body: toReservationResponse(r)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-reservation",
		Method:      http.MethodDelete,
		Path:        "/api/v1/reservations/{id}",
		Summary:     "Delete a reservation and return it",
		Tags:        []string{"Reservations"},
	}, func(ctx context.Context, input *ReservationIDInput) (*ReservationOutput, error) {
		id, err := parseID(input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		r, err := mgr.Delete(ctx, id)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ReservationOutput{Body: toReservationResponse(r)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "query-reservations",
		Method:      http.MethodGet,
		Path:        "/api/v1/reservations",
		Summary:     "Query reservations",
		Tags:        []string{"Reservations"},
	}, func(ctx context.Context, input *QueryInput) (*QueryOutput, error) {
		filter, err := toQueryFilter(input)
		if err != nil {
			return nil, toHumaError(err)
		}

		reservations, err := mgr.Query(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]ReservationResponse, len(reservations))
		for i, r := range reservations {
			resp[i] = toReservationResponse(r)
		}
		return &QueryOutput{Body: resp}, nil
	})
}

func toQueryFilter(input *QueryInput) (domain.QueryFilter, error) {
	b := domain.NewQueryBuilder().
		UserID(input.UserID).
		ResourceID(input.ResourceID).
		Page(input.Page).
		PageSize(input.PageSize).
		Desc(input.Desc)

	if input.Status != "" {
		status, err := domain.ParseStatus(input.Status)
		if err != nil {
			return domain.QueryFilter{}, err
		}
		b = b.Status(status)
	}
	if input.Start != "" {
		start, err := parseTime(input.Start)
		if err != nil {
			return domain.QueryFilter{}, err
		}
		b = b.Start(start)
	}
	if input.End != "" {
		end, err := parseTime(input.End)
		if err != nil {
			return domain.QueryFilter{}, err
		}
		b = b.End(end)
	}

	return b.Build()
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidReservationID
	}
	return id, nil
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, domain.ErrInvalidTimespan
	}
	return t, nil
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound("reservation not found")
	case errors.Is(err, domain.ErrInvalidReservationID),
		errors.Is(err, domain.ErrInvalidTimespan),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidResourceID),
		errors.Is(err, domain.ErrInvalidUserID):
		return huma.Error400BadRequest(err.Error())
	}

	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		return huma.Error409Conflict(conflict.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(trErr.Error())
	}

	var storageErr *domain.StorageError
	if errors.As(err, &storageErr) {
		if storageErr.Timeout {
			return huma.Error504GatewayTimeout("storage timed out")
		}
		return huma.Error503ServiceUnavailable("storage unavailable")
	}

	return huma.Error500InternalServerError("internal server error")
}
