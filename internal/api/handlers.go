package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/herbalhaven/booking-core/internal/model"
	"github.com/herbalhaven/booking-core/internal/schedule"
)

type createSlotRequest struct {
	ConsultantID int64     `json:"consultant_id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
}

type transitionRequest struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (s *Server) createSlot(c echo.Context) error {
	caller := callerIdentity(c)
	if caller.Role != RoleConsultant {
		return c.JSON(http.StatusForbidden, errorResponse{Error: "only consultants may manage slots"})
	}

	var req createSlotRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	slot, err := s.availability.CreateSlot(c.Request().Context(), caller.ID, req.ConsultantID, req.StartTime, req.EndTime)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, slot)
}

func (s *Server) listSlots(c echo.Context) error {
	consultantID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid consultant id"})
	}

	filter := model.SlotFilter{
		FutureOnly:   queryBool(c, "future_only"),
		UnbookedOnly: queryBool(c, "unbooked_only"),
	}
	slots, err := s.availability.ListSlots(c.Request().Context(), consultantID, filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, slots)
}

func (s *Server) deleteSlot(c echo.Context) error {
	slotID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid slot id"})
	}

	caller := callerIdentity(c)
	if caller.Role != RoleConsultant {
		return c.JSON(http.StatusForbidden, errorResponse{Error: "only consultants may manage slots"})
	}
	if err := s.availability.DeleteSlot(c.Request().Context(), caller.ID, slotID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listBookableSlots(c echo.Context) error {
	consultantID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid consultant id"})
	}

	var from time.Time
	if raw := c.QueryParam("from"); raw != "" {
		from, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "from must be RFC 3339", Field: "from"})
		}
	}

	slots, err := s.booking.ListBookableSlots(c.Request().Context(), consultantID, from)
	if err != nil {
		return writeError(c, err)
	}

	// Grouping is a derived presentation view over the flat sequence.
	if queryBool(c, "grouped") {
		return c.JSON(http.StatusOK, schedule.GroupByDate(slots))
	}
	return c.JSON(http.StatusOK, slots)
}

func (s *Server) claimSlot(c echo.Context) error {
	slotID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid slot id"})
	}

	caller := callerIdentity(c)
	if caller.Role != RolePatient {
		return c.JSON(http.StatusForbidden, errorResponse{Error: "only patients may book slots"})
	}

	consultation, err := s.booking.ClaimSlot(c.Request().Context(), caller.ID, slotID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, consultation)
}

func (s *Server) transitionConsultation(c echo.Context) error {
	consultationID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid consultation id"})
	}

	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	caller := callerIdentity(c)
	consultation, err := s.consultations.Transition(c.Request().Context(), caller.ID, consultationID, model.ConsultationStatus(req.Status))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, consultation)
}

func (s *Server) listMyConsultations(c echo.Context) error {
	caller := callerIdentity(c)
	consultations, err := s.consultations.ListForPatient(c.Request().Context(), caller.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, consultations)
}

func (s *Server) listConsultantConsultations(c echo.Context) error {
	consultantID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid consultant id"})
	}

	caller := callerIdentity(c)
	if caller.Role != RoleConsultant || caller.ID != consultantID {
		return c.JSON(http.StatusForbidden, errorResponse{Error: "not your consultation list"})
	}

	consultations, err := s.consultations.ListForConsultant(c.Request().Context(), consultantID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, consultations)
}

// writeError maps domain errors onto HTTP statuses. Race losses get a
// user-facing hint to pick another slot instead of a generic failure.
func writeError(c echo.Context, err error) error {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: verr.Err.Error(), Field: verr.Field})
	}

	switch {
	case errors.Is(err, model.ErrAlreadyBooked):
		return c.JSON(http.StatusConflict, errorResponse{Error: "this slot was just taken, please pick another"})
	case errors.Is(err, model.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, model.ErrNotAuthorized):
		return c.JSON(http.StatusForbidden, errorResponse{Error: "not authorized"})
	case errors.Is(err, model.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, model.ErrOverlap):
		return c.JSON(http.StatusConflict, errorResponse{Error: model.ErrOverlap.Error(), Field: "start_time"})
	case errors.Is(err, model.ErrInvalidRange), errors.Is(err, model.ErrInThePast):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, model.ErrConsultantClosed):
		return c.JSON(http.StatusConflict, errorResponse{Error: model.ErrConsultantClosed.Error()})
	case errors.Is(err, model.ErrSlotExpired):
		return c.JSON(http.StatusGone, errorResponse{Error: model.ErrSlotExpired.Error()})
	case errors.Is(err, model.ErrTimeout):
		return c.JSON(http.StatusGatewayTimeout, errorResponse{Error: model.ErrTimeout.Error()})
	case errors.Is(err, model.ErrStoreUnavailable):
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: model.ErrStoreUnavailable.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func queryBool(c echo.Context, name string) bool {
	v, _ := strconv.ParseBool(c.QueryParam(name))
	return v
}
