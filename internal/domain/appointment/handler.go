package appointment

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/apptbook/apptbook/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointments", h.ListAppointments)
	api.GET("/appointments/upcoming", h.ListUpcoming)
	api.GET("/appointments/stats", h.GetStats)
	api.GET("/appointments/:id", h.GetAppointment)
	api.POST("/appointments", h.CreateAppointment)
	api.PUT("/appointments/:id", h.UpdateAppointment)
	api.PATCH("/appointments/:id/status", h.ChangeStatus)
	api.DELETE("/appointments/:id", h.DeleteAppointment)
}

// errorBody is the JSON shape every failed operation returns.
type errorBody struct {
	Error    string       `json:"error"`
	Fields   []FieldError `json:"fields,omitempty"`
	Conflict *Appointment `json:"conflict,omitempty"`
}

// respondError maps the service error taxonomy onto HTTP statuses.
func respondError(c echo.Context, err error) error {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return c.JSON(http.StatusBadRequest, errorBody{Error: vErr.Error(), Fields: vErr.Fields})
	}
	var cErr *ConflictError
	if errors.As(err, &cErr) {
		return c.JSON(http.StatusConflict, errorBody{Error: cErr.Error(), Conflict: cErr.With})
	}
	var tErr *TransitionError
	if errors.As(err, &tErr) {
		return c.JSON(http.StatusConflict, errorBody{Error: tErr.Error()})
	}
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorBody{Error: "appointment not found"})
	}
	if errors.Is(err, ErrDuplicateID) {
		return c.JSON(http.StatusConflict, errorBody{Error: err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
}

func parsePathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var candidate Appointment
	if err := c.Bind(&candidate); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, err := h.svc.Create(c.Request().Context(), &candidate)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := parsePathID(c)
	if err != nil {
		return err
	}
	appt, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	ctx := c.Request().Context()
	pg := pagination.FromContext(c)

	q := SearchQuery{
		Text:   c.QueryParam("q"),
		Status: c.QueryParam("status"),
	}
	if from := c.QueryParam("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from: expected RFC 3339 timestamp")
		}
		q.From = &t
	}
	if to := c.QueryParam("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to: expected RFC 3339 timestamp")
		}
		q.To = &t
	}

	var (
		appts []*Appointment
		err   error
	)
	if q.Text == "" && q.Status == "" && q.From == nil && q.To == nil {
		appts, err = h.svc.List(ctx, c.QueryParam("sort"))
	} else {
		appts, err = h.svc.Search(ctx, q)
	}
	if err != nil {
		return respondError(c, err)
	}

	total := len(appts)
	page := pagination.Slice(appts, pg)
	return c.JSON(http.StatusOK, pagination.NewResponse(page, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListUpcoming(c echo.Context) error {
	appts, err := h.svc.Upcoming(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, appts)
}

func (h *Handler) GetStats(c echo.Context) error {
	stats, err := h.svc.GetStats(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := parsePathID(c)
	if err != nil {
		return err
	}
	var candidate Appointment
	if err := c.Bind(&candidate); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, err := h.svc.Update(c.Request().Context(), id, &candidate)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) ChangeStatus(c echo.Context) error {
	id, err := parsePathID(c)
	if err != nil {
		return err
	}
	var body struct {
		Status Status `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, err := h.svc.ChangeStatus(c.Request().Context(), id, body.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id, err := parsePathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
