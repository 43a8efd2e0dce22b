package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/alturatime/backend/cmd/alturatime/service"
	"github.com/alturatime/backend/common/bootstrap"
	"github.com/alturatime/backend/common/store"
)

// ScheduleHandler handles schedule upload and retrieval requests
type ScheduleHandler struct {
	components *bootstrap.Components
	schedules  *service.ScheduleService
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(components *bootstrap.Components, schedules *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{
		components: components,
		schedules:  schedules,
	}
}

// Index identifies the service
// GET /
func (h *ScheduleHandler) Index(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"msg":    "AlturaTime backend",
	})
}

// Upload accepts a multipart schedule upload and returns its share link
// POST /upload with form fields: name, file
func (h *ScheduleHandler) Upload(c echo.Context) error {
	if h.components.Telemetry != nil {
		defer h.components.Telemetry.RecordDuration("upload", time.Now())
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("No file provided"))
	}

	src, err := fh.Open()
	if err != nil {
		h.components.Logger.Error("failed to open upload part", "error", err)
		return c.JSON(http.StatusInternalServerError, errorBody("Failed to save: "+err.Error()))
	}
	defer src.Close()

	// Read at most one byte past the ceiling; the service turns the
	// overshoot into a too-large rejection.
	maxBytes := h.components.Config.Upload.MaxBytes
	content, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		h.components.Logger.Error("failed to read upload part", "error", err)
		return c.JSON(http.StatusInternalServerError, errorBody("Failed to save: "+err.Error()))
	}

	resp, err := h.schedules.Upload(c.Request().Context(), &service.UploadRequest{
		Name:        c.FormValue("name"),
		Filename:    fh.Filename,
		Content:     content,
		RequestBase: c.Scheme() + "://" + c.Request().Host,
	})
	if err != nil {
		return h.uploadError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"id":      resp.ID,
		"name":    resp.Name,
		"link":    resp.Link,
	})
}

// uploadError maps service and store failures onto the upload error shape.
func (h *ScheduleHandler) uploadError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNoFilename):
		return c.JSON(http.StatusBadRequest, errorBody("No filename"))
	case errors.Is(err, service.ErrExtensionNotAllowed):
		return c.JSON(http.StatusBadRequest, errorBody("Only .ics files allowed"))
	case errors.Is(err, store.ErrEmptyPayload):
		return c.JSON(http.StatusBadRequest, errorBody("Empty file"))
	case errors.Is(err, store.ErrTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, errorBody("File too large"))
	default:
		h.components.Logger.Error("failed to store upload", "error", err)
		return c.JSON(http.StatusInternalServerError, errorBody("Failed to save: "+err.Error()))
	}
}

// RawSchedule serves the stored calendar bytes
// GET /i/:id
func (h *ScheduleHandler) RawSchedule(c echo.Context) error {
	id := c.Param("id")

	data, err := h.schedules.Artifact(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "schedule not found")
		}
		h.components.Logger.Error("failed to read schedule", "upload_id", id, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read schedule")
	}

	return c.Blob(http.StatusOK, "text/calendar", data)
}

// Meta returns the stored upload record
// GET /meta/:id
func (h *ScheduleHandler) Meta(c echo.Context) error {
	id := c.Param("id")

	rec, err := h.schedules.Record(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "schedule not found")
		}
		h.components.Logger.Error("failed to read record", "upload_id", id, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read record")
	}

	return c.JSON(http.StatusOK, rec)
}

// CallStatus reports the current call window for a schedule
// GET /status/:id
func (h *ScheduleHandler) CallStatus(c echo.Context) error {
	id := c.Param("id")

	snap, err := h.schedules.Status(c.Request().Context(), id, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "schedule not found")
		case errors.Is(err, service.ErrUnparseableCalendar):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "schedule is not a parseable calendar")
		default:
			h.components.Logger.Error("failed to compute call status", "upload_id", id, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to compute call status")
		}
	}

	return c.JSON(http.StatusOK, snap)
}

func errorBody(msg string) map[string]interface{} {
	return map[string]interface{}{
		"success": false,
		"error":   msg,
	}
}
