package handlers

import (
	"bytes"
	_ "embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/alturatime/backend/common/store"
)

//go:embed viewer.html
var viewerHTML string

var viewerTmpl = template.Must(template.New("viewer").Parse(viewerHTML))

// viewerData is everything the share page needs from the server. The page
// fetches and parses the calendar itself; only identity is injected here.
type viewerData struct {
	ID   string
	Name string
	Meta *store.Record
}

// SharePage renders the live clock page for one schedule
// GET /s/:id
func (h *ScheduleHandler) SharePage(c echo.Context) error {
	id := c.Param("id")

	rec, err := h.schedules.Record(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "schedule not found")
		}
		h.components.Logger.Error("failed to load record for share page", "upload_id", id, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load schedule")
	}

	var buf bytes.Buffer
	if err := viewerTmpl.Execute(&buf, &viewerData{ID: id, Name: rec.Name, Meta: rec}); err != nil {
		h.components.Logger.Error("failed to render share page", "upload_id", id, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to render page")
	}

	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}
