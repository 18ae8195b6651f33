package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"buscador-gpt/internal/app"
	"buscador-gpt/internal/transport/http/response"
)

type AdminHandler struct {
	activity *app.ActivityService
}

func NewAdminHandler(activity *app.ActivityService) *AdminHandler {
	return &AdminHandler{activity: activity}
}

// Activity serves the daily report. ?date=YYYY-MM-DD picks the day and
// ?format=csv returns it as a download.
func (h *AdminHandler) Activity(c *gin.Context) {
	day, err := h.activity.ParseDay(c.Query("date"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}
	rows, err := h.activity.DailyReport(c.Request.Context(), day)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "build activity report failed")
		return
	}

	switch c.DefaultQuery("format", "json") {
	case "json":
		response.OK(c, gin.H{"date": day.Format("2006-01-02"), "rows": rows})
	case "csv":
		body, err := app.ReportCSV(rows)
		if err != nil {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "encode activity report failed")
			return
		}
		writeAttachment(c, &app.ExportFile{
			Filename:    fmt.Sprintf("actividad_%s.csv", day.Format("2006-01-02")),
			ContentType: "text/csv; charset=utf-8",
			Body:        body,
		})
	default:
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "format must be json or csv")
	}
}
