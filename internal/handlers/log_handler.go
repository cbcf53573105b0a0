package handlers

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"fileops-backend/internal/repository"
	"fileops-backend/internal/services"
	"fileops-backend/utils/response"
)

type LogHandler struct {
	service *services.AuditService
}

func NewLogHandler(service *services.AuditService) *LogHandler {
	return &LogHandler{service: service}
}

func parseLogFilter(r *http.Request) (repository.LogFilter, bool) {
	q := r.URL.Query()
	filter := repository.LogFilter{
		Action:    q.Get("action"),
		Ascending: q.Get("sort_by") == "timestamp_asc",
	}

	if v := q.Get("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, false
		}
		filter.UserID = &id
	}
	if v := q.Get("start_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, false
		}
		filter.StartDate = &t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, false
		}
		// Inclusive day: entries up to midnight after the end date.
		end := t.AddDate(0, 0, 1)
		filter.EndDate = &end
	}
	return filter, true
}

func (h *LogHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseLogFilter(r)
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid filter parameters")
		return
	}

	entries, err := h.service.List(r.Context(), filter)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SuccessResponse{
		Success: true,
		Data:    entries,
	})
}

func (h *LogHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SuccessResponse{
		Success: true,
		Data:    stats,
	})
}

func (h *LogHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context(), repository.LogFilter{})
	if err != nil {
		response.FromError(w, err)
		return
	}
	if len(entries) == 0 {
		response.Error(w, http.StatusNotFound, "No log entries")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=logbook_export.csv")

	writer := csv.NewWriter(w)
	writer.Write([]string{"id", "user_id", "action", "timestamp", "file_id", "ip_address", "details"})

	for _, entry := range entries {
		userID, fileID := "", ""
		if entry.UserID != nil {
			userID = entry.UserID.String()
		}
		if entry.FileID != nil {
			fileID = entry.FileID.String()
		}
		writer.Write([]string{
			strconv.FormatInt(entry.ID, 10),
			userID,
			string(entry.Action),
			entry.CreatedAt.Format(time.RFC3339),
			fileID,
			entry.IPAddress,
			string(entry.Details),
		})
	}
	writer.Flush()
}
