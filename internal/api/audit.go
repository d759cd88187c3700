package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-irclimate/internal/audit"
)

// AuditLister lists recorded commands. Satisfied by *audit.SQLiteRepository.
type AuditLister interface {
	List(ctx context.Context, filter audit.Filter) (*audit.ListResult, error)
}

// handleListAudit returns recorded commands, newest first.
//
// Query parameters:
//   - device_id: only this device
//   - source: api or mqtt
//   - result: accepted or rejected
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusServiceUnavailable, "command audit not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		DeviceID: q.Get("device_id"),
		Source:   q.Get("source"),
		Result:   q.Get("result"),
	}
	if len(filter.DeviceID) > maxQueryParamLen || len(filter.Source) > maxQueryParamLen || len(filter.Result) > maxQueryParamLen {
		writeBadRequest(w, "query parameter too long")
		return
	}

	var err error
	if filter.Limit, err = parseIntParam(q.Get("limit")); err != nil {
		writeBadRequest(w, "invalid limit")
		return
	}
	if filter.Offset, err = parseIntParam(q.Get("offset")); err != nil {
		writeBadRequest(w, "invalid offset")
		return
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list command audit", "error", err)
		writeInternalError(w, "failed to list command audit")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// parseIntParam returns 0 for an empty value. The repository clamps range.
func parseIntParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
