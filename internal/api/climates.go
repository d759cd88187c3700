package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-irclimate/internal/bridges/ir"
)

const (
	// maxQueryParamLen limits path and query parameter length.
	maxQueryParamLen = 100

	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	commandSource = "api"
)

// ClimateListResponse is the response of GET /api/v1/climates.
type ClimateListResponse struct {
	Climates any `json:"climates"`
	Count    int `json:"count"`
}

// handleListClimates returns every climate device in configuration order.
func (s *Server) handleListClimates(w http.ResponseWriter, _ *http.Request) {
	climates := s.climate.Climates()
	writeJSON(w, http.StatusOK, ClimateListResponse{Climates: climates, Count: len(climates)})
}

// handleGetClimate returns one climate device.
func (s *Server) handleGetClimate(w http.ResponseWriter, r *http.Request) {
	id, ok := climateID(w, r)
	if !ok {
		return
	}

	snap, err := s.climate.Climate(id)
	if err != nil {
		s.writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleGetClimateHistory returns recorded state changes, newest first.
func (s *Server) handleGetClimateHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := climateID(w, r)
	if !ok {
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	entries, err := s.climate.History(r.Context(), id, limit)
	if err != nil {
		s.writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"history":   entries,
		"count":     len(entries),
	})
}

// handleClimateCommand accepts a raw command message:
//
//	{"command": "set_temperature", "parameters": {"temperature": 22}}
func (s *Server) handleClimateCommand(w http.ResponseWriter, r *http.Request) {
	var cmd ir.CommandMessage
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if cmd.Command == "" {
		writeBadRequest(w, "command is required")
		return
	}
	s.execute(w, r, cmd.Command, cmd.Parameters)
}

func (s *Server) handleSetTemperature(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Temperature *float64 `json:"temperature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if body.Temperature == nil {
		writeBadRequest(w, "temperature is required")
		return
	}
	s.execute(w, r, ir.CmdSetTemperature, map[string]any{ir.ParamTemperature: *body.Temperature})
}

func (s *Server) handleSetFanMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FanMode string `json:"fan_mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	s.execute(w, r, ir.CmdSetFanMode, map[string]any{ir.ParamFanMode: body.FanMode})
}

func (s *Server) handleSetOperationMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OperationMode string `json:"operation_mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	s.execute(w, r, ir.CmdSetOperationMode, map[string]any{ir.ParamOperationMode: body.OperationMode})
}

// handleSetAwayMode accepts {"away_mode": true|false|"on"|"off"}.
func (s *Server) handleSetAwayMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AwayMode any `json:"away_mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	on, err := parseSwitch(body.AwayMode)
	if err != nil {
		writeBadRequest(w, "away_mode: "+err.Error())
		return
	}

	cmd := ir.CmdAwayModeOff
	if on {
		cmd = ir.CmdAwayModeOn
	}
	s.execute(w, r, cmd, nil)
}

func (s *Server) handleTurnOn(w http.ResponseWriter, r *http.Request) {
	s.execute(w, r, ir.CmdTurnOn, nil)
}

func (s *Server) handleTurnOff(w http.ResponseWriter, r *http.Request) {
	s.execute(w, r, ir.CmdTurnOff, nil)
}

// execute runs a command on the device named in the URL and writes the
// resulting state.
func (s *Server) execute(w http.ResponseWriter, r *http.Request, command string, params map[string]any) {
	id, ok := climateID(w, r)
	if !ok {
		return
	}

	cmd := ir.CommandMessage{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		DeviceID:   id,
		Command:    command,
		Parameters: params,
		Source:     commandSource,
	}

	snap, err := s.climate.Execute(r.Context(), id, cmd)
	if err != nil {
		s.writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// writeCommandError maps bridge errors to HTTP responses.
func (s *Server) writeCommandError(w http.ResponseWriter, err error) {
	status, message, ok := commandStatus(err)
	if !ok {
		s.logger.Error("climate request failed", "error", err)
	}
	writeError(w, status, message)
}

func climateID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid climate device ID")
		return "", false
	}
	return id, true
}

func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum")
	}
	return limit, nil
}

func parseSwitch(v any) (bool, error) {
	switch s := v.(type) {
	case bool:
		return s, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "on", "true":
			return true, nil
		case "off", "false":
			return false, nil
		}
		return false, fmt.Errorf("%q is not on or off", s)
	case nil:
		return false, fmt.Errorf("is required")
	default:
		return false, fmt.Errorf("must be a boolean or on/off")
	}
}
