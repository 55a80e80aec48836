// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/replayd/internal/control"
	"github.com/ManuGH/replayd/internal/event"
	"github.com/ManuGH/replayd/internal/profile"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"state": s.opts.Controller.State().String()})
}

func (s *Server) handleRecordStart(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Controller.StartRecord(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"state": control.StateRecording.String()})
}

type recordStopRequest struct {
	Name string `json:"name"`
	Save bool   `json:"save"`
}

func (s *Server) handleRecordStop(w http.ResponseWriter, r *http.Request) {
	var req recordStopRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, fmt.Errorf("decode body: %w", err))
			return
		}
	}
	m, lost, err := s.opts.Controller.StopRecord(req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]any{
		"name":         m.Name,
		"events":       len(m.Events),
		"duration_ns":  int64(m.Duration),
		"capture_lost": lost,
	}
	if req.Save {
		id, err := s.opts.Store.Save(m)
		if err != nil {
			writeError(w, err)
			return
		}
		resp["id"] = id
	}
	writeJSON(w, http.StatusOK, resp)
}

type playbackStartRequest struct {
	Macro   string  `json:"macro"`
	Speed   float64 `json:"speed"`
	Profile string  `json:"profile"`
}

func (s *Server) handlePlaybackStart(w http.ResponseWriter, r *http.Request) {
	var req playbackStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, fmt.Errorf("decode body: %w", err))
		return
	}
	m := s.opts.Controller.LastMacro()
	if req.Macro != "" {
		var err error
		m, err = s.opts.Store.Load(req.Macro)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	speed := req.Speed
	if speed == 0 {
		speed = s.opts.SpeedDefault
	}
	p, err := profile.ByName(req.Profile)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := s.opts.Controller.Play(m, speed, p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"state": control.StatePlaying.String(),
		"macro": m.Name,
		"speed": speed,
	})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Controller.Pause(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": control.StatePaused.String()})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Controller.Resume(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": control.StatePlaying.String()})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Controller.Stop(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": control.StateIdle.String()})
}

func (s *Server) handleEmergencyStop(w http.ResponseWriter, r *http.Request) {
	// Defined to never fail: whatever was running is gone afterwards.
	s.opts.Controller.EmergencyStop()
	writeJSON(w, http.StatusOK, map[string]string{"state": control.StateIdle.String()})
}

func (s *Server) handleMacroList(w http.ResponseWriter, r *http.Request) {
	infos, err := s.opts.Store.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"macros": infos})
}

func (s *Server) handleMacroGet(w http.ResponseWriter, r *http.Request) {
	m, err := s.opts.Store.Load(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        m.Name,
		"created_at":  m.CreatedAt,
		"duration_ns": int64(m.Duration),
		"events":      len(m.Events),
	})
}

func (s *Server) handleMacroDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Store.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Controller.LastReport())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		writeJSON(w, http.StatusOK, map[string]any{"playbacks": []any{}})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	recs, err := s.opts.History.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"playbacks": recs})
}

type spammerStartRequest struct {
	Key        string `json:"key"`
	Tap        bool   `json:"tap"`
	IntervalMs int    `json:"interval_ms"`
	Count      int    `json:"count"`
	Jitter     bool   `json:"jitter"`
}

func (s *Server) handleSpammerStart(w http.ResponseWriter, r *http.Request) {
	var req spammerStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, fmt.Errorf("decode body: %w", err))
		return
	}
	err := s.opts.Controller.StartKeySpammer(control.SpamConfig{
		Key:      req.Key,
		Tap:      req.Tap,
		Interval: time.Duration(req.IntervalMs) * time.Millisecond,
		Count:    req.Count,
		Jitter:   req.Jitter,
	})
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"spammer": "running"})
}

func (s *Server) handleSpammerStop(w http.ResponseWriter, r *http.Request) {
	s.opts.Controller.StopKeySpammer()
	writeJSON(w, http.StatusOK, map[string]string{"spammer": "stopped"})
}

type clickerStartRequest struct {
	Button     string `json:"button"` // "left" or "right"
	IntervalMs int    `json:"interval_ms"`
	Count      int    `json:"count"`
	Jitter     bool   `json:"jitter"`
}

func (s *Server) handleClickerStart(w http.ResponseWriter, r *http.Request) {
	var req clickerStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, fmt.Errorf("decode body: %w", err))
		return
	}
	var button uint16
	switch req.Button {
	case "left", "":
		button = event.ButtonLeft
	case "right":
		button = event.ButtonRight
	default:
		writeBadRequest(w, fmt.Errorf("button must be left or right"))
		return
	}
	err := s.opts.Controller.StartMouseClicker(control.ClickConfig{
		Button:   button,
		Interval: time.Duration(req.IntervalMs) * time.Millisecond,
		Count:    req.Count,
		Jitter:   req.Jitter,
	})
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"clicker": "running"})
}

func (s *Server) handleClickerStop(w http.ResponseWriter, r *http.Request) {
	s.opts.Controller.StopMouseClicker()
	writeJSON(w, http.StatusOK, map[string]string{"clicker": "stopped"})
}
