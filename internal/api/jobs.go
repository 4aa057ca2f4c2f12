package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/homealone/internal/schedule"
)

// JobResponse is a scheduled job as returned by the API.
type JobResponse struct {
	ID            string     `json:"id"`
	Cron          string     `json:"cron"`
	Relay         string     `json:"relay"`
	Action        string     `json:"action"`
	JitterSeconds int        `json:"jitter_seconds"`
	Description   string     `json:"description,omitempty"`
	NextRun       *time.Time `json:"next_run,omitempty"`
}

func (s *Server) jobResponse(job schedule.Job) JobResponse {
	resp := JobResponse{
		ID:            job.ID,
		Cron:          job.Cron,
		Relay:         job.Relay.String(),
		Action:        job.Action.String(),
		JitterSeconds: job.JitterSeconds(),
		Description:   job.Description,
	}
	if next, err := s.jobs.Next(job.ID); err == nil && !next.IsZero() {
		resp.NextRun = &next
	}
	return resp
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	if s.jobs == nil {
		writeUnavailable(w, "scheduler not configured")
		return
	}

	jobs := s.jobs.Jobs()
	out := make([]JobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, s.jobResponse(job))
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": out, "count": len(out)})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeUnavailable(w, "scheduler not configured")
		return
	}

	job, err := s.jobs.Job(chi.URLParam(r, "id"))
	if errors.Is(err, schedule.ErrJobNotFound) {
		writeNotFound(w, "job not found")
		return
	}
	if err != nil {
		writeInternalError(w, "failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, s.jobResponse(job))
}
