package http

import (
	"net/http"

	"tracker/internal/core"
	applog "tracker/internal/log"
)

type studyData struct {
	Tasks []core.Record `json:"tasks"`
}

func (s *Server) handleStudy(r *http.Request) *JSONResponseBuilder {
	cctx, cancel := s.withTimeout(r)
	defer cancel()
	rows, err := s.backend.Select(cctx, core.TableStudyTasks, core.Query{}.OrderBy("created_at", false))
	if err != nil {
		return backendFailure(r.Context(), applog.OpSelect, err, 0)
	}
	if rows == nil {
		rows = []core.Record{}
	}
	return Success(studyData{Tasks: rows})
}

// handleAddTask inserts a study task. description and deadline are passed
// through only when present, so the backend stores null otherwise.
func (s *Server) handleAddTask(r *http.Request) *JSONResponseBuilder {
	ctx := r.Context()

	body, err := DecodeBody(r)
	if err != nil {
		return validationFailure(ctx, applog.OpInsert, err)
	}
	if err := RequireFields(body, "Title is required", "title"); err != nil {
		return validationFailure(ctx, applog.OpInsert, err)
	}

	record := core.Record{
		"title":      body["title"],
		"created_at": core.Now(),
	}
	for _, k := range []string{"description", "deadline"} {
		if v, ok := body[k]; ok {
			record[k] = v
		}
	}

	cctx, cancel := s.withTimeout(r)
	defer cancel()
	stored, err := s.backend.Insert(cctx, core.TableStudyTasks, record)
	if err != nil {
		return backendFailure(ctx, applog.OpInsert, err, 0)
	}

	s.metrics.recordsCreated.Add(1)
	applog.NewStructuredLogger(applog.FromContext(ctx)).LogRecordCreated(ctx, core.TableStudyTasks, stored.String("id"))

	return Created("Task added successfully", stored)
}
