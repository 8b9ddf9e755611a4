package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crewdesk/internal/model"
)

func (s *Server) handleListSchedules(c *gin.Context) {
	schedules, err := s.svc.Schedules.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, schedules)
}

func (s *Server) handleCreateSchedule(c *gin.Context) {
	var req model.ScheduledTask
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	schedule, err := s.svc.Schedules.Create(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, schedule)
}

func (s *Server) handleUpdateSchedule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req model.ScheduledTask
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	schedule, err := s.svc.Schedules.Update(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, schedule)
}

func (s *Server) handleDeleteSchedule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.svc.Schedules.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusNoContent, nil)
}
