package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"crewdesk/internal/model"
	"crewdesk/internal/repository"
	"crewdesk/internal/service"
)

type proofRequest struct {
	Image string `json:"image"`
}

type extendRequest struct {
	DueDate model.Date `json:"dueDate"`
}

type eliminateRequest struct {
	Note string `json:"note"`
}

// handleListTasks lists tasks. Members only ever see their own.
func (s *Server) handleListTasks(c *gin.Context) {
	var filter repository.TaskFilter
	if raw := c.Query("memberId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid memberId"})
			return
		}
		filter.MemberID = uint(id)
	}
	filter.Status = model.TaskStatus(c.Query("status"))
	filter.RewardStatus = model.RewardStatus(c.Query("rewardStatus"))
	filter.DueDate = model.Date(c.Query("dueDate"))

	if who := caller(c); !who.isAdmin() {
		filter.MemberID = who.MemberID()
	}

	tasks, err := s.svc.Tasks.List(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req service.TaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	task, err := s.svc.Tasks.CreateTask(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, task)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.svc.Tasks.DeleteTask(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusNoContent, nil)
}

// handleSubmitProof lets a member complete their task. Admins may submit on anyone's behalf.
func (s *Server) handleSubmitProof(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req proofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	var owner uint
	if who := caller(c); !who.isAdmin() {
		owner = who.MemberID()
		if owner == 0 {
			c.JSON(http.StatusForbidden, gin.H{"error": "token carries no member"})
			return
		}
	}

	task, err := s.svc.Rewards.SubmitProof(c.Request.Context(), id, owner, req.Image)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, task)
}

func (s *Server) handleApprove(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	result, err := s.svc.Rewards.Approve(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, result)
}

func (s *Server) handleReject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	result, err := s.svc.Rewards.Reject(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, result)
}

func (s *Server) handleExtend(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req extendRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
	}

	task, err := s.svc.Engine.ExtendTask(c.Request.Context(), id, req.DueDate)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, task)
}

func (s *Server) handleEliminate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req eliminateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
	}

	task, err := s.svc.Engine.EliminateTask(c.Request.Context(), id, req.Note)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, task)
}
