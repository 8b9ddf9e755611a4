package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crewdesk/internal/model"
)

type memberRequest struct {
	Name       string           `json:"name"`
	Phone      string           `json:"phone"`
	TelegramID *int64           `json:"telegramId"`
	Username   string           `json:"username"`
	Role       model.MemberRole `json:"role"`
	Active     *bool            `json:"active"`
}

func (s *Server) handleListMembers(c *gin.Context) {
	members, err := s.svc.Members.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, members)
}

func (s *Server) handleCreateMember(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	member, err := s.svc.Members.Create(c.Request.Context(), model.Member{
		Name:       req.Name,
		Phone:      req.Phone,
		TelegramID: req.TelegramID,
		Username:   req.Username,
		Role:       req.Role,
		Active:     active,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, member)
}

// handleMemberRewards returns the balance. Members may only read their own.
func (s *Server) handleMemberRewards(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	who := caller(c)
	if !who.isAdmin() && who.MemberID() != id {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot read another member's rewards"})
		return
	}
	if _, err := s.svc.Members.Get(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}

	balance, err := s.svc.Rewards.Balance(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, balance)
}
