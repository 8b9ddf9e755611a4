package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleGenerate(c *gin.Context) {
	summary, err := s.svc.Engine.GenerateNow(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, summary)
}

func (s *Server) handleRunPipeline(c *gin.Context) {
	report, err := s.svc.Engine.RunPipeline(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, report)
}
