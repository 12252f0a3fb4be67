package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) BossState(c *gin.Context) {
	state, err := s.bossSvc.State(c.Request.Context(), currentUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": state})
}

func (s *Server) ClaimBossDefeat(c *gin.Context) {
	result, err := s.bossSvc.ClaimDefeat(c.Request.Context(), currentUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}
