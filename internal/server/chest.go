package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ChestState(c *gin.Context) {
	state, err := s.chestSvc.State(c.Request.Context(), currentUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": state})
}

func (s *Server) OpenChest(c *gin.Context) {
	result, err := s.chestSvc.Open(c.Request.Context(), currentUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}
