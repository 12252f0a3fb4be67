package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	questdomain "github.com/habitforge/habitforge/internal/quest/domain"
)

func (s *Server) DailyQuests(c *gin.Context) {
	statuses, err := s.questSvc.DailyStatus(c.Request.Context(), currentUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": statuses})
}

func (s *Server) CompleteQuest(c *gin.Context) {
	questID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.questSvc.Complete(c.Request.Context(), currentUserID(c), questID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

type questRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type questUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
}

func (s *Server) AdminListQuests(c *gin.Context) {
	quests, err := s.questSvc.ListCatalog(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": quests})
}

func (s *Server) AdminCreateQuest(c *gin.Context) {
	var req questRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	quest, err := s.questSvc.CreateQuest(c.Request.Context(), questdomain.CreateRequest{
		Title:       req.Title,
		Description: req.Description,
		Icon:        req.Icon,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": quest})
}

func (s *Server) AdminUpdateQuest(c *gin.Context) {
	questID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req questUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	quest, err := s.questSvc.UpdateQuest(c.Request.Context(), questdomain.UpdateRequest{
		QuestID:     questID,
		Title:       req.Title,
		Description: req.Description,
		Icon:        req.Icon,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": quest})
}

func (s *Server) AdminDeleteQuest(c *gin.Context) {
	questID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.questSvc.DeleteQuest(c.Request.Context(), questID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
