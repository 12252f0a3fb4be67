package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	habitdomain "github.com/habitforge/habitforge/internal/habit/domain"
)

type createHabitRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	DurationDays int    `json:"durationDays"`
}

type editHabitRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	Category     *string `json:"category"`
	DurationDays *int    `json:"durationDays"`
}

type completeHabitRequest struct {
	Date string `json:"date"`
}

func (s *Server) ListHabits(c *gin.Context) {
	habits, err := s.habitSvc.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": habits})
}

func (s *Server) CreateHabit(c *gin.Context) {
	var req createHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	habit, err := s.habitSvc.Create(c.Request.Context(), habitdomain.CreateRequest{
		OwnerID:      currentUserID(c),
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		DurationDays: req.DurationDays,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": habit})
}

func (s *Server) EditHabit(c *gin.Context) {
	habitID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req editHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	habit, err := s.habitSvc.Edit(c.Request.Context(), habitdomain.EditRequest{
		OwnerID:      currentUserID(c),
		HabitID:      habitID,
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		DurationDays: req.DurationDays,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": habit})
}

func (s *Server) DeleteHabit(c *gin.Context) {
	habitID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.habitSvc.Delete(c.Request.Context(), currentUserID(c), habitID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) CompleteHabit(c *gin.Context) {
	habitID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req completeHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.habitSvc.Complete(c.Request.Context(), habitdomain.CompleteRequest{
		OwnerID: currentUserID(c),
		HabitID: habitID,
		Date:    req.Date,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(raw)
}
