package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListAchievements(c *gin.Context) {
	catalog, err := s.achievementSvc.Catalog(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	user, err := s.authSvc.CurrentUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"catalog":  catalog,
		"unlocked": user.UnlockedAchievementIDs,
	}})
}

// UnlockAchievement is the client-driven unlock path; the set-union
// semantics of the service make replays harmless.
func (s *Server) UnlockAchievement(c *gin.Context) {
	achievementID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ids, err := s.achievementSvc.Unlock(c.Request.Context(), currentUserID(c), achievementID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"unlocked": ids}})
}
