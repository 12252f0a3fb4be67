package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	userdomain "github.com/habitforge/habitforge/internal/user/domain"
	"go.uber.org/zap"
)

const (
	ctxUserID = "auth.user_id"
	ctxRole   = "auth.role"
)

// AuthRequired verifies the bearer token and stores the identity on
// the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		identity, err := s.authSvc.Verify(strings.TrimSpace(token))
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(ctxUserID, identity.UserID)
		c.Set(ctxRole, identity.Role)
		c.Next()
	}
}

// AdminRequired gates the catalog-administration routes. It must run
// after AuthRequired.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(ctxRole)
		if !ok || role != userdomain.RoleAdmin {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

// CompletionRateLimit throttles the XP-granting endpoints per user.
// Redis being down fails closed: granting XP is not worth racing an
// unbounded client.
func (s *Server) CompletionRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		userID := currentUserID(c)
		allowed, err := s.limiter.AllowUser(c.Request.Context(), userID)
		if err != nil {
			s.log.Warn("rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !allowed {
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

func currentUserID(c *gin.Context) snowflake.ID {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return 0
	}
	id, _ := v.(snowflake.ID)
	return id
}

