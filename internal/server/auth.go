package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/habitforge/habitforge/internal/auth/domain"
)

func (s *Server) Register(c *gin.Context) {
	var req authdomain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.authSvc.Register(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) Login(c *gin.Context) {
	var req authdomain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.authSvc.Login(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) Me(c *gin.Context) {
	user, err := s.authSvc.CurrentUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}

type updateProfileRequest struct {
	Username *string `json:"username"`
	AvatarID *string `json:"avatarId"`
}

func (s *Server) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	user, err := s.authSvc.UpdateProfile(c.Request.Context(), authdomain.ProfileRequest{
		UserID:   currentUserID(c),
		Username: req.Username,
		AvatarID: req.AvatarID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.authSvc.ChangePassword(c.Request.Context(), currentUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type changeEmailRequest struct {
	Password string `json:"password"`
	Email    string `json:"email"`
}

func (s *Server) ChangeEmail(c *gin.Context) {
	var req changeEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.authSvc.ChangeEmail(c.Request.Context(), currentUserID(c), req.Password, req.Email); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword always answers 204: whether the address exists is
// never revealed. The token leaves through the mail flow only.
func (s *Server) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if _, err := s.authSvc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (s *Server) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.authSvc.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
