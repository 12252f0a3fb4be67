package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/habitforge/habitforge/internal/auth/domain"
	habitdomain "github.com/habitforge/habitforge/internal/habit/domain"
	userdomain "github.com/habitforge/habitforge/internal/user/domain"
	"go.uber.org/zap"
)

type fakeAuthService struct {
	authdomain.Service
}

func (f *fakeAuthService) Verify(token string) (authdomain.Identity, error) {
	switch token {
	case "user-token":
		return authdomain.Identity{UserID: snowflake.ID(200), Role: userdomain.RoleUser}, nil
	case "admin-token":
		return authdomain.Identity{UserID: snowflake.ID(201), Role: userdomain.RoleAdmin}, nil
	default:
		return authdomain.Identity{}, authdomain.ErrInvalidToken
	}
}

type fakeHabitService struct {
	lastCreate   habitdomain.CreateRequest
	lastComplete habitdomain.CompleteRequest

	createErr   error
	completeErr error
}

func (f *fakeHabitService) List(ctx context.Context, ownerID snowflake.ID) ([]habitdomain.Habit, error) {
	_ = ctx
	_ = ownerID
	return nil, nil
}

func (f *fakeHabitService) Create(ctx context.Context, req habitdomain.CreateRequest) (habitdomain.Habit, error) {
	_ = ctx
	f.lastCreate = req
	if f.createErr != nil {
		return habitdomain.Habit{}, f.createErr
	}
	return habitdomain.Habit{ID: snowflake.ID(300), UserID: req.OwnerID, Name: req.Name}, nil
}

func (f *fakeHabitService) Edit(ctx context.Context, req habitdomain.EditRequest) (habitdomain.Habit, error) {
	_ = ctx
	_ = req
	return habitdomain.Habit{}, nil
}

func (f *fakeHabitService) Delete(ctx context.Context, ownerID, habitID snowflake.ID) error {
	_ = ctx
	_ = ownerID
	_ = habitID
	return nil
}

func (f *fakeHabitService) Complete(ctx context.Context, req habitdomain.CompleteRequest) (habitdomain.CompletionResult, error) {
	_ = ctx
	f.lastComplete = req
	if f.completeErr != nil {
		return habitdomain.CompletionResult{}, f.completeErr
	}
	return habitdomain.CompletionResult{XPGained: 10}, nil
}

func newTestRouter(habitSvc habitdomain.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)

	srv := &Server{
		log:      zap.NewNop(),
		authSvc:  &fakeAuthService{},
		habitSvc: habitSvc,
	}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())

	api := router.Group("/api", srv.AuthRequired())
	api.POST("/habits", srv.CreateHabit)
	api.PATCH("/habits/:id/complete", srv.CompletionRateLimit(), srv.CompleteHabit)

	admin := router.Group("/api/admin", srv.AuthRequired(), srv.AdminRequired())
	admin.GET("/quests", srv.AdminListQuests)

	return router
}

func doJSON(router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHabitRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(&fakeHabitService{})

	resp := doJSON(router, http.MethodPost, "/api/habits", "", `{"name":"Read"}`)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without token, got %d", resp.Code)
	}

	resp = doJSON(router, http.MethodPost, "/api/habits", "forged-token", `{"name":"Read"}`)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 with bad token, got %d", resp.Code)
	}
}

func TestCreateHabitUsesTokenIdentity(t *testing.T) {
	habitSvc := &fakeHabitService{}
	router := newTestRouter(habitSvc)

	resp := doJSON(router, http.MethodPost, "/api/habits", "user-token", `{"name":"Read","durationDays":7}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if habitSvc.lastCreate.OwnerID != snowflake.ID(200) {
		t.Fatalf("expected owner from token (200), got %d", habitSvc.lastCreate.OwnerID)
	}
	if habitSvc.lastCreate.DurationDays != 7 {
		t.Fatalf("expected duration 7, got %d", habitSvc.lastCreate.DurationDays)
	}
}

func TestCreateHabitValidationMapsTo400(t *testing.T) {
	habitSvc := &fakeHabitService{createErr: habitdomain.ErrInvalidName}
	router := newTestRouter(habitSvc)

	resp := doJSON(router, http.MethodPost, "/api/habits", "user-token", `{"name":""}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}

	var body errorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error.Type != "validation_error" {
		t.Fatalf("expected validation_error, got %q", body.Error.Type)
	}
}

func TestCompleteHabitConflictMapsTo409(t *testing.T) {
	habitSvc := &fakeHabitService{completeErr: habitdomain.ErrAlreadyCompleted}
	router := newTestRouter(habitSvc)

	resp := doJSON(router, http.MethodPatch, "/api/habits/300/complete", "user-token", `{"date":"2026-08-29"}`)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}

	var body errorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error.Type != "conflict" {
		t.Fatalf("expected conflict, got %q", body.Error.Type)
	}
	if habitSvc.lastComplete.Date != "2026-08-29" {
		t.Fatalf("expected date passthrough, got %q", habitSvc.lastComplete.Date)
	}
}

func TestCompleteHabitRejectsBadID(t *testing.T) {
	router := newTestRouter(&fakeHabitService{})

	resp := doJSON(router, http.MethodPatch, "/api/habits/not-a-number/complete", "user-token", `{"date":"2026-08-29"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestAdminRoutesRejectRegularUsers(t *testing.T) {
	router := newTestRouter(&fakeHabitService{})

	resp := doJSON(router, http.MethodGet, "/api/admin/quests", "user-token", "")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for user role, got %d", resp.Code)
	}
}
