package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/martijn/accountd/internal/api/dto"
	"github.com/martijn/accountd/internal/core/domain"
	"github.com/martijn/accountd/internal/core/repository"
	"github.com/martijn/accountd/internal/core/service"
	"github.com/martijn/accountd/internal/infrastructure/jsonl"
	"golang.org/x/crypto/bcrypt"
)

// testEnv holds all test dependencies
type testEnv struct {
	repo    repository.UserRepository
	tokens  *service.TokenService
	service *service.AccountService
	router  *gin.Engine
}

// setupTestEnv creates a test environment with a jsonl store in a temp dir
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users, err := jsonl.Open(filepath.Join(t.TempDir(), "users.jsonl"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { users.Close() })

	repo := jsonl.NewUserRepository(users)
	tokens := service.NewTokenService("test-secret", "HS256")
	accountService := service.NewAccountService(repo, tokens, bcrypt.MinCost)

	userHandler := NewUserHandler(accountService)

	// Setup gin router in test mode with the production route table
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/users", userHandler.ListUsers)
	router.POST("/users", userHandler.Register)
	router.POST("/users/:username", userHandler.Login)
	router.PATCH("/users/:username", userHandler.UpdateUser)
	router.DELETE("/users", userHandler.DeleteUser)
	router.POST("/logout", userHandler.Logout)
	router.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "Invalid URL.")
	})

	return &testEnv{
		repo:    repo,
		tokens:  tokens,
		service: accountService,
		router:  router,
	}
}

// brokenUserRepository fails every operation with the given error, standing in
// for an unreachable store.
type brokenUserRepository struct {
	err error
}

func (r *brokenUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	return nil, r.err
}

func (r *brokenUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return nil, r.err
}

func (r *brokenUserRepository) Insert(ctx context.Context, user *domain.User) (*domain.User, error) {
	return nil, r.err
}

func (r *brokenUserRepository) SetAuth(ctx context.Context, username, token string) (int64, error) {
	return 0, r.err
}

func (r *brokenUserRepository) ClearAuth(ctx context.Context, username string) (int64, error) {
	return 0, r.err
}

func (r *brokenUserRepository) UpdateFields(ctx context.Context, username string, fields map[string]any) (int64, error) {
	return 0, r.err
}

func (r *brokenUserRepository) Delete(ctx context.Context, username string) (int64, error) {
	return 0, r.err
}

// setupBrokenEnv wires the handler over a store that fails every call
func setupBrokenEnv(t *testing.T, storeErr error) *testEnv {
	t.Helper()

	repo := &brokenUserRepository{err: storeErr}
	tokens := service.NewTokenService("test-secret", "HS256")
	accountService := service.NewAccountService(repo, tokens, bcrypt.MinCost)

	userHandler := NewUserHandler(accountService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/users", userHandler.ListUsers)
	router.POST("/users", userHandler.Register)
	router.POST("/users/:username", userHandler.Login)
	router.PATCH("/users/:username", userHandler.UpdateUser)
	router.DELETE("/users", userHandler.DeleteUser)
	router.POST("/logout", userHandler.Logout)

	return &testEnv{
		repo:    repo,
		tokens:  tokens,
		service: accountService,
		router:  router,
	}
}

// makeRequest performs a request with an optional JSON body
func (env *testEnv) makeRequest(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

// registerUser registers a user over HTTP and returns the created record
func (env *testEnv) registerUser(t *testing.T, username, password, email, name string) map[string]any {
	t.Helper()

	w := env.makeRequest(t, http.MethodPost, "/users", map[string]string{
		"username": username,
		"password": password,
		"email":    email,
		"name":     name,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("failed to register %s: status %d, body %s", username, w.Code, w.Body.String())
	}
	return parseDocument(t, w)
}

// parseDocument parses the response body into a generic JSON object
func parseDocument(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var doc map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("failed to parse response: %v\nBody: %s", err, w.Body.String())
	}
	return doc
}

// parseDocuments parses the response body into a JSON array of objects
func parseDocuments(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()

	var docs []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &docs); err != nil {
		t.Fatalf("failed to parse response: %v\nBody: %s", err, w.Body.String())
	}
	return docs
}

// parseErrorResponse parses the response body into ErrorResponse
func parseErrorResponse(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()

	var resp dto.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, w.Body.String())
	}
	return resp
}
