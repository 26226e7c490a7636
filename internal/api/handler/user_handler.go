package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/martijn/accountd/internal/api/dto"
	"github.com/martijn/accountd/internal/core/service"
)

type UserHandler struct {
	accountService *service.AccountService
}

func NewUserHandler(accountService *service.AccountService) *UserHandler {
	return &UserHandler{
		accountService: accountService,
	}
}

// ListUsers handles GET /users. Records are returned verbatim, password
// hashes included.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.accountService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

// Login handles POST /users/:username.
func (h *UserHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	_ = c.ShouldBindJSON(&req) // an unreadable body is an empty password

	token, user, err := h.accountService.Login(c.Request.Context(), c.Param("username"), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		Auth: token,
		User: user,
	})
}

// Register handles POST /users.
func (h *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	_ = c.ShouldBindJSON(&req)

	user, err := h.accountService.Register(c.Request.Context(), req.Username, req.Password, req.Email, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	// The created record spread alongside the user key, mirroring the store's
	// insert result.
	resp := gin.H{}
	for k, v := range user.Document() {
		resp[k] = v
	}
	resp["user"] = user

	c.JSON(http.StatusOK, resp)
}

// Logout handles POST /logout. Only the username is required; no proof of
// identity is presented.
func (h *UserHandler) Logout(c *gin.Context) {
	var req dto.LogoutRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.accountService.Logout(c.Request.Context(), req.Username); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.LogoutResponse{Message: "Logged out successfully."})
}

// UpdateUser handles PATCH /users/:username.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	fields := map[string]any{}
	_ = c.ShouldBindJSON(&fields)

	if err := h.accountService.UpdateProfile(c.Request.Context(), c.Param("username"), fields); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}

// DeleteUser handles DELETE /users.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	var req dto.DeleteRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.accountService.Delete(c.Request.Context(), req.Username); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}

// respondError maps expected failures to their status code. Anything else is a
// store failure and surfaces as an error payload with no status override.
func respondError(c *gin.Context, err error) {
	var svcErr *service.ServiceError
	if errors.As(err, &svcErr) {
		c.JSON(svcErr.Code, dto.ErrorResponse{Error: svcErr.Message})
		return
	}

	c.JSON(http.StatusOK, dto.ErrorResponse{Error: err.Error()})
}
