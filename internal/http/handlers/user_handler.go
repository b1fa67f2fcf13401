// User HTTP handlers.
//
// This file exposes the minimal account surface:
//   - POST /api/users  (registration)
//
// Login and session authentication are handled by the identity frontend and
// are not part of this service.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hearu/hearu-backend/internal/domain"
	"github.com/hearu/hearu-backend/internal/services"
)

// RegisterUserRequest is the payload for creating an account.
type RegisterUserRequest struct {
	Username string `form:"username" json:"username" binding:"required,min=1,max=64" example:"ada"`
	Email    string `form:"email"    json:"email"    example:"ada@example.com"`
	Password string `form:"password" json:"password" binding:"required,min=1" example:"s3cret"`
}

// RegisterUserResponse confirms a created account. The password hash is
// never serialized.
type RegisterUserResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"User registered successfully"`
	Data    struct {
		User *domain.User `json:"user"`
	} `json:"data"`
}

// RegisterUser godoc
// @ID          registerUser
// @Summary     Register a new user
// @Description Creates an account with a unique username; the password is stored as a bcrypt hash.
// @Tags        Users
// @Accept      json
// @Accept      x-www-form-urlencoded
// @Produce     json
// @Param       body  body  handlers.RegisterUserRequest  true  "Account payload"
// @Success     201  {object}  handlers.RegisterUserResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing username or password"
// @Failure     409  {object}  handlers.ErrorResponse  "Username already taken"
// @Router      /api/users [post]
func (h *Handlers) RegisterUser(c *gin.Context) {
	ctx := c.Request.Context()

	var req RegisterUserRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, msgMissingSignup, true)
		return
	}

	u, err := h.userSvc.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			fail(c, http.StatusBadRequest, msgMissingSignup, true)
		case errors.Is(err, services.ErrDuplicateUser):
			fail(c, http.StatusConflict, msgUsernameTaken, true)
		default:
			fail(c, http.StatusInternalServerError, err.Error(), false)
		}
		return
	}

	resp := RegisterUserResponse{Success: true, Message: "User registered successfully"}
	resp.Data.User = u
	ok(c, http.StatusCreated, resp)
}
