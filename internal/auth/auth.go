package auth

import (
	"cagchat/internal/errs"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type SignupForm struct {
	Name     string  `form:"name" binding:"required"`
	Email    string  `form:"email" binding:"required,email"`
	Country  string  `form:"country" binding:"required"`
	Password string  `form:"password" binding:"required"`
	Purpose  *string `form:"purpose"`
}

type LoginForm struct {
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required"`
}

func (h *Handler) Signup(ctx *gin.Context) {
	var form SignupForm
	if err := ctx.ShouldBind(&form); err != nil {
		ctx.JSON(
			http.StatusUnprocessableEntity,
			gin.H{"detail": err.Error()},
		)
		return
	}

	user, err := h.service.Signup(ctx.Request.Context(), SignupRequest{
		Name:     form.Name,
		Email:    form.Email,
		Country:  form.Country,
		Password: form.Password,
		Purpose:  form.Purpose,
	})
	if err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			ctx.JSON(
				http.StatusBadRequest,
				gin.H{"detail": "User already exists"},
			)
			return
		}
		h.logger.Error("Failed to create user", "error", err)
		ctx.JSON(
			http.StatusInternalServerError,
			gin.H{"detail": "Internal server error"},
		)
		return
	}

	h.logger.Info("User registered", "user_id", user.ID)
	ctx.JSON(http.StatusOK, gin.H{
		"user_id": user.ID,
		"name":    user.Name,
		"email":   user.Email,
		"message": "User registered successfully!",
	})
}

func (h *Handler) Login(ctx *gin.Context) {
	var form LoginForm
	if err := ctx.ShouldBind(&form); err != nil {
		ctx.JSON(
			http.StatusUnprocessableEntity,
			gin.H{"detail": err.Error()},
		)
		return
	}

	user, ok := h.service.Authenticate(ctx.Request.Context(), form.Email, form.Password)
	if !ok {
		ctx.JSON(
			http.StatusUnauthorized,
			gin.H{"detail": "Invalid email or password"},
		)
		return
	}

	token, err := h.service.IssueToken(user)
	if err != nil {
		h.logger.Error("Failed to create token", "user_id", user.ID, "error", err)
		ctx.JSON(
			http.StatusInternalServerError,
			gin.H{"detail": "Internal server error"},
		)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"message":      "Login successful!",
	})
}
