package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"learninghouse/internal/auth"
)

type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

type PasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type APIKeyRequest struct {
	Description string    `json:"description" binding:"required"`
	Role        auth.Role `json:"role" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	token, err := h.auth.Login(req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

func (h *Handler) changePassword(c *gin.Context) {
	var req PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	if err := h.auth.ChangePassword(req.OldPassword, req.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, true)
}

func (h *Handler) listAPIKeys(c *gin.Context) {
	keys, err := h.auth.ListAPIKeys()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, keys)
}

func (h *Handler) createAPIKey(c *gin.Context) {
	var req APIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	key, err := h.auth.CreateAPIKey(req.Description, req.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, key)
}

func (h *Handler) deleteAPIKey(c *gin.Context) {
	id := c.Param("id")
	if err := h.auth.DeleteAPIKey(id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}
