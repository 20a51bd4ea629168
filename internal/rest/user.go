package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Guyuepp/clip-board/domain"
	"github.com/Guyuepp/clip-board/internal/rest/middleware"
	"github.com/Guyuepp/clip-board/internal/rest/response"
)

// UserHandler represent the httphandler for the caller's account
type UserHandler struct{}

func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// Register mounts GET /users/me behind auth
func (h *UserHandler) Register(r gin.IRouter, auth gin.HandlerFunc) {
	r.GET("/users/me", auth, h.Me)
}

// Me answers with the account the auth middleware resolved
func (h *UserHandler) Me(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ResponseError{Message: domain.ErrUnauthorized.Error()})
		return
	}
	c.JSON(http.StatusOK, response.NewUserFromDomain(&u))
}
