package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/clip-board/domain"
)

// ContextUserKey holds the authenticated domain.User
const ContextUserKey = "user"

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// AuthMiddleware rejects requests without a valid Twitch bearer token
func AuthMiddleware(users domain.UserUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": domain.ErrUnauthorized.Error()})
			return
		}

		user, err := users.Authenticate(c.Request.Context(), token)
		if err != nil {
			abortAuth(c, err)
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// OptionalAuthMiddleware attaches the user when a token is present and lets anonymous requests through
func OptionalAuthMiddleware(users domain.UserUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}

		user, err := users.Authenticate(c.Request.Context(), token)
		if err != nil {
			abortAuth(c, err)
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// an invalid token is still a 401 on optional routes so the client can log out
func abortAuth(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrUnauthorized) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": domain.ErrUnauthorized.Error()})
		return
	}
	logrus.Errorf("failed to authenticate request: %v", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": domain.ErrInternalServerError.Error()})
}

// CurrentUser returns the user set by the auth middlewares
func CurrentUser(c *gin.Context) (domain.User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return domain.User{}, false
	}
	u, ok := v.(domain.User)
	return u, ok
}
