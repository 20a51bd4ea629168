package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/clip-board/domain"
	"github.com/Guyuepp/clip-board/internal/repository"
	"github.com/Guyuepp/clip-board/internal/rest/middleware"
	"github.com/Guyuepp/clip-board/internal/rest/request"
	"github.com/Guyuepp/clip-board/internal/rest/response"
)

// ResponseError represent the response error struct
type ResponseError struct {
	Message string `json:"message"`
}

// ValidationError lists every message of a rejected request
type ValidationError struct {
	Errors []string `json:"errors"`
}

// PostHandler represent the httphandler for posts
type PostHandler struct {
	Service domain.PostUsecase
}

func NewPostHandler(svc domain.PostUsecase) *PostHandler {
	return &PostHandler{
		Service: svc,
	}
}

// Register mounts the /posts routes. auth guards writes, optionalAuth the feed.
func (h *PostHandler) Register(r gin.IRouter, auth, optionalAuth gin.HandlerFunc) {
	posts := r.Group("/posts")
	posts.GET("", optionalAuth, h.FetchPosts)
	posts.PATCH("/:id", auth, h.PatchPost)
	posts.DELETE("/:id", auth, h.DeletePost)
}

// FetchPosts will fetch a page of posts based on given query params
func (h *PostHandler) FetchPosts(c *gin.Context) {
	var req request.FetchPosts
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ValidationError{Errors: []string{err.Error()}})
		return
	}
	if req.Limit != 0 && (req.Limit < repository.PageMinNum || req.Limit > repository.PageMaxNum) {
		logrus.Warnf("Invalid param 'limit': %d", req.Limit)
		req.Limit = repository.DefaultPageNum
	}

	var viewer *domain.User
	if u, ok := middleware.CurrentUser(c); ok {
		viewer = &u
	}

	page, err := h.Service.Fetch(c.Request.Context(), viewer, req.ToDomain(), req.Cursor)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header(`X-cursor`, page.NextCursor)
	c.JSON(http.StatusOK, response.NewPageFromDomain(&page))
}

// PatchPost applies a partial update and answers with the canonical post
func (h *PostHandler) PatchPost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	var req request.PostPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ValidationError{Errors: []string{err.Error()}})
		return
	}

	viewer, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ResponseError{Message: domain.ErrUnauthorized.Error()})
		return
	}

	post, err := h.Service.Patch(c.Request.Context(), viewer, id, req.ToDomain())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewPostFromDomain(&post))
}

// DeletePost will delete the post by given param
func (h *PostHandler) DeletePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	viewer, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ResponseError{Message: domain.ErrUnauthorized.Error()})
		return
	}

	if err := h.Service.Delete(c.Request.Context(), viewer, id); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func postID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, ResponseError{Message: domain.ErrNotFound.Error()})
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	code := getStatusCode(err)
	if errors.Is(err, domain.ErrCategoryConflict) || errors.Is(err, domain.ErrBadParamInput) {
		c.JSON(code, ValidationError{Errors: domain.ExtractErrorMessages(err)})
		return
	}
	c.JSON(code, ResponseError{Message: err.Error()})
}

// getStatusCode will get the code of the error from domain.PostUsecase
func getStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	logrus.Error(err)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBadParamInput), errors.Is(err, domain.ErrCategoryConflict):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
