package handlers

import (
	"net/http"
	"strconv"

	"studhelp/internal/models"

	"github.com/gin-gonic/gin"
)

// Единый формат ошибок API: {"code": "...", "error": "..."}.
// Коды соответствуют таксономии: not_found / invalid_input /
// illegal_transition / forbidden / conflict / internal.

func abortError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"code": code, "error": msg})
}

func notFound(c *gin.Context, msg string) {
	abortError(c, http.StatusNotFound, "not_found", msg)
}

func badRequest(c *gin.Context, msg string) {
	abortError(c, http.StatusBadRequest, "invalid_input", msg)
}

func forbidden(c *gin.Context, msg string) {
	abortError(c, http.StatusForbidden, "forbidden", msg)
}

func conflict(c *gin.Context, msg string) {
	abortError(c, http.StatusConflict, "conflict", msg)
}

func illegalTransition(c *gin.Context, msg string) {
	abortError(c, http.StatusConflict, "illegal_transition", msg)
}

// внутренние детали наружу не отдаём
func serverError(c *gin.Context) {
	abortError(c, http.StatusInternalServerError, "internal", "Внутренняя ошибка сервера")
}

// currentUser — пользователь, которого положил middleware.InjectUser
func currentUser(c *gin.Context) (models.User, bool) {
	uVal, ok := c.Get("CurrentUser")
	if !ok {
		return models.User{}, false
	}
	switch u := uVal.(type) {
	case models.User:
		return u, true
	case *models.User:
		return *u, true
	}
	return models.User{}, false
}

// paramID — числовой :id из пути
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "Некорректный ID")
		return 0, false
	}
	return uint(id), true
}
