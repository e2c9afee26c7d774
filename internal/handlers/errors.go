package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jason-s-yu/showtime/engine"
	"github.com/jason-s-yu/showtime/internal/database"
	log "github.com/sirupsen/logrus"
)

// statusFor maps a command error to an HTTP status.
func statusFor(err error) int {
	switch engine.KindOf(err) {
	case engine.KindNotFound:
		return http.StatusNotFound
	case engine.KindForbidden:
		return http.StatusForbidden
	case engine.KindInvalidArgument:
		return http.StatusBadRequest
	case engine.KindTableFull, engine.KindAlreadySeated, engine.KindInvalidPhase,
		engine.KindNotYourTurn, engine.KindConcurrentModification:
		return http.StatusConflict
	case "":
	default:
		return http.StatusUnprocessableEntity
	}
	switch {
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, database.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	if kind := engine.KindOf(err); kind != "" {
		body["kind"] = kind
	}
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		body["error"] = "internal error"
	}
	c.AbortWithStatusJSON(status, body)
}
