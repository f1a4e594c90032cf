package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// ErrorCase pairs a service sentinel error with the HTTP status and client
// message it should produce. Messages are deliberately generic so responses
// never leak which part of a credential check failed.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError writes the response for the first case matching err,
// or the fallback when none does.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	for _, cs := range cases {
		if cs.Err != nil && errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
