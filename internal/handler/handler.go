package handler

import (
	"net/http"

	"retailsync/pkg/apperr"
	"retailsync/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeError maps a service error onto the response envelope. Validation
// errors carry their field messages; everything unclassified is a 500 with a
// generic message so internals never leak to clients.
func writeError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, response.Error("internal server error"))
		return
	}
	if fields := apperr.FieldsOf(err); fields != nil {
		c.JSON(status, response.ValidationError(err.Error(), fields))
		return
	}
	c.JSON(status, response.Error(err.Error()))
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error("invalid request payload: "+err.Error()))
}
