package handler

import (
	"errors"
	"log"
	"net/http"

	"taskify/internal/middleware"
	"taskify/internal/service"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Code  string `json:"code,omitempty"`
}

var statusByKind = map[service.Kind]int{
	service.KindValidation:       http.StatusBadRequest,
	service.KindUnauthorized:     http.StatusUnauthorized,
	service.KindForbidden:        http.StatusForbidden,
	service.KindNotFound:         http.StatusNotFound,
	service.KindConflict:         http.StatusBadRequest,
	service.KindAlreadyCompleted: http.StatusBadRequest,
	service.KindDuplicate:        http.StatusConflict,
	service.KindInternal:         http.StatusInternalServerError,
}

// respondError writes err using the service error taxonomy. Internal details are
// logged and never sent to the client.
func respondError(c *gin.Context, op string, err error) {
	var se *service.Error
	if !errors.As(err, &se) {
		se = service.InternalError(op, err)
	}
	status, ok := statusByKind[se.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %s: %v", c.Request.Method, c.FullPath(), op, err)
		c.JSON(status, ErrorResponse{Error: "internal server error", Kind: string(service.KindInternal)})
		return
	}

	resp := ErrorResponse{Error: se.Message, Kind: string(se.Kind)}
	if se.Code != string(se.Kind) {
		resp.Code = se.Code
	}
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Kind: string(service.KindValidation)})
}

// caller returns the authenticated username, answering 401 when it is missing.
func caller(c *gin.Context) (string, bool) {
	username, ok := middleware.Username(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Not authenticated", Kind: string(service.KindUnauthorized)})
		return "", false
	}
	return username, true
}
