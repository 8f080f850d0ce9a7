package internal

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"rp-portal/internal/logging"
)

type errKind int

const (
	errValidation errKind = iota
	errForbidden
	errConflict
	errInvalidState
	errNotFound
	errUpstream
)

// apiError is the error taxonomy shared by the workflow engines.
// Messages are user-facing and surfaced verbatim at the boundary.
type apiError struct {
	kind errKind
	msg  string
}

func (e *apiError) Error() string { return e.msg }

func validationf(format string, args ...any) error {
	return &apiError{kind: errValidation, msg: fmt.Sprintf(format, args...)}
}

func forbiddenf(format string, args ...any) error {
	return &apiError{kind: errForbidden, msg: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) error {
	return &apiError{kind: errConflict, msg: fmt.Sprintf(format, args...)}
}

func invalidStatef(format string, args ...any) error {
	return &apiError{kind: errInvalidState, msg: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &apiError{kind: errNotFound, msg: fmt.Sprintf(format, args...)}
}

func upstreamf(format string, args ...any) error {
	return &apiError{kind: errUpstream, msg: fmt.Sprintf(format, args...)}
}

var httpStatusByKind = map[errKind]int{
	errValidation:   http.StatusBadRequest,
	errForbidden:    http.StatusForbidden,
	errConflict:     http.StatusConflict,
	errInvalidState: http.StatusConflict,
	errNotFound:     http.StatusNotFound,
	errUpstream:     http.StatusBadGateway,
}

// fail maps an engine error onto the response. Taxonomy errors keep
// their message; anything else is logged and reduced to a generic 500.
func fail(c *gin.Context, err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		c.JSON(httpStatusByKind[ae.kind], gin.H{"error": ae.msg})
		return
	}
	logging.FromContext(c.Request.Context()).Errorw("request failed",
		"method", c.Request.Method, "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
