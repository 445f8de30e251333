package api

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/lalith-99/disputedesk/internal/errs"
)

// respondError maps an application error onto the wire. Kinds map to
// status codes in errs; unknown errors surface as 503 with a generic
// message so internals never leak.
func respondError(c *gin.Context, err error) {
	kind := errs.KindOf(err)

	body := gin.H{"error": string(kind)}
	var appErr *errs.Error
	if errors.As(err, &appErr) {
		body["message"] = appErr.Message
		if appErr.Field != "" {
			body["field"] = appErr.Field
		}
		if appErr.Reason != "" {
			body["reason"] = appErr.Reason
		}
	} else {
		body["message"] = "request failed"
	}

	c.JSON(errs.HTTPStatus(kind), body)
}
