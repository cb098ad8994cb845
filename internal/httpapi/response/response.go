// Package response renders the wire envelope used by every promptsmith
// endpoint: bare JSON payloads on success, {"error":{code,message,
// request_id}} on failure.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/choiwab/promptsmith/internal/platform/apierr"
)

type apiErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

type errorEnvelope struct {
	Error apiErrorBody `json:"error"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// RespondError renders status/code/err as the error envelope. request_id is
// read back from the gin context, where AttachTraceContext middleware
// stashes it.
func RespondError(c *gin.Context, status int, code string, err error) {
	msg := code
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, errorEnvelope{Error: apiErrorBody{
		Code:      code,
		Message:   msg,
		RequestID: c.GetString("request_id"),
	}})
}

// RespondAPIError unwraps an *apierr.Error into its status/code, falling
// back to a generic 500 for anything else.
func RespondAPIError(c *gin.Context, err error) {
	if apiErr, ok := err.(*apierr.Error); ok {
		RespondError(c, apiErr.Status, apiErr.Code, apiErr.Err)
		return
	}
	RespondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err)
}
