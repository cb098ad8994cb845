package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/choiwab/promptsmith/internal/httpapi/response"
)

// Health reports liveness; it has no dependencies to probe because the
// in-memory run store and database connection are both checked by the
// process's own startup sequence.
func Health(c *gin.Context) {
	response.RespondOK(c, gin.H{"status": "ok"})
}
