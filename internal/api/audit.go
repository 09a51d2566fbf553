package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/tasktrail/internal/models"
)

// AuditHandler serves the caller's audit log.
type AuditHandler struct {
	reads TaskReader
	log   *logrus.Logger
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(reads TaskReader, log *logrus.Logger) *AuditHandler {
	return &AuditHandler{reads: reads, log: log}
}

// List handles GET /api/v1/task_logs. Entries are returned oldest first and
// include those for tasks that have since been deleted.
func (h *AuditHandler) List(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		return
	}

	entries, err := h.reads.ListLogs(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, h.log, "list task logs", err)
		return
	}

	if entries == nil {
		entries = []models.AuditEntry{}
	}

	c.JSON(http.StatusOK, entries)
}
