package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handler) studentClasses(c *gin.Context) {
	classes, err := h.svc.StudentClasses(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"classes": classes})
}

func (h *handler) studentReport(c *gin.Context) {
	progress, err := h.svc.StudentReport(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": currentUser(c), "classes": progress})
}
