package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"acadence/internal/school"
)

type createClassRequest struct {
	Name            string  `json:"name" binding:"required"`
	Day             string  `json:"day" binding:"required"`
	StartTime       string  `json:"start_time" binding:"required"`
	DurationMinutes int     `json:"duration_minutes" binding:"required,min=1,max=1440"`
	TeacherID       string  `json:"teacher_id" binding:"required"`
	GroupName       string  `json:"group_name" binding:"required,groupname"`
	SubjectCode     *string `json:"subject_code"`
}

func (h *handler) createClass(c *gin.Context) {
	var req createClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	class, err := h.svc.CreateClass(c.Request.Context(), currentUser(c).ID, school.NewClass{
		Name:            req.Name,
		DayOfWeek:       req.Day,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		TeacherID:       req.TeacherID,
		GroupName:       req.GroupName,
		SubjectCode:     req.SubjectCode,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"class": class})
}

func (h *handler) listClasses(c *gin.Context) {
	classes, err := h.svc.ListClasses(c.Request.Context(), school.ClassFilter{
		TeacherID: c.Query("teacher_id"),
		GroupName: c.Query("group_name"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"classes": classes})
}

func (h *handler) getClass(c *gin.Context) {
	class, err := h.svc.GetClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"class": class})
}

func (h *handler) deleteClass(c *gin.Context) {
	if err := h.svc.DeleteClass(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "class deleted"})
}

func (h *handler) classEnrollments(c *gin.Context) {
	roster, err := h.svc.ListClassEnrollments(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": roster})
}

type createEnrollmentRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	ClassID   string `json:"class_id" binding:"required"`
}

func (h *handler) createEnrollment(c *gin.Context) {
	var req createEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	e, err := h.svc.CreateEnrollment(c.Request.Context(), currentUser(c).ID, req.StudentID, req.ClassID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"enrollment": e})
}

type expandRequest struct {
	StudentIDs  []string `json:"student_ids" binding:"required,min=1"`
	SubjectCode string   `json:"subject_code" binding:"required"`
	GroupName   string   `json:"group_name" binding:"required,groupname"`
}

func (h *handler) expandEnrollments(c *gin.Context) {
	var req expandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	res, err := h.svc.Expand(c.Request.Context(), currentUser(c).ID, req.StudentIDs, req.SubjectCode, req.GroupName)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) deleteEnrollment(c *gin.Context) {
	if err := h.svc.DeleteEnrollment(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "enrollment deleted"})
}

func (h *handler) overrideMarks(c *gin.Context) {
	var patch school.MarksPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.badRequest(c, err)
		return
	}
	e, err := h.svc.OverrideMarks(c.Request.Context(), currentUser(c).ID, c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enrollment": e})
}

func (h *handler) activity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	items, err := h.svc.ListActivity(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": items})
}
