package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"acadence/internal/school"
)

func (h *handler) teacherClasses(c *gin.Context) {
	classes, err := h.svc.ListClasses(c.Request.Context(), school.ClassFilter{TeacherID: currentUser(c).ID})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"classes": classes})
}

func (h *handler) teacherRoster(c *gin.Context) {
	roster, err := h.svc.TeacherRoster(c.Request.Context(), currentUser(c).ID, c.Param("classId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": roster})
}

type attendanceLine struct {
	StudentID string `json:"studentId" binding:"required"`
	Status    string `json:"status" binding:"required"`
}

type submitAttendanceRequest struct {
	ClassID           string           `json:"classId" binding:"required"`
	Date              string           `json:"date" binding:"required"`
	AttendanceRecords []attendanceLine `json:"attendanceRecords" binding:"dive"`
}

func (h *handler) submitAttendance(c *gin.Context) {
	var req submitAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	date, err := h.svc.ParseDay(req.Date)
	if err != nil {
		h.fail(c, err)
		return
	}
	submitted := make(map[string]school.AttendanceStatus, len(req.AttendanceRecords))
	for _, line := range req.AttendanceRecords {
		submitted[line.StudentID] = school.AttendanceStatus(line.Status)
	}
	res, err := h.svc.Finalize(c.Request.Context(), currentUser(c).ID, req.ClassID, date, submitted)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) attendanceReport(c *gin.Context) {
	date, err := h.svc.ParseDay(c.Param("date"))
	if err != nil {
		h.fail(c, err)
		return
	}
	report, err := h.svc.Report(c.Request.Context(), currentUser(c).ID, c.Param("classId"), date)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type marksLine struct {
	StudentID string   `json:"studentId" binding:"required"`
	Marks     *float64 `json:"marks" binding:"required"`
}

type uploadMarksRequest struct {
	ClassID   string      `json:"classId" binding:"required"`
	Section   string      `json:"section" binding:"required"`
	MarksData []marksLine `json:"marksData" binding:"required,min=1,dive"`
}

func (h *handler) uploadMarks(c *gin.Context) {
	var req uploadMarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	entries := make([]school.MarksEntry, len(req.MarksData))
	for i, line := range req.MarksData {
		entries[i] = school.MarksEntry{StudentID: line.StudentID, Marks: *line.Marks}
	}
	res, err := h.svc.Upload(c.Request.Context(), currentUser(c).ID, req.ClassID, req.Section, entries)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
