package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arkanhadi/school-admin-api/internal/service"
	appErrors "github.com/arkanhadi/school-admin-api/pkg/errors"
	"github.com/arkanhadi/school-admin-api/pkg/response"
)

// AssignmentHandler exposes the relation mutations: student membership,
// teach-class and teach-subject sets, the class-teacher role and subject
// removal. Every route is a verb-specific single-purpose mutation.
type AssignmentHandler struct {
	service *service.AssignmentService
}

// NewAssignmentHandler constructs an assignment handler.
func NewAssignmentHandler(svc *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

type removeSubjectsRequest struct {
	SubjectIDs []string `json:"subject_ids" binding:"required,min=1"`
}

type classTeacherRequest struct {
	TeacherID string `json:"teacher_id" binding:"required"`
}

// AssignStudent godoc
// @Summary Place a student into a class
// @Tags Assignments
// @Produce json
// @Param id path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Success 204
// @Router /classes/{id}/students/{studentId} [put]
func (h *AssignmentHandler) AssignStudent(c *gin.Context) {
	if err := h.service.AssignStudentToClass(c.Request.Context(), c.Param("id"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RemoveStudent godoc
// @Summary Return a student to the unassigned pool
// @Tags Assignments
// @Produce json
// @Param id path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Success 204
// @Router /classes/{id}/students/{studentId} [delete]
func (h *AssignmentHandler) RemoveStudent(c *gin.Context) {
	if err := h.service.RemoveStudentFromClass(c.Request.Context(), c.Param("id"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RemoveAllStudents godoc
// @Summary Unassign every student of a class
// @Tags Assignments
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/students [delete]
func (h *AssignmentHandler) RemoveAllStudents(c *gin.Context) {
	result, err := h.service.RemoveAllStudentsFromClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if !result.AllSucceeded() {
		status = http.StatusMultiStatus
	}
	response.JSON(c, status, result, nil)
}

// AssignTeacherClass godoc
// @Summary Add a class to a teacher's teach-class set
// @Tags Assignments
// @Produce json
// @Param id path string true "Teacher ID"
// @Param classId path string true "Class ID"
// @Success 204
// @Router /teachers/{id}/classes/{classId} [put]
func (h *AssignmentHandler) AssignTeacherClass(c *gin.Context) {
	if err := h.service.AssignTeacherToClass(c.Request.Context(), c.Param("id"), c.Param("classId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RemoveTeacherClass godoc
// @Summary Remove a class from a teacher's teach-class set
// @Tags Assignments
// @Produce json
// @Param id path string true "Teacher ID"
// @Param classId path string true "Class ID"
// @Success 204
// @Router /teachers/{id}/classes/{classId} [delete]
func (h *AssignmentHandler) RemoveTeacherClass(c *gin.Context) {
	if err := h.service.RemoveTeacherFromClass(c.Request.Context(), c.Param("id"), c.Param("classId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignSubject godoc
// @Summary Make the teacher the subject's teacher
// @Tags Assignments
// @Produce json
// @Param id path string true "Teacher ID"
// @Param subjectId path string true "Subject ID"
// @Success 204
// @Router /teachers/{id}/subjects/{subjectId} [put]
func (h *AssignmentHandler) AssignSubject(c *gin.Context) {
	if err := h.service.UpdateTeachSubject(c.Request.Context(), c.Param("id"), c.Param("subjectId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RemoveSubjects godoc
// @Summary Clear the teacher from the listed subjects
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body removeSubjectsRequest true "Subject IDs"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/subjects [delete]
func (h *AssignmentHandler) RemoveSubjects(c *gin.Context) {
	var req removeSubjectsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.RemoveTeacherSubjects(c.Request.Context(), c.Param("id"), req.SubjectIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if !result.AllSucceeded() {
		status = http.StatusMultiStatus
	}
	response.JSON(c, status, result, nil)
}

// AssignClassTeacher godoc
// @Summary Grant the class-teacher role
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body classTeacherRequest true "Teacher reference"
// @Success 204
// @Router /classes/{id}/class-teacher [put]
func (h *AssignmentHandler) AssignClassTeacher(c *gin.Context) {
	var req classTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.service.AssignClassTeacher(c.Request.Context(), c.Param("id"), req.TeacherID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RemoveClassTeacher godoc
// @Summary Release the class-teacher role
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body classTeacherRequest true "Teacher reference"
// @Success 204
// @Router /classes/{id}/class-teacher [delete]
func (h *AssignmentHandler) RemoveClassTeacher(c *gin.Context) {
	var req classTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.service.RemoveClassTeacher(c.Request.Context(), c.Param("id"), req.TeacherID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteSubject godoc
// @Summary Delete one subject with its timetable entries
// @Tags Assignments
// @Produce json
// @Param id path string true "Subject ID"
// @Success 204
// @Router /subjects/{id} [delete]
func (h *AssignmentHandler) DeleteSubject(c *gin.Context) {
	if err := h.service.DeleteSubject(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteAllSubjects godoc
// @Summary Delete every subject of a class
// @Tags Assignments
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/subjects [delete]
func (h *AssignmentHandler) DeleteAllSubjects(c *gin.Context) {
	deleted, err := h.service.DeleteAllSubjects(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": deleted}, nil)
}
