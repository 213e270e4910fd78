package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ccrm-api/internal/service"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
	"github.com/noah-isme/ccrm-api/pkg/response"
)

// EnrollmentHandler exposes the enrollment rules over HTTP.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Enroll godoc
// @Summary Enroll a student in a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.EnrollRequest true "Enrollment target"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req service.EnrollRequest
	if !bindJSON(c, &req) {
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), req.StudentID, req.CourseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Withdraw godoc
// @Summary Withdraw a student from a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.EnrollRequest true "Enrollment target"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/withdraw [post]
func (h *EnrollmentHandler) Withdraw(c *gin.Context) {
	var req service.EnrollRequest
	if !bindJSON(c, &req) {
		return
	}
	enrollment, err := h.enrollments.Withdraw(c.Request.Context(), req.StudentID, req.CourseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, enrollment)
}

// RecordGrade godoc
// @Summary Record a numeric grade
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.RecordGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /enrollments/grade [post]
func (h *EnrollmentHandler) RecordGrade(c *gin.Context) {
	var req service.RecordGradeRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.NumericGrade == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "numeric_grade is required"))
		return
	}
	enrollment, err := h.enrollments.RecordGrade(c.Request.Context(), req.StudentID, req.CourseID, *req.NumericGrade)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, enrollment)
}

// Eligibility godoc
// @Summary Check whether an enrollment would be accepted
// @Tags Enrollments
// @Produce json
// @Param student_id query string true "Student ID"
// @Param course_id query string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/eligibility [get]
func (h *EnrollmentHandler) Eligibility(c *gin.Context) {
	studentID, courseID := c.Query("student_id"), c.Query("course_id")
	response.OK(c, gin.H{
		"student_id": studentID,
		"course_id":  courseID,
		"eligible":   h.enrollments.CanEnroll(studentID, courseID),
	})
}

// Search godoc
// @Summary Search enrollments by field
// @Tags Enrollments
// @Produce json
// @Param field query string true "id, student_id, course_id, grade, letter_grade, completed, active"
// @Param op query string false "Search operator"
// @Param value query string true "Value to compare"
// @Success 200 {object} response.Envelope
// @Router /enrollments/search [get]
func (h *EnrollmentHandler) Search(c *gin.Context) {
	req, ok := bindSearch(c)
	if !ok {
		return
	}
	criteria, err := service.ParseEnrollmentSearch(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, h.enrollments.Search(c.Request.Context(), criteria))
}
