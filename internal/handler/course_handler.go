package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ccrm-api/internal/models"
	"github.com/noah-isme/ccrm-api/internal/service"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
	"github.com/noah-isme/ccrm-api/pkg/response"
)

// CourseHandler exposes the course catalogue.
type CourseHandler struct {
	courses     *service.CourseService
	enrollments *service.EnrollmentService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses *service.CourseService, enrollments *service.EnrollmentService) *CourseHandler {
	return &CourseHandler{courses: courses, enrollments: enrollments}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Param department query string false "Department, e.g. COMPUTER_SCIENCE"
// @Param semester query string false "SPRING, SUMMER or FALL"
// @Param instructor_id query string false "Owning instructor"
// @Param active query bool false "Filter by active state"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	var filter models.CourseFilter
	var err error
	if raw := c.Query("department"); raw != "" {
		if filter.Department, err = models.ParseDepartment(raw); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
			return
		}
	}
	if raw := c.Query("semester"); raw != "" {
		if filter.Semester, err = models.ParseSemester(raw); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
			return
		}
	}
	filter.InstructorID = c.Query("instructor_id")
	if filter.Active, err = boolQuery(c, "active"); err != nil {
		response.Error(c, err)
		return
	}

	courses, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, courses)
}

// Search godoc
// @Summary Search courses by field
// @Tags Courses
// @Produce json
// @Param field query string true "id, code, title, credits, instructor_id, semester, department, active"
// @Param op query string false "Search operator"
// @Param value query string true "Value to compare"
// @Success 200 {object} response.Envelope
// @Router /courses/search [get]
func (h *CourseHandler) Search(c *gin.Context) {
	req, ok := bindSearch(c)
	if !ok {
		return
	}
	criteria, err := service.ParseCourseSearch(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, h.courses.Search(c.Request.Context(), criteria))
}

// Get godoc
// @Summary Get course detail
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	count, err := h.courses.EnrollmentCount(c.Request.Context(), course.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"course": course, "active_enrollments": count})
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req service.CreateCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.courses.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body service.UpdateCourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	var req service.UpdateCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.courses.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Deactivate godoc
// @Summary Deactivate course
// @Tags Courses
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 204
// @Router /courses/{id} [delete]
func (h *CourseHandler) Deactivate(c *gin.Context) {
	if err := h.courses.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Enrollments godoc
// @Summary List a course's enrollments
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Param active query bool false "Filter by active state"
// @Param completed query bool false "Filter by completion"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/enrollments [get]
func (h *CourseHandler) Enrollments(c *gin.Context) {
	filter, err := enrollmentFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.enrollments.CourseEnrollments(c.Request.Context(), c.Param("id"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, rows)
}
