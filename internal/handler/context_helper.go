package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ccrm-api/internal/models"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
	"github.com/noah-isme/ccrm-api/pkg/response"
)

// boolQuery parses an optional true/false query parameter.
func boolQuery(c *gin.Context, name string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "query parameter "+name+" must be true or false")
	}
	return &v, nil
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

func bindSearch(c *gin.Context) (models.SearchRequest, bool) {
	var req models.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid search query"))
		return req, false
	}
	return req, true
}

func enrollmentFilter(c *gin.Context) (models.EnrollmentFilter, error) {
	var filter models.EnrollmentFilter
	var err error
	if filter.Active, err = boolQuery(c, "active"); err != nil {
		return filter, err
	}
	if filter.Completed, err = boolQuery(c, "completed"); err != nil {
		return filter, err
	}
	return filter, nil
}
