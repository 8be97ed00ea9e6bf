package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"practice_app_echo/internal/middleware"
	"practice_app_echo/internal/models"
)

// localDateTimeLayout is the ISO-8601 local date-time without offset, read as UTC
const localDateTimeLayout = "2006-01-02T15:04:05"

func getUintFromContext(c echo.Context, key string) uint {
	val := c.Get(key)
	if val == nil {
		return 0
	}
	uintVal, ok := val.(uint)
	if !ok {
		return 0
	}
	return uintVal
}

func isAdmin(c echo.Context) bool {
	t, _ := c.Get(middleware.ContextUserType).(models.UserType)
	return t == models.UserTypeAdmin
}

func currentUserID(c echo.Context) (uint, error) {
	id := getUintFromContext(c, middleware.ContextUserID)
	if id == 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}
	return id, nil
}

func parseIDParam(c echo.Context, name string) (uint, error) {
	val, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || val == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return uint(val), nil
}

// parseDateTime accepts RFC 3339 or a local ISO date-time
func parseDateTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.ParseInLocation(localDateTimeLayout, value, time.UTC)
}

func parseDateRange(c echo.Context) (time.Time, time.Time, error) {
	startStr, endStr := c.QueryParam("startDate"), c.QueryParam("endDate")
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "startDate and endDate are required")
	}
	start, err := parseDateTime(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "Invalid startDate")
	}
	end, err := parseDateTime(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "Invalid endDate")
	}
	return start, end, nil
}
