package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"practice_app_echo/internal/services"
)

type UserHandler struct {
	users *services.UserDirectory
}

func NewUserHandler(users *services.UserDirectory) *UserHandler {
	return &UserHandler{users: users}
}

// Me returns the authenticated therapist account
func (h *UserHandler) Me(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	user, err := h.users.FindByID(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":       user.ID,
		"name":     user.Name,
		"email":    user.Email,
		"userType": user.UserType,
	})
}
