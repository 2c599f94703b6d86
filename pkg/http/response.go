package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// SuccessResponse writes data inside the standard envelope.
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, APIResponse{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    data,
	})
}

// ListResponse writes a list payload with its total count.
func ListResponse(c echo.Context, rows interface{}, total int64) error {
	return SuccessResponse(c, &ListDataResponse{
		Rows:  rows,
		Total: total,
	})
}
