package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/mockinterview/internal/utils"
)

type APIError struct {
	Code      utils.Code `json:"code"`
	Message   string     `json:"message"`
	Retryable bool       `json:"retryable,omitempty"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)
	_ = c.Error(err)

	var ae *utils.AppError
	if errors.As(err, &ae) {
		c.JSON(status, APIError{
			Code:      ae.Code,
			Message:   ae.Message,
			Retryable: utils.Retryable(err),
		})
		return
	}

	c.JSON(status, APIError{
		Code:    utils.CodeInternal,
		Message: http.StatusText(status),
	})
}

// bind decodes the JSON body into dst, writing a 400 on failure.
func bind(c *gin.Context, op string, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return false
	}
	return true
}
