package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func errorResponse(c *gin.Context, status int, code ErrorCode) {
	c.AbortWithStatusJSON(status, getErrorStruct(code))
}

func validationErrorResponse(c *gin.Context, err error) {
	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		out := make([]ValidationError, len(verr))
		for i, ferr := range verr {
			out[i] = ValidationError{ferr.Field(), msgForTag(ferr.Tag(), ferr.Param())}
		}
		response := ValidationErrorStruct{
			ErrorCode:    6000,
			ErrorMessage: "Validation error",
		}
		response.Errors = out
		c.JSON(http.StatusBadRequest, response)
		return
	}

	c.JSON(http.StatusBadRequest, ValidationErrorStruct{
		ErrorCode:    6000,
		ErrorMessage: "Validation error",
	})
}

func msgForTag(tag string, value string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "e164":
		return "phone number must be in E.164 format, e.g. +5215555555555"
	case "numeric":
		return "field must contain digits only"
	case "len":
		return fmt.Sprintf("field must be exactly %v characters long", value)
	case "oneof":
		return fmt.Sprintf("field must be one of: %v", value)
	case "min":
		return fmt.Sprintf("field must be at least %v characters long", value)
	case "max":
		return fmt.Sprintf("field must be at most %v characters long", value)
	}
	return tag
}
