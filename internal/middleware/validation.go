package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/discharge-api/pkg/httputil"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationConfig struct {
	CustomErrorMessages map[string]string
}

func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		CustomErrorMessages: map[string]string{
			"required": "Field is required",
			"uuid":     "Must be a valid UUID",
			"min":      "Value is too small",
			"max":      "Value is too long",
		},
	}
}

var registerTagNames sync.Once

// Validation reports binding validation failures as a 400 listing each field
// by its json name.
func Validation(config ValidationConfig) gin.HandlerFunc {
	registerTagNames.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(func(fld reflect.StructField) string {
				for _, tag := range []string{"json", "form"} {
					name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
					if name == "-" {
						return fld.Name
					}
					if name != "" {
						return name
					}
				}
				return fld.Name
			})
		}
	})

	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		var fields []ValidationError
		for _, ginErr := range c.Errors {
			var errs validator.ValidationErrors
			if !errors.As(ginErr.Err, &errs) {
				continue
			}
			for _, e := range errs {
				msg := config.CustomErrorMessages[e.Tag()]
				if msg == "" {
					msg = e.Error()
				}
				fields = append(fields, ValidationError{Field: e.Field(), Message: msg})
			}
		}

		if len(fields) > 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, &httputil.Response{
				Status:  "error",
				Message: "invalid request",
				Data:    gin.H{"errors": fields},
			})
		}
	}
}
