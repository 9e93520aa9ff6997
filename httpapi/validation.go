package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	gk "github.com/panyam/grovekeep"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type signupRequest struct {
	Email       string `json:"email" validate:"required,max=254"`
	Password    string `json:"password" validate:"required,max=128"`
	DisplayName string `json:"display_name" validate:"max=64"`
	ID          string `json:"id" validate:"omitempty,max=64"`
}

type loginRequest struct {
	Login    string `json:"login" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,max=254"`
}

type resetPasswordRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Token    string `json:"token" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=128"`
}

// decodeRequest reads a JSON body into req and validates it
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, req any) *gk.AuthError {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return gk.NewAuthError(gk.ErrCodeMissingField, "Invalid request body", "")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// formatValidationErrors reports the first failing field
func formatValidationErrors(err error) *gk.AuthError {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return gk.NewAuthError(gk.ErrCodeMissingField, err.Error(), "")
	}
	fe := verrs[0]
	return gk.NewAuthError(gk.ErrCodeMissingField, formatFieldError(fe), fe.Field())
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
