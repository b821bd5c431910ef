// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/loglens/internal/models"
)

// singleton validator instance
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is a single field validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

// RequestValidationError collects the field failures of one request.
type RequestValidationError struct {
	Fields []FieldError
}

// Error implements the error interface, returning a combined error message.
func (ve *RequestValidationError) Error() string {
	if len(ve.Fields) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		messages[i] = f.Message
	}
	return strings.Join(messages, "; ")
}

// ToAPIError converts the failure to the VALIDATION_ERROR response body.
func (ve *RequestValidationError) ToAPIError() *models.APIError {
	apiErr := &models.APIError{
		Code:    "VALIDATION_ERROR",
		Message: ve.Error(),
	}
	if len(ve.Fields) == 1 {
		f := ve.Fields[0]
		apiErr.Details = map[string]interface{}{
			"field": f.Field,
			"tag":   f.Tag,
			"value": f.Value,
		}
	} else if len(ve.Fields) > 1 {
		apiErr.Details = map[string]interface{}{"fields": ve.Fields}
	}
	return apiErr
}

// GetValidator returns the singleton validator instance with the loglens
// custom tags registered. Field names in errors come from the `query` tag
// when present so messages match the request parameters.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(queryTagName)

		mustRegister("severity", validSeverity)
		mustRegister("bucket", validBucket)
	})

	return validate
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

func queryTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

// validSeverity accepts low, medium, high and critical.
func validSeverity(fl validator.FieldLevel) bool {
	return models.Severity(fl.Field().String()).Rank() > 0
}

// validBucket accepts Go durations between one minute and one day.
func validBucket(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(fl.Field().String())
	if err != nil {
		return false
	}
	return d >= time.Minute && d <= 24*time.Hour
}

// ValidateStruct validates a struct using the singleton validator.
// Returns nil if validation passes, or *RequestValidationError if it fails.
//
//	if verr := validation.ValidateStruct(&params); verr != nil {
//	    respondError(w, http.StatusBadRequest, verr.ToAPIError())
//	    return
//	}
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{
			Fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}},
		}
	}

	fields := make([]FieldError, len(validationErrs))
	for i, fe := range validationErrs {
		fields[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Value:   fe.Value(),
			Message: translateError(fe),
		}
	}
	return &RequestValidationError{Fields: fields}
}

// errorMessageTemplates maps validation tags to message templates.
var errorMessageTemplates = map[string]string{
	"required": "%s is required",
	"severity": "%s must be one of: low, medium, high, critical",
	"bucket":   "%s must be a duration between 1m and 24h",
	"datetime": "%s must be a valid date/time in RFC3339 format",
	"ip":       "%s must be a valid IP address",
}

// errorMessageWithParam maps validation tags to templates that include param.
var errorMessageWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"min":   "%s must be at least %s",
	"max":   "%s must be at most %s",
}

// translateError converts a validator.FieldError to a human-readable message.
func translateError(fe validator.FieldError) string {
	if template, ok := errorMessageTemplates[fe.Tag()]; ok {
		return fmt.Sprintf(template, fe.Field())
	}
	if template, ok := errorMessageWithParam[fe.Tag()]; ok {
		return fmt.Sprintf(template, fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}
