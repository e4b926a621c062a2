package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"bookline/internal/bookings/conflict"
	"bookline/pkg/logger"
	"bookline/pkg/model"
	"bookline/pkg/sanitizer"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type AppointmentValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewAppointmentValidator(log *logger.Logger) *AppointmentValidator {
	v := validator.New()

	custom := map[string]validator.Func{
		"booking_date":  validateBookingDate,
		"clock_time":    validateClockTime,
		"contact_phone": validateContactPhone,
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatal("Failed to register validator",
				"tag", tag,
				"error", err,
			)
		}
	}

	return &AppointmentValidator{
		validate: v,
		logger:   log,
	}
}

func validateBookingDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(model.DateLayout, fl.Field().String())
	return err == nil
}

func validateClockTime(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if len(value) != len(model.ClockLayout) {
		return false
	}
	_, err := conflict.ParseClock(value)
	return err == nil
}

func validateContactPhone(fl validator.FieldLevel) bool {
	return sanitizer.IsPlausiblePhone(fl.Field().String())
}

func (v *AppointmentValidator) Validate(req *model.AppointmentRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if _, err := conflict.NewInterval(req.StartTime, req.EndTime); err != nil {
		return ValidationErrors{
			ValidationError{
				Field:   "EndTime",
				Message: "end_time must be after start_time",
			},
		}
	}

	if req.CreateCustomer && req.Customer.Phone == "" && req.Customer.Email == "" {
		return ValidationErrors{
			ValidationError{
				Field:   "Customer",
				Message: "a new customer needs a phone or an email",
			},
		}
	}

	return nil
}

func (v *AppointmentValidator) ValidateStatus(update *model.StatusUpdate) error {
	if err := v.validate.Struct(update); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *AppointmentValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s characters", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "booking_date":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		case "clock_time":
			message = fmt.Sprintf("%s must be a 24h time in HH:MM format", err.Field())
		case "contact_phone":
			message = fmt.Sprintf("%s must be a phone number with 7 to 15 digits", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
