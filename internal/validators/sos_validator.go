package validators

import (
	"fmt"
	"regexp"
	"strings"

	"lifeline/internal/models"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterValidation("object_id", validateObjectID)
	validate.RegisterValidation("phone_number", validatePhoneNumber)
	validate.RegisterValidation("trigger_method", validateTriggerMethod)
	validate.RegisterValidation("pin_code", validatePinCode)
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var messages []string
	for _, err := range v {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

// Fields returns the errors keyed by field for the error response body.
func (v ValidationErrors) Fields() map[string]string {
	fields := make(map[string]string, len(v))
	for _, err := range v {
		fields[err.Field] = err.Message
	}
	return fields
}

// ValidateStruct validates a struct and returns detailed errors
func ValidateStruct(s interface{}) ValidationErrors {
	var validationErrors ValidationErrors

	err := validate.Struct(s)
	if err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, ValidationError{
				Field:   fieldErr.Field(),
				Tag:     fieldErr.Tag(),
				Value:   fmt.Sprintf("%v", fieldErr.Value()),
				Message: messageFor(fieldErr),
			})
		}
	}

	return validationErrors
}

// ValidateTriggerSOS checks a trigger payload beyond struct tags: coordinate
// ranges and battery bounds.
func ValidateTriggerSOS(params *models.TriggerSOSParams) ValidationErrors {
	errs := ValidateStruct(params)

	if params.Location.Latitude < -90 || params.Location.Latitude > 90 ||
		params.Location.Longitude < -180 || params.Location.Longitude > 180 {
		errs = append(errs, ValidationError{
			Field:   "location",
			Tag:     "coordinates",
			Message: "latitude must be in [-90,90] and longitude in [-180,180]",
		})
	}

	if params.TriggerMethod != "" && !isKnownTriggerMethod(string(params.TriggerMethod)) {
		errs = append(errs, ValidationError{
			Field:   "trigger_method",
			Tag:     "trigger_method",
			Value:   string(params.TriggerMethod),
			Message: "unknown trigger method",
		})
	}

	if params.BatteryLevel != nil && (*params.BatteryLevel < 0 || *params.BatteryLevel > 100) {
		errs = append(errs, ValidationError{
			Field:   "battery_level",
			Tag:     "range",
			Value:   fmt.Sprintf("%d", *params.BatteryLevel),
			Message: "battery level must be between 0 and 100",
		})
	}

	return errs
}

func messageFor(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "this field is required"
	case "object_id":
		return "invalid object ID format"
	case "phone_number":
		return "invalid phone number format"
	case "pin_code":
		return "PIN must be 4 to 6 digits"
	default:
		return "invalid value"
	}
}

func validateObjectID(fl validator.FieldLevel) bool {
	_, err := primitive.ObjectIDFromHex(fl.Field().String())
	return err == nil
}

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

func validatePhoneNumber(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(fl.Field().String())
}

func validateTriggerMethod(fl validator.FieldLevel) bool {
	return isKnownTriggerMethod(fl.Field().String())
}

func isKnownTriggerMethod(method string) bool {
	switch models.TriggerMethod(method) {
	case models.TriggerMethodButton, models.TriggerMethodVoice, models.TriggerMethodShake,
		models.TriggerMethodAuto, models.TriggerMethodCrashDetected:
		return true
	}
	return false
}

var pinPattern = regexp.MustCompile(`^\d{4,6}$`)

func validatePinCode(fl validator.FieldLevel) bool {
	return pinPattern.MatchString(fl.Field().String())
}
