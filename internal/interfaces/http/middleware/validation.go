package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/wellnest/backend/internal/domain/shared/valueobject"
	"github.com/wellnest/backend/internal/interfaces/http/dto"
)

// RequestIDKey is the gin context key the RequestID middleware stores the id under
const RequestIDKey = "request_id"

var (
	validatorOnce sync.Once
	validatorErr  error
	translator    ut.Translator
)

type customRule struct {
	tag     string
	message string
	check   validator.Func
}

var customRules = []customRule{
	{"pincode", "{0} must be a 6 digit pincode", func(fl validator.FieldLevel) bool {
		return valueobject.ValidPincode(strings.TrimSpace(fl.Field().String()))
	}},
	{"in_phone", "{0} must be a 10 digit Indian mobile number", func(fl validator.FieldLevel) bool {
		return valueobject.ValidMobile(valueobject.NormalizePhone(fl.Field().String()))
	}},
}

// SetupValidator configures gin's validator once: field names come from json
// (or form) tags, the pincode and in_phone rules are registered and errors
// are rendered with the English translations.
func SetupValidator() error {
	validatorOnce.Do(func() { validatorErr = setupValidator() })
	return validatorErr
}

func setupValidator() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	v.RegisterTagNameFunc(jsonFieldName)

	locale := en.New()
	trans, _ := ut.New(locale, locale).GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(v, trans); err != nil {
		return err
	}
	for _, rule := range customRules {
		if err := v.RegisterValidation(rule.tag, rule.check); err != nil {
			return err
		}
		if err := v.RegisterTranslation(rule.tag, trans, addTranslation(rule.tag, rule.message), translateField); err != nil {
			return err
		}
	}
	translator = trans
	return nil
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		name, _, _ = strings.Cut(fld.Tag.Get("form"), ",")
	}
	return name
}

func addTranslation(tag, message string) validator.RegisterTranslationsFunc {
	return func(trans ut.Translator) error {
		return trans.Add(tag, message, true)
	}
}

func translateField(trans ut.Translator, fe validator.FieldError) string {
	msg, err := trans.T(fe.Tag(), fe.Field())
	if err != nil {
		return fe.Error()
	}
	return msg
}

// FormatValidationErrors turns binding errors into the VALIDATION_ERROR
// envelope with one entry per failing field
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: fieldMessage(fe)})
		}
	}
	return dto.Fail(dto.ErrCodeValidation, "Request validation failed", requestID).WithFields(details)
}

func fieldMessage(fe validator.FieldError) string {
	if translator == nil {
		return fe.Error()
	}
	return fe.Translate(translator)
}

// HandleValidationError writes a 400 with the validation envelope
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, c.GetString(RequestIDKey)))
}
