package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/maktab-api/internal/models"
	appErrors "github.com/noah-isme/maktab-api/pkg/errors"
)

// dashboardCachePattern matches every cached dashboard payload.
const dashboardCachePattern = "dash:*"

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// configured tracks validators that already carry the custom tags.
var configured sync.Map

// NewValidator returns a validator with the custom tags used by request
// structs installed. It panics if a tag cannot be registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	if err := installValidators(v); err != nil {
		panic(err)
	}
	configured.Store(v, struct{}{})
	return v
}

// registerValidators installs the custom tags once per validator so services
// sharing an instance do not register them again.
func registerValidators(v *validator.Validate) *validator.Validate {
	if v == nil {
		return NewValidator()
	}
	if _, done := configured.LoadOrStore(v, struct{}{}); done {
		return v
	}
	if err := installValidators(v); err != nil {
		panic(err)
	}
	return v
}

func installValidators(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	tags := map[string]validator.Func{
		"ymd": func(fl validator.FieldLevel) bool {
			raw := fl.Field().String()
			if raw == "" {
				return true
			}
			_, err := models.ParseDate(raw)
			return err == nil
		},
		"attendance_status": func(fl validator.FieldLevel) bool {
			return models.AttendanceStatus(strings.ToLower(strings.TrimSpace(fl.Field().String()))).Valid()
		},
		"field_type": func(fl validator.FieldLevel) bool {
			raw := models.FieldType(fl.Field().String())
			for _, t := range models.FieldTypes {
				if t == raw {
					return true
				}
			}
			return false
		},
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %q validation: %w", tag, err)
		}
	}
	return nil
}

// validationError turns validator output into a 400 naming the first offending field.
func validationError(err error, message string) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			return appErrors.Validation(err, field+" is required")
		default:
			return appErrors.Validation(err, "invalid "+field)
		}
	}
	return appErrors.Validation(err, message)
}

func invalidateDashboard(ctx context.Context, cache cacheInvalidator, logger *zap.Logger) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, dashboardCachePattern); err != nil {
		logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func parseOptionalDate(raw, field string) (*models.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return nil, appErrors.Validation(err, "invalid "+field+", expected YYYY-MM-DD")
	}
	return &d, nil
}
