package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/maktab-api/internal/models"
	appErrors "github.com/noah-isme/maktab-api/pkg/errors"
)

type fieldRepository interface {
	List(ctx context.Context, active *bool) ([]models.Field, error)
	FindByID(ctx context.Context, id string) (*models.Field, error)
	FindByName(ctx context.Context, name string) (*models.Field, error)
	Create(ctx context.Context, field *models.Field) error
	Update(ctx context.Context, field *models.Field) error
	Deactivate(ctx context.Context, id string) error
}

// FieldRequest defines or edits a custom student field. Name is ignored on update.
type FieldRequest struct {
	Name      string   `json:"name"`
	Label     string   `json:"label" validate:"required,max=100"`
	Type      string   `json:"type" validate:"required,field_type"`
	Required  bool     `json:"required"`
	Visible   *bool    `json:"visible"`
	Options   []string `json:"options"`
	SortOrder int      `json:"sort_order"`
	Active    *bool    `json:"active"`
}

var fieldSlug = regexp.MustCompile(`^[a-z0-9_]+$`)

// FieldService manages the dynamic student schema.
type FieldService struct {
	repo      fieldRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFieldService constructs a FieldService.
func NewFieldService(repo fieldRepository, validate *validator.Validate, logger *zap.Logger) *FieldService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FieldService{repo: repo, validator: registerValidators(validate), logger: logger}
}

// List returns field definitions ordered for display.
func (s *FieldService) List(ctx context.Context, active *bool) ([]models.Field, error) {
	fields, err := s.repo.List(ctx, active)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list fields")
	}
	return fields, nil
}

// Create adds a field definition.
func (s *FieldService) Create(ctx context.Context, req FieldRequest) (*models.Field, error) {
	req.Name = strings.ToLower(strings.TrimSpace(req.Name))
	if !fieldSlug.MatchString(req.Name) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name must contain only lowercase letters, digits and underscores")
	}
	options, err := s.validateRequest(req)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByName(ctx, req.Name); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "field name already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to check field name")
	}

	field := &models.Field{
		Name:      req.Name,
		Label:     strings.TrimSpace(req.Label),
		Type:      models.FieldType(req.Type),
		Required:  req.Required,
		Visible:   true,
		Options:   options,
		SortOrder: req.SortOrder,
		Active:    true,
	}
	if req.Visible != nil {
		field.Visible = *req.Visible
	}
	if req.Active != nil {
		field.Active = *req.Active
	}
	if err := s.repo.Create(ctx, field); err != nil {
		return nil, appErrors.Internal(err, "failed to create field")
	}
	return field, nil
}

// Update edits a field definition keeping its name.
func (s *FieldService) Update(ctx context.Context, id string, req FieldRequest) (*models.Field, error) {
	options, err := s.validateRequest(req)
	if err != nil {
		return nil, err
	}
	field, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "field not found")
		}
		return nil, appErrors.Internal(err, "failed to fetch field")
	}

	field.Label = strings.TrimSpace(req.Label)
	field.Type = models.FieldType(req.Type)
	field.Required = req.Required
	field.Options = options
	field.SortOrder = req.SortOrder
	if req.Visible != nil {
		field.Visible = *req.Visible
	}
	if req.Active != nil {
		field.Active = *req.Active
	}
	if err := s.repo.Update(ctx, field); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "field not found")
		}
		return nil, appErrors.Internal(err, "failed to update field")
	}
	return field, nil
}

// Delete deactivates a field. Stored values are kept.
func (s *FieldService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "field not found")
		}
		return appErrors.Internal(err, "failed to delete field")
	}
	return nil
}

func (s *FieldService) validateRequest(req FieldRequest) (models.FieldOptions, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid field payload")
	}
	options := models.FieldOptions{}
	seen := make(map[string]struct{}, len(req.Options))
	for _, opt := range req.Options {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		if _, dup := seen[opt]; dup {
			continue
		}
		seen[opt] = struct{}{}
		options = append(options, opt)
	}
	if models.FieldType(req.Type) == models.FieldSelect && len(options) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "select fields need at least one option")
	}
	if models.FieldType(req.Type) != models.FieldSelect {
		options = models.FieldOptions{}
	}
	return options, nil
}

// resolveFieldValues checks custom field input against the active schema and
// returns the values to store keyed by field id. existing holds the current
// values by field name and is only consulted for required checks.
func resolveFieldValues(fields []models.Field, input, existing map[string]string) (map[string]string, error) {
	byName := make(map[string]models.Field, len(fields))
	for _, f := range fields {
		if f.Active {
			byName[f.Name] = f
		}
	}

	values := make(map[string]string, len(input))
	for name, raw := range input {
		field, ok := byName[name]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown field %q", name))
		}
		value, err := normaliseFieldValue(field, raw)
		if err != nil {
			return nil, err
		}
		values[field.ID] = value
	}

	for _, field := range byName {
		if !field.Required {
			continue
		}
		value, provided := input[field.Name]
		if !provided {
			value = existing[field.Name]
		}
		if strings.TrimSpace(value) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is required", field.Label))
		}
	}
	return values, nil
}

func normaliseFieldValue(field models.Field, raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", nil
	}
	invalid := func(expect string) error {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be %s", field.Label, expect))
	}
	switch field.Type {
	case models.FieldNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return "", invalid("a number")
		}
	case models.FieldDate:
		d, err := models.ParseDate(value)
		if err != nil {
			return "", invalid("a date (YYYY-MM-DD)")
		}
		value = d.String()
	case models.FieldCheckbox:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", invalid("true or false")
		}
		value = strconv.FormatBool(b)
	case models.FieldSelect:
		for _, opt := range field.Options {
			if opt == value {
				return value, nil
			}
		}
		return "", invalid("one of " + strings.Join(field.Options, ", "))
	case models.FieldText, models.FieldTextarea:
		value = raw
	}
	return value, nil
}
