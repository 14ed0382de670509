package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/maktab-api/internal/models"
	appErrors "github.com/noah-isme/maktab-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ExistsByMobile(ctx context.Context, mobile, excludeID string) (bool, error)
	ExistsByIDNumber(ctx context.Context, idNumber, excludeID string) (bool, error)
	RollNumbers(ctx context.Context, classID string, band models.RollBand, excludeID string) ([]int, error)
	Create(ctx context.Context, student *models.Student, values map[string]string) error
	Update(ctx context.Context, student *models.Student, values map[string]string) error
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	FieldValues(ctx context.Context, studentIDs []string) (map[string]map[string]string, error)
}

type classFinder interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type fieldLister interface {
	List(ctx context.Context, active *bool) ([]models.Field, error)
}

// StudentRequest is the create and update payload of a student. On update the
// mutable columns are replaced and custom fields are merged.
type StudentRequest struct {
	Name             string            `json:"name" validate:"required,max=150"`
	FatherName       string            `json:"father_name" validate:"max=150"`
	MotherName       string            `json:"mother_name" validate:"max=150"`
	Mobile           string            `json:"mobile" validate:"max=20"`
	IDNumber         string            `json:"id_number" validate:"max=50"`
	District         string            `json:"district" validate:"max=100"`
	Upazila          string            `json:"upazila" validate:"max=100"`
	Address          string            `json:"address" validate:"max=500"`
	ClassID          string            `json:"class_id" validate:"required"`
	RollNumber       *int              `json:"roll_number" validate:"omitempty,gt=0"`
	RegistrationDate string            `json:"registration_date" validate:"omitempty,ymd"`
	Active           *bool             `json:"active"`
	CustomFields     map[string]string `json:"custom_fields"`
}

// NextRoll previews the roll number a new student of a class would get.
type NextRoll struct {
	ClassID    string          `json:"class_id"`
	RollNumber int             `json:"roll_number"`
	Band       models.RollBand `json:"band"`
}

// StudentService handles student business logic.
type StudentService struct {
	repo      studentRepository
	classes   classFinder
	fields    fieldLister
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, classes classFinder, fields fieldLister, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:      repo,
		classes:   classes,
		fields:    fields,
		cache:     cache,
		validator: registerValidators(validate),
		logger:    logger,
	}
}

// nextRoll returns the first free roll number of band given the used ones.
func nextRoll(used []int, band models.RollBand) (int, bool) {
	sorted := append([]int(nil), used...)
	sort.Ints(sorted)
	candidate := band.Min
	for _, roll := range sorted {
		if roll < candidate {
			continue
		}
		if roll > candidate {
			break
		}
		candidate++
	}
	if candidate > band.Max {
		return 0, false
	}
	return candidate, true
}

// List returns paginated students with their custom field values.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	filter.Search = strings.TrimSpace(filter.Search)

	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list students")
	}
	if err := s.attachCustomFields(ctx, students); err != nil {
		return nil, nil, err
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return students, pagination, nil
}

// Get returns detailed student information.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	details := []models.StudentDetail{*student}
	if err := s.attachCustomFields(ctx, details); err != nil {
		return nil, err
	}
	return &details[0], nil
}

// NextRoll previews the roll number for a new student in classID.
func (s *StudentService) NextRoll(ctx context.Context, classID string) (*NextRoll, error) {
	if strings.TrimSpace(classID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class_id is required")
	}
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	band := models.BandForLevel(class.Level)
	roll, err := s.assignRoll(ctx, class, nil, "")
	if err != nil {
		return nil, err
	}
	return &NextRoll{ClassID: class.ID, RollNumber: roll, Band: band}, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.StudentDetail, error) {
	req = trimStudentRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	class, err := s.loadClass(ctx, req.ClassID)
	if err != nil {
		return nil, err
	}
	if !class.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class is inactive")
	}
	if err := s.ensureUnique(ctx, req, ""); err != nil {
		return nil, err
	}
	values, err := s.resolveCustomFields(ctx, req.CustomFields, nil)
	if err != nil {
		return nil, err
	}
	roll, err := s.assignRoll(ctx, class, req.RollNumber, "")
	if err != nil {
		return nil, err
	}

	student := &models.Student{RollNumber: roll, Active: true}
	applyStudentRequest(student, req)
	if student.RegistrationDate.IsZero() {
		student.RegistrationDate = models.Today()
	}
	if req.Active != nil {
		student.Active = *req.Active
	}

	if err := s.repo.Create(ctx, student, values); err != nil {
		return nil, appErrors.Internal(err, "failed to create student")
	}
	s.logger.Info("student registered", zap.String("student_id", student.ID), zap.String("class_id", student.ClassID), zap.Int("roll_number", roll))
	invalidateDashboard(ctx, s.cache, s.logger)
	return s.Get(ctx, student.ID)
}

// Update replaces a student's mutable fields. Moving to another class assigns
// a roll number in the new band unless one is supplied.
func (s *StudentService) Update(ctx context.Context, id string, req StudentRequest) (*models.StudentDetail, error) {
	req = trimStudentRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	class, err := s.loadClass(ctx, req.ClassID)
	if err != nil {
		return nil, err
	}
	if class.ID != current.ClassID && !class.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class is inactive")
	}
	if err := s.ensureUnique(ctx, req, id); err != nil {
		return nil, err
	}
	values, err := s.resolveCustomFields(ctx, req.CustomFields, current.CustomFields)
	if err != nil {
		return nil, err
	}

	roll := current.RollNumber
	if class.ID != current.ClassID || (req.RollNumber != nil && *req.RollNumber != current.RollNumber) {
		roll, err = s.assignRoll(ctx, class, req.RollNumber, id)
		if err != nil {
			return nil, err
		}
	}

	student := current.Student
	applyStudentRequest(&student, req)
	student.RollNumber = roll
	if student.RegistrationDate.IsZero() {
		student.RegistrationDate = current.RegistrationDate
	}
	if req.Active != nil {
		student.Active = *req.Active
	}

	if err := s.repo.Update(ctx, &student, values); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to update student")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	return s.Get(ctx, id)
}

// Delete deactivates a student, or removes it with its attendance and field
// values when hard is set.
func (s *StudentService) Delete(ctx context.Context, id string, hard bool) error {
	var err error
	if hard {
		err = s.repo.Delete(ctx, id)
	} else {
		err = s.repo.Deactivate(ctx, id)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Internal(err, "failed to delete student")
	}
	if hard {
		s.logger.Info("student permanently deleted", zap.String("student_id", id))
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	return nil
}

// RepairRolls moves every student of classID whose roll number lies outside
// the class band, or repeats another student's, to the first free roll. It
// returns how many students changed.
func (s *StudentService) RepairRolls(ctx context.Context, classID string) (int, error) {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return 0, err
	}
	band := models.BandForLevel(class.Level)

	var students []models.StudentDetail
	for page := 1; ; page++ {
		batch, total, err := s.repo.List(ctx, models.StudentFilter{ClassID: class.ID, Page: page, PageSize: 100, SortBy: "roll_number", SortOrder: "asc"})
		if err != nil {
			return 0, appErrors.Internal(err, "failed to list students")
		}
		students = append(students, batch...)
		if len(batch) == 0 || len(students) >= total {
			break
		}
	}

	var used []int
	seen := make(map[int]struct{}, len(students))
	var pending []models.Student
	for _, st := range students {
		if _, dup := seen[st.RollNumber]; band.Contains(st.RollNumber) && !dup {
			seen[st.RollNumber] = struct{}{}
			used = append(used, st.RollNumber)
			continue
		}
		pending = append(pending, st.Student)
	}

	fixed := 0
	for i := range pending {
		roll, ok := nextRoll(used, band)
		if !ok {
			return fixed, appErrors.Clone(appErrors.ErrRollBandFull, fmt.Sprintf("no roll number left between %d and %d", band.Min, band.Max))
		}
		student := pending[i]
		previous := student.RollNumber
		student.RollNumber = roll
		if err := s.repo.Update(ctx, &student, nil); err != nil {
			return fixed, appErrors.Internal(err, "failed to update roll number")
		}
		used = append(used, roll)
		fixed++
		s.logger.Info("roll number reassigned", zap.String("student_id", student.ID), zap.Int("from", previous), zap.Int("to", roll))
	}
	if fixed > 0 {
		invalidateDashboard(ctx, s.cache, s.logger)
	}
	return fixed, nil
}

func (s *StudentService) loadClass(ctx context.Context, classID string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Internal(err, "failed to load class")
	}
	return class, nil
}

// assignRoll validates a requested roll number or picks the first free one.
func (s *StudentService) assignRoll(ctx context.Context, class *models.Class, requested *int, excludeID string) (int, error) {
	band := models.BandForLevel(class.Level)
	used, err := s.repo.RollNumbers(ctx, class.ID, band, excludeID)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to load roll numbers")
	}
	if requested != nil {
		if !band.Contains(*requested) {
			return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("roll number must be between %d and %d for %s", band.Min, band.Max, class.Name))
		}
		for _, roll := range used {
			if roll == *requested {
				return 0, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("roll number %d is already taken in %s", roll, class.Name))
			}
		}
		return *requested, nil
	}
	roll, ok := nextRoll(used, band)
	if !ok {
		return 0, appErrors.Clone(appErrors.ErrRollBandFull, fmt.Sprintf("no roll number left between %d and %d", band.Min, band.Max))
	}
	return roll, nil
}

func (s *StudentService) ensureUnique(ctx context.Context, req StudentRequest, excludeID string) error {
	if req.Mobile != "" {
		exists, err := s.repo.ExistsByMobile(ctx, req.Mobile, excludeID)
		if err != nil {
			return appErrors.Internal(err, "failed to check mobile")
		}
		if exists {
			return appErrors.Clone(appErrors.ErrConflict, "mobile number already registered")
		}
	}
	if req.IDNumber != "" {
		exists, err := s.repo.ExistsByIDNumber(ctx, req.IDNumber, excludeID)
		if err != nil {
			return appErrors.Internal(err, "failed to check id number")
		}
		if exists {
			return appErrors.Clone(appErrors.ErrConflict, "id number already registered")
		}
	}
	return nil
}

func (s *StudentService) resolveCustomFields(ctx context.Context, input, existing map[string]string) (map[string]string, error) {
	active := true
	fields, err := s.fields.List(ctx, &active)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load fields")
	}
	return resolveFieldValues(fields, input, existing)
}

func (s *StudentService) attachCustomFields(ctx context.Context, students []models.StudentDetail) error {
	if len(students) == 0 {
		return nil
	}
	ids := make([]string, len(students))
	for i := range students {
		ids[i] = students[i].ID
	}
	values, err := s.repo.FieldValues(ctx, ids)
	if err != nil {
		return appErrors.Internal(err, "failed to load custom fields")
	}
	for i := range students {
		students[i].CustomFields = values[students[i].ID]
		if students[i].CustomFields == nil {
			students[i].CustomFields = map[string]string{}
		}
	}
	return nil
}

func trimStudentRequest(req StudentRequest) StudentRequest {
	req.Name = strings.TrimSpace(req.Name)
	req.FatherName = strings.TrimSpace(req.FatherName)
	req.MotherName = strings.TrimSpace(req.MotherName)
	req.Mobile = strings.TrimSpace(req.Mobile)
	req.IDNumber = strings.TrimSpace(req.IDNumber)
	req.District = strings.TrimSpace(req.District)
	req.Upazila = strings.TrimSpace(req.Upazila)
	req.Address = strings.TrimSpace(req.Address)
	req.ClassID = strings.TrimSpace(req.ClassID)
	return req
}

func applyStudentRequest(student *models.Student, req StudentRequest) {
	student.Name = req.Name
	student.FatherName = req.FatherName
	student.MotherName = req.MotherName
	student.Mobile = req.Mobile
	student.IDNumber = req.IDNumber
	student.District = req.District
	student.Upazila = req.Upazila
	student.Address = req.Address
	student.ClassID = req.ClassID
	if req.RegistrationDate != "" {
		if d, err := models.ParseDate(req.RegistrationDate); err == nil {
			student.RegistrationDate = d
		}
	}
}
