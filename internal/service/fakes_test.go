package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"

	"github.com/noah-isme/maktab-api/internal/models"
)

type fakeInvalidator struct {
	mu       sync.Mutex
	patterns []string
	err      error
}

func (f *fakeInvalidator) Invalidate(ctx context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patterns = append(f.patterns, pattern)
	return f.err
}

func (f *fakeInvalidator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.patterns)
}

type fakeClassRepo struct {
	classes     map[string]*models.Class
	activeCount map[string]int
	deactivated []string
}

func newFakeClassRepo(classes ...models.Class) *fakeClassRepo {
	repo := &fakeClassRepo{classes: map[string]*models.Class{}, activeCount: map[string]int{}}
	for i := range classes {
		c := classes[i]
		repo.classes[c.ID] = &c
	}
	return repo
}

func (f *fakeClassRepo) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassWithCount, error) {
	var out []models.ClassWithCount
	for _, c := range f.classes {
		if filter.Active != nil && c.Active != *filter.Active {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, models.ClassWithCount{Class: *c, StudentCount: f.activeCount[c.ID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

func (f *fakeClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	c, ok := f.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *c
	return &clone, nil
}

func (f *fakeClassRepo) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	for id, c := range f.classes {
		if id != excludeID && strings.EqualFold(c.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeClassRepo) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = "class-" + strings.ToLower(strings.ReplaceAll(class.Name, " ", "-"))
	}
	clone := *class
	f.classes[class.ID] = &clone
	return nil
}

func (f *fakeClassRepo) Update(ctx context.Context, class *models.Class) error {
	if _, ok := f.classes[class.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *class
	f.classes[class.ID] = &clone
	return nil
}

func (f *fakeClassRepo) Deactivate(ctx context.Context, id string) error {
	c, ok := f.classes[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.Active = false
	f.deactivated = append(f.deactivated, id)
	return nil
}

func (f *fakeClassRepo) CountActiveStudents(ctx context.Context, classID string) (int, error) {
	return f.activeCount[classID], nil
}

type fakeFieldRepo struct {
	fields map[string]*models.Field
}

func newFakeFieldRepo(fields ...models.Field) *fakeFieldRepo {
	repo := &fakeFieldRepo{fields: map[string]*models.Field{}}
	for i := range fields {
		f := fields[i]
		repo.fields[f.ID] = &f
	}
	return repo
}

func (f *fakeFieldRepo) List(ctx context.Context, active *bool) ([]models.Field, error) {
	var out []models.Field
	for _, field := range f.fields {
		if active != nil && field.Active != *active {
			continue
		}
		out = append(out, *field)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (f *fakeFieldRepo) FindByID(ctx context.Context, id string) (*models.Field, error) {
	field, ok := f.fields[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *field
	return &clone, nil
}

func (f *fakeFieldRepo) FindByName(ctx context.Context, name string) (*models.Field, error) {
	for _, field := range f.fields {
		if field.Name == name {
			clone := *field
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeFieldRepo) Create(ctx context.Context, field *models.Field) error {
	if field.ID == "" {
		field.ID = "field-" + field.Name
	}
	clone := *field
	f.fields[field.ID] = &clone
	return nil
}

func (f *fakeFieldRepo) Update(ctx context.Context, field *models.Field) error {
	if _, ok := f.fields[field.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *field
	f.fields[field.ID] = &clone
	return nil
}

func (f *fakeFieldRepo) Deactivate(ctx context.Context, id string) error {
	field, ok := f.fields[id]
	if !ok {
		return sql.ErrNoRows
	}
	field.Active = false
	return nil
}

type fakeStudentRepo struct {
	students    map[string]*models.StudentDetail
	values      map[string]map[string]string
	classNames  map[string]string
	fieldNames  map[string]string
	deactivated []string
	deleted     []string
	lastFilter  models.StudentFilter
	seq         int
}

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{
		students:   map[string]*models.StudentDetail{},
		values:     map[string]map[string]string{},
		classNames: map[string]string{},
		fieldNames: map[string]string{},
	}
}

func (f *fakeStudentRepo) add(s models.Student) {
	f.students[s.ID] = &models.StudentDetail{Student: s, ClassName: f.classNames[s.ClassID]}
}

func (f *fakeStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	f.lastFilter = filter
	var out []models.StudentDetail
	for _, s := range f.students {
		if filter.ClassID != "" && s.ClassID != filter.ClassID {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RollNumber < out[j].RollNumber })
	return out, len(out), nil
}

func (f *fakeStudentRepo) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	s, ok := f.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *s
	return &clone, nil
}

func (f *fakeStudentRepo) ExistsByMobile(ctx context.Context, mobile, excludeID string) (bool, error) {
	for id, s := range f.students {
		if id != excludeID && s.Mobile == mobile {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStudentRepo) ExistsByIDNumber(ctx context.Context, idNumber, excludeID string) (bool, error) {
	for id, s := range f.students {
		if id != excludeID && s.IDNumber == idNumber {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStudentRepo) RollNumbers(ctx context.Context, classID string, band models.RollBand, excludeID string) ([]int, error) {
	var rolls []int
	for id, s := range f.students {
		if id == excludeID || s.ClassID != classID || !band.Contains(s.RollNumber) {
			continue
		}
		rolls = append(rolls, s.RollNumber)
	}
	sort.Ints(rolls)
	return rolls, nil
}

func (f *fakeStudentRepo) Create(ctx context.Context, student *models.Student, values map[string]string) error {
	if student.ID == "" {
		f.seq++
		student.ID = "student-" + string(rune('a'+f.seq-1))
	}
	f.add(*student)
	f.saveValues(student.ID, values)
	return nil
}

func (f *fakeStudentRepo) Update(ctx context.Context, student *models.Student, values map[string]string) error {
	if _, ok := f.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	f.add(*student)
	f.saveValues(student.ID, values)
	return nil
}

func (f *fakeStudentRepo) saveValues(studentID string, values map[string]string) {
	if len(values) == 0 {
		return
	}
	if f.values[studentID] == nil {
		f.values[studentID] = map[string]string{}
	}
	for fieldID, v := range values {
		f.values[studentID][f.fieldNames[fieldID]] = v
	}
}

func (f *fakeStudentRepo) Deactivate(ctx context.Context, id string) error {
	s, ok := f.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.Active = false
	f.deactivated = append(f.deactivated, id)
	return nil
}

func (f *fakeStudentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.students, id)
	delete(f.values, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStudentRepo) FieldValues(ctx context.Context, studentIDs []string) (map[string]map[string]string, error) {
	out := map[string]map[string]string{}
	for _, id := range studentIDs {
		if v, ok := f.values[id]; ok {
			copied := map[string]string{}
			for k, val := range v {
				copied[k] = val
			}
			out[id] = copied
		}
	}
	return out, nil
}

func boolPtr(v bool) *bool { return &v }

func intPtr(v int) *int { return &v }
