//nolint:revive // types is a standard Go package name pattern
package types

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// emailPattern is the address shape accepted for PersonalInfo.Email
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// validate is shared; a configured validator is safe for concurrent use
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their JSON names so paths match the stored document
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("cvemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register cvemail validation: %v", err))
	}

	return v
}

// FilterBlank trims every item and drops the ones left empty.
// FilterBlank(FilterBlank(x)) == FilterBlank(x).
func FilterBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// NewPersonalInfo validates the contact block
func NewPersonalInfo(fields map[string]string) (PersonalInfo, error) {
	r := &fieldReader{fields: fields}
	info := PersonalInfo{
		FullName:         r.required(FieldFullName),
		HighestEducation: r.required(FieldHighestEducation),
		City:             r.required(FieldCity),
		Phone:            r.required(FieldPhone),
		Email:            r.required(FieldEmail),
	}
	return info, r.check(&info)
}

// NewEducationEntry validates one education row
func NewEducationEntry(fields map[string]string) (EducationEntry, error) {
	r := &fieldReader{fields: fields}
	entry := EducationEntry{
		Qualification: r.required(FieldQualification),
		Stream:        r.required(FieldStream),
		Institute:     r.required(FieldInstitute),
		Year:          r.required(FieldYear),
		CGPA:          r.required(FieldCGPA),
	}
	return entry, r.check(&entry)
}

// NewAchievementEntry validates one achievement
func NewAchievementEntry(fields map[string]string) (AchievementEntry, error) {
	r := &fieldReader{fields: fields}
	entry := AchievementEntry{
		Description: r.required(FieldDescription),
		Year:        r.required(FieldYear),
	}
	return entry, r.check(&entry)
}

// NewInternshipEntry validates one internship. Blank points are discarded
// before the point count is checked.
func NewInternshipEntry(fields map[string]string, points []string) (InternshipEntry, error) {
	r := &fieldReader{fields: fields}
	entry := InternshipEntry{
		Company:  r.required(FieldCompany),
		Role:     r.required(FieldRole),
		Duration: r.required(FieldDuration),
		Points:   FilterBlank(points),
	}
	return entry, r.check(&entry)
}

// NewProjectEntry validates one project. RepoLink is optional.
func NewProjectEntry(fields map[string]string, points []string) (ProjectEntry, error) {
	r := &fieldReader{fields: fields}
	entry := ProjectEntry{
		Title:    r.required(FieldTitle),
		Type:     r.required(FieldType),
		Duration: r.required(FieldDuration),
		RepoLink: r.optional(FieldRepoLink),
		Points:   FilterBlank(points),
	}
	return entry, r.check(&entry)
}

// NewPositionEntry validates one position of responsibility
func NewPositionEntry(fields map[string]string, points []string) (PositionEntry, error) {
	r := &fieldReader{fields: fields}
	entry := PositionEntry{
		Club:     r.required(FieldClub),
		Role:     r.required(FieldRole),
		Duration: r.required(FieldDuration),
		Points:   FilterBlank(points),
	}
	return entry, r.check(&entry)
}

// NewCVData validates a whole submission. Every entity is checked even after
// a failure so that the returned *ValidationError lists all violations.
func NewCVData(raw RawCVData) (*CVData, error) {
	ve := &ValidationError{}
	data := &CVData{
		Education:                 make([]EducationEntry, 0, len(raw.Education)),
		Achievements:              make([]AchievementEntry, 0, len(raw.Achievements)),
		Internships:               make([]InternshipEntry, 0, len(raw.Internships)),
		Projects:                  make([]ProjectEntry, 0, len(raw.Projects)),
		PositionsOfResponsibility: make([]PositionEntry, 0, len(raw.Positions)),
	}

	info, err := NewPersonalInfo(raw.PersonalInfo)
	ve.Merge("personal_info", err)
	data.PersonalInfo = info

	data.Summary = strings.TrimSpace(raw.Summary)
	checkVar(ve, "summary", data.Summary, fmt.Sprintf("max=%d", MaxSummaryLength))

	for i, fields := range raw.Education {
		entry, err := NewEducationEntry(fields)
		ve.Merge(fmt.Sprintf("education[%d]", i), err)
		data.Education = append(data.Education, entry)
	}
	checkCount(ve, "education", len(raw.Education), MinEducation, MaxEducation)

	for i, fields := range raw.Achievements {
		entry, err := NewAchievementEntry(fields)
		ve.Merge(fmt.Sprintf("achievements[%d]", i), err)
		data.Achievements = append(data.Achievements, entry)
	}
	checkCount(ve, "achievements", len(raw.Achievements), 0, MaxAchievements)

	for i, e := range raw.Internships {
		entry, err := NewInternshipEntry(e.Fields, e.Points)
		ve.Merge(fmt.Sprintf("internships[%d]", i), err)
		data.Internships = append(data.Internships, entry)
	}
	checkCount(ve, "internships", len(raw.Internships), MinInternships, MaxInternships)

	for i, e := range raw.Projects {
		entry, err := NewProjectEntry(e.Fields, e.Points)
		ve.Merge(fmt.Sprintf("projects[%d]", i), err)
		data.Projects = append(data.Projects, entry)
	}
	checkCount(ve, "projects", len(raw.Projects), MinProjects, MaxProjects)

	for i, e := range raw.Positions {
		entry, err := NewPositionEntry(e.Fields, e.Points)
		ve.Merge(fmt.Sprintf("positions_of_responsibility[%d]", i), err)
		data.PositionsOfResponsibility = append(data.PositionsOfResponsibility, entry)
	}
	checkCount(ve, "positions_of_responsibility", len(raw.Positions), MinPositions, MaxPositions)

	data.Extracurricular = FilterBlank(raw.Extracurricular)
	checkCount(ve, "extracurricular", len(data.Extracurricular), 0, MaxExtracurricular)

	data.TechnicalSkills = FilterBlank(raw.TechnicalSkills)
	checkCount(ve, "technical_skills", len(data.TechnicalSkills), MinTechnicalSkills, MaxTechnicalSkills)

	if ve.HasViolations() {
		return nil, ve
	}
	return data, nil
}

// fieldReader pulls trimmed values out of a raw field map and remembers
// which required keys were never submitted.
type fieldReader struct {
	fields  map[string]string
	missing []string
}

func (r *fieldReader) required(key string) string {
	v, ok := r.fields[key]
	if !ok {
		r.missing = append(r.missing, key)
		return ""
	}
	return strings.TrimSpace(v)
}

func (r *fieldReader) optional(key string) string {
	return strings.TrimSpace(r.fields[key])
}

// check runs the struct tags on entity and folds the result, together with
// any missing keys, into a single *ValidationError.
func (r *fieldReader) check(entity any) error {
	ve := &ValidationError{}
	missing := make(map[string]bool, len(r.missing))
	for _, key := range r.missing {
		missing[key] = true
		ve.Add(key, "is required")
	}

	if err := validate.Struct(entity); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			ve.Add("", err.Error())
			return ve
		}
		for _, fe := range fieldErrs {
			field := fieldPath(fe)
			if missing[field] {
				continue
			}
			ve.Add(field, describe(fe))
		}
	}

	return ve.ErrOrNil()
}

// checkCount enforces list bounds on n items
func checkCount(ve *ValidationError, field string, n, lo, hi int) {
	switch {
	case n < lo:
		ve.Add(field, fmt.Sprintf("must contain at least %d item(s)", lo))
	case n > hi:
		ve.Add(field, fmt.Sprintf("must contain at most %d item(s)", hi))
	}
}

// checkVar validates a single value against a tag expression
func checkVar(ve *ValidationError, field string, value any, tag string) {
	err := validate.Var(value, tag)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		ve.Add(field, err.Error())
		return
	}
	for _, fe := range fieldErrs {
		ve.Add(field, describe(fe))
	}
}

// fieldPath drops the struct name from a validator namespace:
// "InternshipEntry.points" -> "points"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// describe turns a validator tag failure into a user facing message
func describe(fe validator.FieldError) string {
	isList := fe.Kind() == reflect.Slice || fe.Kind() == reflect.Array
	switch fe.Tag() {
	case "required":
		return "cannot be empty"
	case "cvemail":
		return "must be a valid email address"
	case "max":
		if isList {
			return fmt.Sprintf("must contain at most %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		if isList {
			return fmt.Sprintf("must contain at least %s non-blank item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
