//nolint:revive // types is a standard Go package name pattern
package types

// Field names shared by the entity constructors and the form parsers
const (
	FieldFullName         = "full_name"
	FieldHighestEducation = "highest_education"
	FieldCity             = "city"
	FieldPhone            = "phone"
	FieldEmail            = "email"

	FieldQualification = "qualification"
	FieldStream        = "stream"
	FieldInstitute     = "institute"
	FieldYear          = "year"
	FieldCGPA          = "cgpa"

	FieldDescription = "description"

	FieldCompany  = "company"
	FieldRole     = "role"
	FieldDuration = "duration"
	FieldPoints   = "points"

	FieldTitle    = "title"
	FieldType     = "type"
	FieldRepoLink = "repo_link"

	FieldClub = "club"
)

// Per-document list bounds
const (
	MinEducation       = 1
	MaxEducation       = 5
	MaxAchievements    = 5
	MinInternships     = 1
	MaxInternships     = 3
	MinProjects        = 1
	MaxProjects        = 3
	MinPositions       = 1
	MaxPositions       = 3
	MaxPoints          = 5
	MaxExtracurricular = 5
	MinTechnicalSkills = 1
	MaxTechnicalSkills = 10
	MaxSummaryLength   = 1000
)

// PersonalInfo holds the candidate's contact block
type PersonalInfo struct {
	FullName         string `json:"full_name" validate:"required,max=100"`
	HighestEducation string `json:"highest_education" validate:"required,max=100"`
	City             string `json:"city" validate:"required,max=100"`
	Phone            string `json:"phone" validate:"required,max=20"`
	Email            string `json:"email" validate:"required,cvemail"`
}

// EducationEntry is one row of the education table
type EducationEntry struct {
	Qualification string `json:"qualification" validate:"required,max=100"`
	Stream        string `json:"stream" validate:"required,max=100"`
	Institute     string `json:"institute" validate:"required,max=200"`
	Year          string `json:"year" validate:"required,max=10"`
	CGPA          string `json:"cgpa" validate:"required,max=10"`
}

// AchievementEntry is a dated scholastic achievement
type AchievementEntry struct {
	Description string `json:"description" validate:"required,max=500"`
	Year        string `json:"year" validate:"required,max=10"`
}

// InternshipEntry describes an internship with its bullet points
type InternshipEntry struct {
	Company  string   `json:"company" validate:"required,max=100"`
	Role     string   `json:"role" validate:"required,max=100"`
	Duration string   `json:"duration" validate:"required,max=50"`
	Points   []string `json:"points" validate:"min=1,max=5"`
}

// ProjectEntry describes a project with its bullet points
type ProjectEntry struct {
	Title    string   `json:"title" validate:"required,max=100"`
	Type     string   `json:"type" validate:"required,max=50"`
	Duration string   `json:"duration" validate:"required,max=50"`
	RepoLink string   `json:"repo_link,omitempty" validate:"omitempty,max=200"`
	Points   []string `json:"points" validate:"min=1,max=5"`
}

// PositionEntry describes a position of responsibility
type PositionEntry struct {
	Club     string   `json:"club" validate:"required,max=100"`
	Role     string   `json:"role" validate:"required,max=100"`
	Duration string   `json:"duration" validate:"required,max=50"`
	Points   []string `json:"points" validate:"min=1,max=5"`
}

// CVData is the canonical, validated content of a résumé
type CVData struct {
	PersonalInfo              PersonalInfo       `json:"personal_info"`
	Summary                   string             `json:"summary,omitempty"`
	Education                 []EducationEntry   `json:"education"`
	Achievements              []AchievementEntry `json:"achievements"`
	Internships               []InternshipEntry  `json:"internships"`
	Projects                  []ProjectEntry     `json:"projects"`
	PositionsOfResponsibility []PositionEntry    `json:"positions_of_responsibility"`
	Extracurricular           []string           `json:"extracurricular"`
	TechnicalSkills           []string           `json:"technical_skills"`
}

// RawEntry is an unvalidated entry: scalar fields keyed by field name plus
// the submitted bullet points. A key absent from Fields was not submitted.
type RawEntry struct {
	Fields map[string]string
	Points []string
}

// RawCVData mirrors CVData before validation. Both form parsers produce it.
type RawCVData struct {
	PersonalInfo    map[string]string
	Summary         string
	Education       []map[string]string
	Achievements    []map[string]string
	Internships     []RawEntry
	Projects        []RawEntry
	Positions       []RawEntry
	Extracurricular []string
	TechnicalSkills []string
}

// Raw converts validated data back into its raw form
func (d *CVData) Raw() RawCVData {
	p := d.PersonalInfo
	raw := RawCVData{
		PersonalInfo: map[string]string{
			FieldFullName:         p.FullName,
			FieldHighestEducation: p.HighestEducation,
			FieldCity:             p.City,
			FieldPhone:            p.Phone,
			FieldEmail:            p.Email,
		},
		Summary:         d.Summary,
		Extracurricular: append([]string(nil), d.Extracurricular...),
		TechnicalSkills: append([]string(nil), d.TechnicalSkills...),
	}

	for _, e := range d.Education {
		raw.Education = append(raw.Education, map[string]string{
			FieldQualification: e.Qualification,
			FieldStream:        e.Stream,
			FieldInstitute:     e.Institute,
			FieldYear:          e.Year,
			FieldCGPA:          e.CGPA,
		})
	}
	for _, a := range d.Achievements {
		raw.Achievements = append(raw.Achievements, map[string]string{
			FieldDescription: a.Description,
			FieldYear:        a.Year,
		})
	}
	for _, in := range d.Internships {
		raw.Internships = append(raw.Internships, RawEntry{
			Fields: map[string]string{
				FieldCompany:  in.Company,
				FieldRole:     in.Role,
				FieldDuration: in.Duration,
			},
			Points: append([]string(nil), in.Points...),
		})
	}
	for _, pr := range d.Projects {
		fields := map[string]string{
			FieldTitle:    pr.Title,
			FieldType:     pr.Type,
			FieldDuration: pr.Duration,
		}
		if pr.RepoLink != "" {
			fields[FieldRepoLink] = pr.RepoLink
		}
		raw.Projects = append(raw.Projects, RawEntry{
			Fields: fields,
			Points: append([]string(nil), pr.Points...),
		})
	}
	for _, pos := range d.PositionsOfResponsibility {
		raw.Positions = append(raw.Positions, RawEntry{
			Fields: map[string]string{
				FieldClub:     pos.Club,
				FieldRole:     pos.Role,
				FieldDuration: pos.Duration,
			},
			Points: append([]string(nil), pos.Points...),
		})
	}

	return raw
}

// Canonical re-checks every invariant of already constructed data and returns
// the normalized tree: values trimmed, blank list items dropped and absent
// optional sections turned into empty lists.
func (d *CVData) Canonical() (*CVData, error) {
	return NewCVData(d.Raw())
}

// Validate re-checks every invariant of already constructed data, e.g. after
// decoding a stored document.
func (d *CVData) Validate() error {
	_, err := d.Canonical()
	return err
}
