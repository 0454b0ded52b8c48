package parsing

import (
	"fmt"
	"strings"

	"github.com/jonathan/cv-generator/internal/types"
)

// Fixed slot counts of the legacy layout
const (
	legacyEducationSlots       = 5
	legacyAchievementSlots     = 5
	legacyInternshipSlots      = 3
	legacyProjectSlots         = 3
	legacyPositionSlots        = 3
	legacyPointSlots           = 5
	legacyExtracurricularSlots = 5
	legacySkillSlots           = 10
)

// fieldKey pairs an entity field with its legacy key suffix
type fieldKey struct {
	field  string
	suffix string
}

var personalKeys = []string{
	types.FieldFullName,
	types.FieldHighestEducation,
	types.FieldCity,
	types.FieldPhone,
	types.FieldEmail,
}

// summaryKey is shared by both layouts
const summaryKey = "summary"

var (
	legacyEducationKeys = []fieldKey{
		{types.FieldQualification, "qual"},
		{types.FieldStream, "stream"},
		{types.FieldInstitute, "institute"},
		{types.FieldYear, "year"},
		{types.FieldCGPA, "cgpa"},
	}
	legacyAchievementKeys = []fieldKey{
		{types.FieldDescription, "desc"},
		{types.FieldYear, "year"},
	}
	legacyInternshipKeys = []fieldKey{
		{types.FieldCompany, "company"},
		{types.FieldRole, "role"},
		{types.FieldDuration, "duration"},
	}
	legacyProjectKeys = []fieldKey{
		{types.FieldTitle, "title"},
		{types.FieldType, "type"},
		{types.FieldDuration, "duration"},
		{types.FieldRepoLink, "repo_link"},
	}
	legacyPositionKeys = []fieldKey{
		{types.FieldClub, "club"},
		{types.FieldRole, "role"},
		{types.FieldDuration, "duration"},
	}
)

// ParseLegacy reads the flat slot layout. A slot is included only when its
// first field is non-blank; bulleted slots with no surviving bullet are
// dropped.
func ParseLegacy(f *Form) types.RawCVData {
	raw := types.RawCVData{
		PersonalInfo: personalInfo(f),
		Summary:      f.Get(summaryKey),
	}

	for i := 1; i <= legacyEducationSlots; i++ {
		if fields, ok := legacySlot(f, "edu", i, legacyEducationKeys); ok {
			raw.Education = append(raw.Education, fields)
		}
	}

	for i := 1; i <= legacyAchievementSlots; i++ {
		if fields, ok := legacySlot(f, "ach", i, legacyAchievementKeys); ok {
			raw.Achievements = append(raw.Achievements, fields)
		}
	}

	raw.Internships = legacyBulletedSlots(f, "intern", legacyInternshipSlots, legacyInternshipKeys)
	raw.Projects = legacyBulletedSlots(f, "proj", legacyProjectSlots, legacyProjectKeys)
	raw.Positions = legacyBulletedSlots(f, "por", legacyPositionSlots, legacyPositionKeys)

	for i := 1; i <= legacyExtracurricularSlots; i++ {
		if v := f.Get(fmt.Sprintf("extracur_%d_desc", i)); strings.TrimSpace(v) != "" {
			raw.Extracurricular = append(raw.Extracurricular, v)
		}
	}

	for i := 1; i <= legacySkillSlots; i++ {
		if v := f.Get(fmt.Sprintf("techskill_%d", i)); strings.TrimSpace(v) != "" {
			raw.TechnicalSkills = append(raw.TechnicalSkills, v)
		}
	}

	return raw
}

// personalInfo copies the contact keys that were actually submitted
func personalInfo(f *Form) map[string]string {
	fields := make(map[string]string, len(personalKeys))
	for _, key := range personalKeys {
		if v, ok := f.Lookup(key); ok {
			fields[key] = v
		}
	}
	return fields
}

// legacySlot reads slot i of prefix. The first key is the presence field.
func legacySlot(f *Form, prefix string, i int, keys []fieldKey) (map[string]string, bool) {
	presence := f.Get(fmt.Sprintf("%s_%d_%s", prefix, i, keys[0].suffix))
	if strings.TrimSpace(presence) == "" {
		return nil, false
	}

	fields := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := f.Lookup(fmt.Sprintf("%s_%d_%s", prefix, i, k.suffix)); ok {
			fields[k.field] = v
		}
	}
	return fields, true
}

func legacyBulletedSlots(f *Form, prefix string, slots int, keys []fieldKey) []types.RawEntry {
	var entries []types.RawEntry
	for i := 1; i <= slots; i++ {
		fields, ok := legacySlot(f, prefix, i, keys)
		if !ok {
			continue
		}

		var points []string
		for j := 1; j <= legacyPointSlots; j++ {
			if v := f.Get(fmt.Sprintf("%s_%d_point_%d", prefix, i, j)); strings.TrimSpace(v) != "" {
				points = append(points, v)
			}
		}
		if len(points) == 0 {
			continue
		}

		entries = append(entries, types.RawEntry{Fields: fields, Points: points})
	}
	return entries
}

// ToLegacyForm writes validated data back out in the legacy layout, e.g. to
// pre-fill an edit page.
func ToLegacyForm(d *types.CVData) *Form {
	f := NewForm()
	writePersonal(f, d)

	for i, e := range d.Education {
		writeLegacySlot(f, "edu", i+1, legacyEducationKeys, map[string]string{
			types.FieldQualification: e.Qualification,
			types.FieldStream:        e.Stream,
			types.FieldInstitute:     e.Institute,
			types.FieldYear:          e.Year,
			types.FieldCGPA:          e.CGPA,
		})
	}

	for i, a := range d.Achievements {
		writeLegacySlot(f, "ach", i+1, legacyAchievementKeys, map[string]string{
			types.FieldDescription: a.Description,
			types.FieldYear:        a.Year,
		})
	}

	raw := d.Raw()
	writeLegacyBulleted(f, "intern", legacyInternshipKeys, raw.Internships)
	writeLegacyBulleted(f, "proj", legacyProjectKeys, raw.Projects)
	writeLegacyBulleted(f, "por", legacyPositionKeys, raw.Positions)

	for i, v := range d.Extracurricular {
		f.Add(fmt.Sprintf("extracur_%d_desc", i+1), v)
	}
	for i, v := range d.TechnicalSkills {
		f.Add(fmt.Sprintf("techskill_%d", i+1), v)
	}

	return f
}

func writePersonal(f *Form, d *types.CVData) {
	p := d.PersonalInfo
	f.Add(types.FieldFullName, p.FullName)
	f.Add(types.FieldHighestEducation, p.HighestEducation)
	f.Add(types.FieldCity, p.City)
	f.Add(types.FieldPhone, p.Phone)
	f.Add(types.FieldEmail, p.Email)
	if d.Summary != "" {
		f.Add(summaryKey, d.Summary)
	}
}

func writeLegacySlot(f *Form, prefix string, i int, keys []fieldKey, values map[string]string) {
	for _, k := range keys {
		if v, ok := values[k.field]; ok {
			f.Add(fmt.Sprintf("%s_%d_%s", prefix, i, k.suffix), v)
		}
	}
}

func writeLegacyBulleted(f *Form, prefix string, keys []fieldKey, entries []types.RawEntry) {
	for i, e := range entries {
		writeLegacySlot(f, prefix, i+1, keys, e.Fields)
		for j, p := range e.Points {
			f.Add(fmt.Sprintf("%s_%d_point_%d", prefix, i+1, j+1), p)
		}
	}
}

// LayoutField is one input of the legacy layout
type LayoutField struct {
	Name      string
	Label     string
	Multiline bool
}

// LayoutSection is a titled group of slots; each slot is one entry's inputs
type LayoutSection struct {
	Title string
	Slots [][]LayoutField
}

// LegacyLayout lists every input the legacy parser reads, in page order
func LegacyLayout() []LayoutSection {
	personal := make([]LayoutField, 0, len(personalKeys)+1)
	for _, key := range personalKeys {
		personal = append(personal, LayoutField{Name: key, Label: fieldLabel(key)})
	}
	personal = append(personal, LayoutField{Name: summaryKey, Label: fieldLabel(summaryKey), Multiline: true})

	return []LayoutSection{
		{Title: "Personal information", Slots: [][]LayoutField{personal}},
		{Title: "Education", Slots: layoutSlots("edu", legacyEducationSlots, legacyEducationKeys, 0)},
		{Title: "Achievements", Slots: layoutSlots("ach", legacyAchievementSlots, legacyAchievementKeys, 0)},
		{Title: "Internships", Slots: layoutSlots("intern", legacyInternshipSlots, legacyInternshipKeys, legacyPointSlots)},
		{Title: "Projects", Slots: layoutSlots("proj", legacyProjectSlots, legacyProjectKeys, legacyPointSlots)},
		{Title: "Positions of responsibility", Slots: layoutSlots("por", legacyPositionSlots, legacyPositionKeys, legacyPointSlots)},
		{Title: "Extracurricular activities", Slots: [][]LayoutField{numberedFields("extracur_%d_desc", "Activity", legacyExtracurricularSlots)}},
		{Title: "Technical skills", Slots: [][]LayoutField{numberedFields("techskill_%d", "Skill", legacySkillSlots)}},
	}
}

func layoutSlots(prefix string, slots int, keys []fieldKey, points int) [][]LayoutField {
	out := make([][]LayoutField, 0, slots)
	for i := 1; i <= slots; i++ {
		slot := make([]LayoutField, 0, len(keys)+points)
		for _, k := range keys {
			slot = append(slot, LayoutField{Name: fmt.Sprintf("%s_%d_%s", prefix, i, k.suffix), Label: fieldLabel(k.field)})
		}
		slot = append(slot, numberedFields(fmt.Sprintf("%s_%d_point_%%d", prefix, i), "Point", points)...)
		out = append(out, slot)
	}
	return out
}

func numberedFields(format, label string, n int) []LayoutField {
	fields := make([]LayoutField, 0, n)
	for i := 1; i <= n; i++ {
		fields = append(fields, LayoutField{Name: fmt.Sprintf(format, i), Label: fmt.Sprintf("%s %d", label, i)})
	}
	return fields
}

// fieldLabel turns a field name like repo_link into "Repo link"
func fieldLabel(field string) string {
	label := strings.ReplaceAll(field, "_", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}
