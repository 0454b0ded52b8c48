package parsing

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jonathan/cv-generator/internal/types"
)

// dynamicKeyPattern matches section[index][field] with an optional trailing []
var dynamicKeyPattern = regexp.MustCompile(`^([a-z_]+)\[([^\[\]]*)\]\[([^\[\]]+)\](\[\])?$`)

// indexPattern admits decimal indices without sign or leading zeros, so that
// each entry has exactly one spelling
var indexPattern = regexp.MustCompile(`^(?:0|[1-9][0-9]*)$`)

// group collects the keys submitted for one index of one section
type group struct {
	fields map[string]string
	points []string
}

func (g *group) blank() bool {
	for _, v := range g.fields {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	for _, p := range g.points {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	return true
}

// ParseDynamic reads the bracketed layout. Entries are emitted in ascending
// numeric index order regardless of submission order. Groups in which every
// value is blank are treated as untouched rows and skipped. Malformed keys
// are reported as a *types.ValidationError alongside whatever could be read.
func ParseDynamic(f *Form) (types.RawCVData, error) {
	raw := types.RawCVData{
		PersonalInfo: personalInfo(f),
		Summary:      f.Get(summaryKey),
	}
	ve := &types.ValidationError{}
	groups := make(map[string]map[int]*group)

	for _, key := range f.Keys() {
		section, ok := dynamicSection(key)
		if !ok {
			if strings.Contains(key, "[") {
				ve.Add(key, "unknown section")
			}
			continue
		}

		switch section {
		case sectionExtracurricular, sectionTechnicalSkills:
			if key != section+"[]" {
				ve.Add(key, fmt.Sprintf("malformed field name, expected %s[]", section))
				continue
			}
			if section == sectionExtracurricular {
				raw.Extracurricular = f.Values(key)
			} else {
				raw.TechnicalSkills = f.Values(key)
			}
			continue
		}

		m := dynamicKeyPattern.FindStringSubmatch(key)
		if m == nil {
			ve.Add(key, "malformed field name")
			continue
		}

		if !indexPattern.MatchString(m[2]) {
			ve.Add(key, "index must be a non-negative integer without sign or leading zeros")
			continue
		}
		idx, err := strconv.Atoi(m[2])
		if err != nil {
			ve.Add(key, "index out of range")
			continue
		}

		field, isList := m[3], m[4] != ""
		if isList && field != types.FieldPoints {
			ve.Add(key, "only points may be submitted as a list")
			continue
		}

		if groups[section] == nil {
			groups[section] = make(map[int]*group)
		}
		g, ok := groups[section][idx]
		if !ok {
			g = &group{fields: make(map[string]string)}
			groups[section][idx] = g
		}

		if field == types.FieldPoints {
			g.points = append(g.points, f.Values(key)...)
		} else {
			g.fields[field] = f.Get(key)
		}
	}

	for _, g := range ordered(groups[sectionEducation]) {
		raw.Education = append(raw.Education, g.fields)
	}
	for _, g := range ordered(groups[sectionAchievements]) {
		raw.Achievements = append(raw.Achievements, g.fields)
	}
	raw.Internships = entries(groups[sectionInternships])
	raw.Projects = entries(groups[sectionProjects])
	raw.Positions = entries(groups[sectionPositions])

	return raw, ve.ErrOrNil()
}

// ordered returns the non-blank groups sorted by index
func ordered(byIndex map[int]*group) []*group {
	indices := make([]int, 0, len(byIndex))
	for idx := range byIndex {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	out := make([]*group, 0, len(indices))
	for _, idx := range indices {
		if g := byIndex[idx]; !g.blank() {
			out = append(out, g)
		}
	}
	return out
}

func entries(byIndex map[int]*group) []types.RawEntry {
	var out []types.RawEntry
	for _, g := range ordered(byIndex) {
		out = append(out, types.RawEntry{Fields: g.fields, Points: g.points})
	}
	return out
}

// ToDynamicForm writes validated data back out in the bracketed layout
func ToDynamicForm(d *types.CVData) *Form {
	f := NewForm()
	writePersonal(f, d)

	raw := d.Raw()
	writeDynamicSection(f, sectionEducation, legacyEducationKeys, raw.Education)
	writeDynamicSection(f, sectionAchievements, legacyAchievementKeys, raw.Achievements)
	writeDynamicBulleted(f, sectionInternships, legacyInternshipKeys, raw.Internships)
	writeDynamicBulleted(f, sectionProjects, legacyProjectKeys, raw.Projects)
	writeDynamicBulleted(f, sectionPositions, legacyPositionKeys, raw.Positions)

	for _, v := range d.Extracurricular {
		f.Add(sectionExtracurricular+"[]", v)
	}
	for _, v := range d.TechnicalSkills {
		f.Add(sectionTechnicalSkills+"[]", v)
	}

	return f
}

func writeDynamicFields(f *Form, section string, i int, keys []fieldKey, values map[string]string) {
	for _, k := range keys {
		if v, ok := values[k.field]; ok {
			f.Add(fmt.Sprintf("%s[%d][%s]", section, i, k.field), v)
		}
	}
}

func writeDynamicSection(f *Form, section string, keys []fieldKey, rows []map[string]string) {
	for i, values := range rows {
		writeDynamicFields(f, section, i, keys, values)
	}
}

func writeDynamicBulleted(f *Form, section string, keys []fieldKey, rows []types.RawEntry) {
	for i, e := range rows {
		writeDynamicFields(f, section, i, keys, e.Fields)
		for _, p := range e.Points {
			f.Add(fmt.Sprintf("%s[%d][%s][]", section, i, types.FieldPoints), p)
		}
	}
}
