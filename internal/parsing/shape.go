package parsing

import (
	"regexp"
	"strings"

	"github.com/jonathan/cv-generator/internal/types"
)

// Shape identifies the key layout of a submitted form
type Shape int

const (
	// ShapeLegacy is the flat, fixed-slot layout: edu_1_qual, intern_2_point_3, techskill_4
	ShapeLegacy Shape = iota
	// ShapeDynamic is the bracketed layout: education[0][qualification], internships[1][points][]
	ShapeDynamic
)

func (s Shape) String() string {
	switch s {
	case ShapeDynamic:
		return "dynamic"
	default:
		return "legacy"
	}
}

// ParseShape maps a shape name back to a Shape
func ParseShape(name string) (Shape, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "legacy", "":
		return ShapeLegacy, true
	case "dynamic":
		return ShapeDynamic, true
	default:
		return ShapeLegacy, false
	}
}

// Dynamic section names as they appear before the first bracket
const (
	sectionEducation       = "education"
	sectionAchievements    = "achievements"
	sectionInternships     = "internships"
	sectionProjects        = "projects"
	sectionPositions       = "positions"
	sectionExtracurricular = "extracurricular"
	sectionTechnicalSkills = "technical_skills"
)

var dynamicSections = []string{
	sectionEducation,
	sectionAchievements,
	sectionInternships,
	sectionProjects,
	sectionPositions,
	sectionExtracurricular,
	sectionTechnicalSkills,
}

var legacyKeyPattern = regexp.MustCompile(`^(?:(?:edu|ach|intern|proj|por)_\d+_[a-z0-9_]+|extracur_\d+_desc|techskill_\d+)$`)

// sectionAliases maps alternative section names to the canonical one
var sectionAliases = map[string]string{
	"positions_of_responsibility": sectionPositions,
}

// dynamicSection returns the section a bracketed key belongs to
func dynamicSection(key string) (string, bool) {
	name, _, ok := strings.Cut(key, "[")
	if !ok {
		return "", false
	}
	if canonical, ok := sectionAliases[name]; ok {
		return canonical, true
	}
	for _, s := range dynamicSections {
		if name == s {
			return s, true
		}
	}
	return "", false
}

// Classify decides the layout of f from its keys alone. A form carrying both
// bracketed section keys and legacy slot keys is rejected.
func Classify(f *Form) (Shape, error) {
	var dynamicKey, legacyKey string
	for _, key := range f.Keys() {
		if _, ok := dynamicSection(key); ok {
			if dynamicKey == "" {
				dynamicKey = key
			}
		} else if legacyKeyPattern.MatchString(key) && legacyKey == "" {
			legacyKey = key
		}
	}

	switch {
	case dynamicKey != "" && legacyKey != "":
		ve := &types.ValidationError{}
		ve.Add(legacyKey, "legacy field cannot be combined with dynamic field "+dynamicKey)
		return ShapeLegacy, ve
	case dynamicKey != "":
		return ShapeDynamic, nil
	default:
		return ShapeLegacy, nil
	}
}
