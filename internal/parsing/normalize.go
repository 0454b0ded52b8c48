package parsing

import (
	"errors"

	"github.com/jonathan/cv-generator/internal/types"
)

// Normalize classifies f, parses it with the matching layout and validates
// the result. Every problem found, whether a malformed key or a violated
// field constraint, is returned in one *types.ValidationError.
func Normalize(f *Form) (*types.CVData, error) {
	shape, err := Classify(f)
	if err != nil {
		return nil, err
	}

	if shape == ShapeLegacy {
		return types.NewCVData(ParseLegacy(f))
	}

	raw, parseErr := ParseDynamic(f)
	data, err := types.NewCVData(raw)
	if parseErr == nil {
		return data, err
	}

	ve := &types.ValidationError{}
	ve.Merge("", parseErr)
	var fieldErr *types.ValidationError
	if errors.As(err, &fieldErr) {
		ve.Merge("", fieldErr)
	}
	return nil, ve
}

// Export renders validated data as a form of the requested shape
func Export(d *types.CVData, shape Shape) *Form {
	if shape == ShapeDynamic {
		return ToDynamicForm(d)
	}
	return ToLegacyForm(d)
}
