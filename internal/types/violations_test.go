//nolint:revive // types is a standard Go package name pattern
package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_Error(t *testing.T) {
	ve := &ValidationError{}
	assert.Equal(t, "validation failed", ve.Error())

	ve.Add("email", "must be a valid email address")
	assert.Equal(t, "validation failed: email: must be a valid email address", ve.Error())

	ve.Add("phone", "cannot be empty")
	msg := ve.Error()
	assert.Contains(t, msg, "2 violations")
	assert.Contains(t, msg, "1. email")
	assert.Contains(t, msg, "2. phone")
}

func TestValidationError_Merge(t *testing.T) {
	inner := &ValidationError{}
	inner.Add("company", "cannot be empty")
	inner.Add("points", "must contain at least 1 non-blank item(s)")

	outer := &ValidationError{}
	outer.Merge("internships[1]", inner)
	outer.Merge("summary", errors.New("boom"))
	outer.Merge("ignored", nil)

	require.Len(t, outer.Violations, 3)
	assert.Equal(t, "internships[1].company", outer.Violations[0].Field)
	assert.Equal(t, "internships[1].points", outer.Violations[1].Field)
	assert.Equal(t, "summary", outer.Violations[2].Field)
	assert.Equal(t, "boom", outer.Violations[2].Message)
}

func TestValidationError_ErrOrNil(t *testing.T) {
	ve := &ValidationError{}
	assert.NoError(t, ve.ErrOrNil())

	ve.Add("x", "y")
	err := ve.ErrOrNil()
	require.Error(t, err)

	var target *ValidationError
	assert.True(t, errors.As(err, &target))
}

func TestValidationError_Fields(t *testing.T) {
	ve := &ValidationError{}
	ve.Add("a", "one")
	ve.Add("b", "two")
	ve.Add("a", "three")
	assert.Equal(t, []string{"a", "b"}, ve.Fields())
}

func TestJoinField(t *testing.T) {
	assert.Equal(t, "x", joinField("", "x"))
	assert.Equal(t, "x", joinField("x", ""))
	assert.Equal(t, "education[0].year", joinField("education[0]", "year"))
	assert.Equal(t, "points[2]", joinField("points", "[2]"))
}
