package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/cv-generator/internal/testutil"
	"github.com/jonathan/cv-generator/internal/types"
)

func TestPrintDocument(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	doc := &types.CVDocument{
		Metadata: types.CVMetadata{CVID: "00000000-0000-4000-8000-000000000001", Version: types.DocumentVersion},
		Data:     *testutil.ValidCVData(),
	}

	p.PrintDocument(doc)
	output := buf.String()

	assert.Contains(t, output, "CV DOCUMENT")
	assert.Contains(t, output, "00000000-0000-4000-8000-000000000001")
	assert.Contains(t, output, "Jane A. Doe")
	assert.Contains(t, output, "Backend Intern at Acme Corp [2 points]")
	assert.Contains(t, output, "Pathfinder (Personal)")
	assert.Contains(t, output, "Lead, Coding Club")
	assert.Contains(t, output, "Skills: Go, PostgreSQL, Docker")
}

func TestPrintDocument_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintDocument(nil)

	assert.Empty(t, buf.String())
}

func TestPrintDocument_TruncatesLists(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	doc := &types.CVDocument{Data: *testutil.ValidCVData()}
	edu := doc.Data.Education[0]
	doc.Data.Education = nil
	for i := 0; i < 7; i++ {
		doc.Data.Education = append(doc.Data.Education, edu)
	}

	p.PrintDocument(doc)

	assert.Contains(t, buf.String(), "... and 2 more")
}

func TestPrintViolations(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	ve := &types.ValidationError{}
	ve.Add("personal_info.email", "must be a valid email address")
	ve.Add("education", "must have at least 1 entry")

	p.PrintViolations(ve)
	output := buf.String()

	assert.Contains(t, output, "VALIDATION VIOLATIONS")
	assert.Contains(t, output, "Found 2 violations")
	assert.Contains(t, output, "personal_info.email")
	assert.Contains(t, output, "must have at least 1 entry")
}

func TestPrintViolations_None(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintViolations(nil)

	assert.Contains(t, buf.String(), "NO VIOLATIONS FOUND")
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("x", 200))

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth)
	}
	assert.Contains(t, buf.String(), "...")
}
