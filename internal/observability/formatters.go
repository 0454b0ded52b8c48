// Package observability provides the process logger and formatted output
// utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/cv-generator/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	for _, line := range lines {
		// Truncate long lines
		if runes := []rune(line); len(runes) > boxWidth-4 {
			line = string(runes[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// writeList writes at most maxItemsToShow items under heading
func writeList(sb *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(heading + ":\n")
	count := min(len(items), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-maxItemsToShow))
	}
	sb.WriteString("\n")
}

// PrintDocument outputs a human-readable summary of a stored CV.
func (p *Printer) PrintDocument(doc *types.CVDocument) {
	if doc == nil {
		return
	}

	d := &doc.Data
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("ID:       %s\n", doc.Metadata.CVID))
	sb.WriteString(fmt.Sprintf("Name:     %s\n", d.PersonalInfo.FullName))
	sb.WriteString(fmt.Sprintf("Email:    %s\n", d.PersonalInfo.Email))
	sb.WriteString(fmt.Sprintf("Phone:    %s\n", d.PersonalInfo.Phone))
	sb.WriteString(fmt.Sprintf("City:     %s\n", d.PersonalInfo.City))
	sb.WriteString(fmt.Sprintf("Created:  %s\n", doc.Metadata.CreatedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("Modified: %s\n", doc.Metadata.LastModified.Format("2006-01-02 15:04:05")))
	sb.WriteString("\n")

	education := make([]string, 0, len(d.Education))
	for _, e := range d.Education {
		education = append(education, fmt.Sprintf("%s %s, %s (%s)", e.Qualification, e.Stream, e.Institute, e.Year))
	}
	writeList(&sb, "Education", education)

	internships := make([]string, 0, len(d.Internships))
	for _, in := range d.Internships {
		internships = append(internships, fmt.Sprintf("%s at %s [%d points]", in.Role, in.Company, len(in.Points)))
	}
	writeList(&sb, "Internships", internships)

	projects := make([]string, 0, len(d.Projects))
	for _, pr := range d.Projects {
		projects = append(projects, fmt.Sprintf("%s (%s) [%d points]", pr.Title, pr.Type, len(pr.Points)))
	}
	writeList(&sb, "Projects", projects)

	positions := make([]string, 0, len(d.PositionsOfResponsibility))
	for _, po := range d.PositionsOfResponsibility {
		positions = append(positions, fmt.Sprintf("%s, %s", po.Role, po.Club))
	}
	writeList(&sb, "Positions", positions)

	if len(d.TechnicalSkills) > 0 {
		sb.WriteString(fmt.Sprintf("Skills: %s\n", strings.Join(d.TechnicalSkills, ", ")))
	}

	p.printBox("CV DOCUMENT", sb.String())
}

// PrintViolations outputs every violated constraint of a rejected CV.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintViolations(err *types.ValidationError) {
	if err == nil || len(err.Violations) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ NO VIOLATIONS FOUND")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d violations:\n\n", len(err.Violations)))

	for i, v := range err.Violations {
		sb.WriteString(fmt.Sprintf("⚠ %s\n", v.Field))
		sb.WriteString(fmt.Sprintf("  %s\n", v.Message))
		if i < len(err.Violations)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("VALIDATION VIOLATIONS", sb.String())
}
