package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jonathan/cv-generator/internal/observability"
	"github.com/jonathan/cv-generator/internal/parsing"
	"github.com/jonathan/cv-generator/internal/types"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
)

var (
	submitForm string
	updateForm string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Store a CV from a submitted form",
	Long:  "Normalizes a form file (URL-encoded, or JSON when the extension is .json) in either the legacy or the dynamic layout and stores the resulting CV.",
	Args:  cobra.NoArgs,
	RunE:  runSubmit,
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Replace the data of a stored CV from a form",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdate,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored CVs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a stored CV",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored CV and its rendered artifacts",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	submitCmd.Flags().StringVarP(&submitForm, "form", "f", "", "Path to the form file (required)")
	if err := submitCmd.MarkFlagRequired("form"); err != nil {
		panic(fmt.Sprintf("failed to mark form flag as required: %v", err))
	}

	updateCmd.Flags().StringVarP(&updateForm, "form", "f", "", "Path to the form file (required)")
	if err := updateCmd.MarkFlagRequired("form"); err != nil {
		panic(fmt.Sprintf("failed to mark form flag as required: %v", err))
	}

	rootCmd.AddCommand(submitCmd, updateCmd, listCmd, showCmd, deleteCmd)
}

// readFormFile parses a form file: JSON for .json, URL-encoded otherwise
func readFormFile(path string) (*parsing.Form, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read form file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return parsing.ParseJSON(content)
	}
	return parsing.ParseURLEncoded(strings.TrimSpace(string(content)))
}

// reportValidation prints every violation of a validation failure to stderr
func reportValidation(cmd *cobra.Command, err error) error {
	var ve *types.ValidationError
	if errors.As(err, &ve) {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintViolations(ve)
	}
	return err
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	form, err := readFormFile(submitForm)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.service.SubmitForm(cmd.Context(), form)
	if err != nil {
		return reportValidation(cmd, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	form, err := readFormFile(updateForm)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := a.service.UpdateDocument(cmd.Context(), args[0], form)
	if err != nil {
		return reportValidation(cmd, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Updated %s at %s\n", doc.Metadata.CVID, doc.Metadata.LastModified.Format("2006-01-02 15:04:05"))
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	summaries, err := a.service.ListDocuments(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No CVs stored.")
		return nil
	}

	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%d CV(s)", len(summaries))))
	for _, s := range summaries {
		fmt.Fprintf(out, "%s  %s  %s\n",
			labelStyle.Render(s.CVID),
			valueStyle.Render(s.Name),
			dimStyle.Render(s.CreatedAt.Format("2006-01-02 15:04")),
		)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := a.service.GetDocument(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintDocument(doc)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.service.DeleteDocument(cmd.Context(), args[0]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	return nil
}
