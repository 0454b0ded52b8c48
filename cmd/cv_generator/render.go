package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/cv-generator/internal/parsing"
	"github.com/jonathan/cv-generator/internal/rendering"
)

// modePDF selects the rasterized document instead of markup
const modePDF = "pdf"

var (
	renderMode   string
	renderOutput string
	exportShape  string
)

var renderCmd = &cobra.Command{
	Use:   "render <id>",
	Short: "Render a stored CV as markup or PDF",
	Long:  "Renders a stored CV in one of the modes pdf, screen, display, print or latex. Output goes to --out, or stdout when omitted.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

var exportFormCmd = &cobra.Command{
	Use:   "export-form <id>",
	Short: "Export a stored CV as form fields",
	Long:  "Prints the form fields, as a JSON list, that reproduce the stored CV when submitted in the chosen layout.",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportForm,
}

func init() {
	renderCmd.Flags().StringVarP(&renderMode, "mode", "m", modePDF, "Render mode: pdf, screen, display, print or latex")
	renderCmd.Flags().StringVarP(&renderOutput, "out", "o", "", "Output file (default stdout)")
	exportFormCmd.Flags().StringVar(&exportShape, "shape", "dynamic", "Form layout: legacy or dynamic")

	rootCmd.AddCommand(renderCmd, exportFormCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	var mode rendering.Mode
	if renderMode != modePDF {
		m, err := rendering.ParseMode(renderMode)
		if err != nil {
			return err
		}
		mode = m
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	var out []byte
	if renderMode == modePDF {
		doc, err := a.service.GetRasterizedDocument(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out = doc.Bytes
	} else {
		markup, err := a.service.GetRenderedMarkup(cmd.Context(), args[0], mode)
		if err != nil {
			return err
		}
		out = []byte(markup)
	}

	if renderOutput == "" {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	if err := os.WriteFile(renderOutput, out, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d bytes to %s\n", len(out), renderOutput)
	return nil
}

func runExportForm(cmd *cobra.Command, args []string) error {
	shape, ok := parsing.ParseShape(exportShape)
	if !ok {
		return fmt.Errorf("unknown form shape %q (want legacy or dynamic)", exportShape)
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	form, err := a.service.ExportForm(cmd.Context(), args[0], shape)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(form.Fields())
}
