package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	tform "github.com/lucasols/t-form"
)

var errFormInvalid = errors.New("form is invalid")

type checkOptions struct {
	valuesPath string
	format     string
	force      bool
	mustDiff   bool
	strict     bool
}

// checkReport is what check prints.
type checkReport struct {
	Form    string           `json:"form,omitempty" yaml:"form,omitempty"`
	Summary tform.Summary    `json:"summary" yaml:"summary"`
	State   *tform.FormState `json:"state" yaml:"state"`
}

func newCheckCmd() *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:   "check DOCUMENT",
		Short: "Evaluate a definition document, optionally with values",
		Long: `Builds a form from a JSON or YAML definition document, applies the
values file if given, and prints the resulting state and summary.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.valuesPath, "values", "", "JSON or YAML file with field values to apply")
	cmd.Flags().StringVarP(&opts.format, "output", "o", "yaml", "output format: yaml or json")
	cmd.Flags().BoolVar(&opts.force, "force", false, "force validation so required errors show on untouched fields")
	cmd.Flags().BoolVar(&opts.mustDiff, "must-diff", false, "only count the form as valid when some value differs from its initial value")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit with status 1 when the form is invalid")
	return cmd
}

func runCheck(cmd *cobra.Command, path string, opts checkOptions) error {
	out, err := tform.CodecFor(opts.format)
	if err != nil {
		return err
	}

	doc, err := readDocument(path)
	if err != nil {
		return err
	}

	formOpts := []tform.Option{}
	if doc.Metadata != nil {
		formOpts = append(formOpts, tform.WithFormMetadata(doc.Metadata))
	}
	form, err := tform.New(doc.Definitions(), formOpts...)
	if err != nil {
		return err
	}

	if opts.valuesPath != "" {
		values, err := readValues(opts.valuesPath)
		if err != nil {
			return err
		}
		form.SetValues(values)
	}
	if opts.force {
		form.ForceValidation()
	}

	report := checkReport{
		Form:    doc.Form,
		Summary: form.Summary(opts.mustDiff),
		State:   form.State(),
	}
	data, err := out.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if _, err := cmd.OutOrStdout().Write(data); err != nil {
		return err
	}

	if opts.strict && !report.Summary.FormIsValid {
		return errFormInvalid
	}
	return nil
}

func codecForPath(path string) tform.Codec {
	codec, err := tform.CodecFor(filepath.Ext(path))
	if err != nil {
		return tform.AutoCodec{}
	}
	return codec
}

func readDocument(path string) (*tform.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := tform.DecodeDocument(data, codecForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func readValues(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var values map[string]any
	if err := codecForPath(path).Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return values, nil
}
