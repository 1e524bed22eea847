package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	tform "github.com/lucasols/t-form"
)

const checkDocument = `
form: signup
fields:
  email:
    initialValue: ""
    required: true
    rules:
      - tag: email
        message: Invalid email
  age:
    initialValue: 18
    rules:
      - tag: gte=18
        message: Must be an adult
`

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decodeReport(t *testing.T, out string) checkReport {
	t.Helper()
	var report checkReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	return report
}

func TestCheck_InitialState(t *testing.T) {
	doc := writeTemp(t, "signup.yaml", checkDocument)

	out, err := runCLI(t, "check", doc, "-o", "json")
	if err != nil {
		t.Fatalf("check error = %v", err)
	}

	report := decodeReport(t, out)
	if report.Form != "signup" {
		t.Errorf("form = %q", report.Form)
	}
	if report.Summary.FormIsValid {
		t.Error("empty required email should make the form invalid")
	}
	email := report.State.Fields["email"]
	if email == nil || len(email.Errors) != 0 {
		t.Errorf("untouched email should not show errors: %+v", email)
	}
}

func TestCheck_WithValues(t *testing.T) {
	doc := writeTemp(t, "signup.yaml", checkDocument)
	values := writeTemp(t, "values.json", `{"email": "nope", "age": 12}`)

	out, err := runCLI(t, "check", doc, "--values", values, "-o", "json")
	if err != nil {
		t.Fatalf("check error = %v", err)
	}

	report := decodeReport(t, out)
	if got := report.State.Fields["email"].Errors; len(got) != 1 || got[0] != "Invalid email" {
		t.Errorf("email errors = %v", got)
	}
	if got := report.State.Fields["age"].Errors; len(got) != 1 || got[0] != "Must be an adult" {
		t.Errorf("age errors = %v", got)
	}
	if !report.Summary.DiffFromInitial {
		t.Error("expected diff from initial")
	}
}

func TestCheck_ForceShowsRequiredErrors(t *testing.T) {
	doc := writeTemp(t, "signup.yaml", checkDocument)

	out, err := runCLI(t, "check", doc, "--force", "-o", "json")
	if err != nil {
		t.Fatalf("check error = %v", err)
	}

	report := decodeReport(t, out)
	if got := report.State.Fields["email"].Errors; len(got) != 1 || got[0] != tform.DefaultRequiredMsg {
		t.Errorf("email errors = %v", got)
	}
	if report.State.ValidationWasForced != 1 {
		t.Errorf("validationWasForced = %d", report.State.ValidationWasForced)
	}
}

func TestCheck_Strict(t *testing.T) {
	doc := writeTemp(t, "signup.yaml", checkDocument)
	valid := writeTemp(t, "values.yaml", "email: ana@example.com\nage: 30\n")

	if _, err := runCLI(t, "check", doc, "--strict"); err != errFormInvalid {
		t.Errorf("expected errFormInvalid, got %v", err)
	}
	if _, err := runCLI(t, "check", doc, "--strict", "--values", valid); err != nil {
		t.Errorf("expected valid form, got %v", err)
	}
}

func TestCheck_InvalidDocument(t *testing.T) {
	doc := writeTemp(t, "broken.json", `{"fields": {"a": {"required": true}}}`)

	if _, err := runCLI(t, "check", doc); err == nil {
		t.Error("expected error for document without initialValue")
	}
}

func TestCheck_UnknownOutput(t *testing.T) {
	doc := writeTemp(t, "signup.yaml", checkDocument)

	if _, err := runCLI(t, "check", doc, "-o", "xml"); err == nil {
		t.Error("expected error for unknown output format")
	}
}
