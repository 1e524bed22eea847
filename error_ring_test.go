package tform

import (
	"errors"
	"testing"
)

func report(msg string) Report {
	return Report{Op: "setValue", FieldID: "name", Err: errors.New(msg)}
}

func TestReportRing_NilSafe(t *testing.T) {
	var r *reportRing

	r.push(report("test"))
	r.clear()

	if r.all() != nil {
		t.Error("expected nil from nil ring")
	}
}

func TestReportRing_ZeroSize(t *testing.T) {
	if r := newReportRing(0); r != nil {
		t.Error("expected nil ring for size 0")
	}
	if r := newReportRing(-1); r != nil {
		t.Error("expected nil ring for negative size")
	}
}

func TestReportRing_WrapsAndEvictsOldest(t *testing.T) {
	r := newReportRing(3)

	r.push(report("error1"))
	r.push(report("error2"))
	r.push(report("error3"))
	r.push(report("error4"))

	reports := r.all()
	if len(reports) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(reports))
	}

	want := []string{"error2", "error3", "error4"}
	for i, w := range want {
		if reports[i].Err.Error() != w {
			t.Errorf("report %d: expected %q, got %q", i, w, reports[i].Err.Error())
		}
	}
}

func TestReportRing_Clear(t *testing.T) {
	r := newReportRing(3)

	r.push(report("error1"))
	r.clear()

	if r.all() != nil {
		t.Error("expected nil after clear")
	}

	r.push(report("error2"))
	if len(r.all()) != 1 {
		t.Errorf("expected 1 report after clear and push, got %d", len(r.all()))
	}
}

func TestReport_ErrorAndUnwrap(t *testing.T) {
	rep := Report{Op: "touchField", FieldID: "age", Err: fieldNotFound("age")}

	if !errors.Is(rep, ErrFieldNotFound) {
		t.Error("expected report to unwrap to ErrFieldNotFound")
	}
	if rep.Error() != `touchField age: field with id "age": field not found` {
		t.Errorf("unexpected message %q", rep.Error())
	}

	noField := Report{Op: "sync", Err: errors.New("boom")}
	if noField.Error() != "sync: boom" {
		t.Errorf("unexpected message %q", noField.Error())
	}
}
