package ndk

import "testing"

func TestProjectIdentity(t *testing.T) {
	rs := mustRecordSet(t, testSchema(), []Row{
		{"name": S("a"), "age": I(1), "score": F(0.5)},
		{"name": S("b"), "age": Missing, "score": F(1.5)},
	})
	out, err := Project(rs, rs.Schema().Names())
	if err != nil {
		t.Fatalf("projecting: %v", err)
	}
	if err := out.Equal(rs); err != nil {
		t.Fatalf("projecting onto the full column set should be the identity: %v", err)
	}
}

func TestProjectSubsetAndOrder(t *testing.T) {
	rs := mustRecordSet(t, testSchema(), []Row{
		{"name": S("a"), "age": I(1), "score": F(0.5)},
	})
	out, err := Project(rs, []string{"score", "name"})
	if err != nil {
		t.Fatalf("projecting: %v", err)
	}
	names := out.Schema().Names()
	if len(names) != 2 || names[0] != "score" || names[1] != "name" {
		t.Fatalf("expected [score name], got %v", names)
	}
	if out.Schema().Index("age") >= 0 {
		t.Fatal("dropped column still present")
	}
	if Format(out.Row(0)["score"]) != "0.5" {
		t.Fatalf("unexpected value: %v", out.Row(0)["score"])
	}
}

func TestProjectUnknownColumn(t *testing.T) {
	rs := mustRecordSet(t, testSchema(), nil)
	_, err := Project(rs, []string{"name", "zip"})
	perr, ok := err.(*ProjectionError)
	if !ok {
		t.Fatalf("expected *ProjectionError, got %v", err)
	}
	if perr.Column != "zip" {
		t.Fatalf("expected offending column 'zip', got '%s'", perr.Column)
	}
	if len(perr.Available) != 3 {
		t.Fatalf("expected 3 available columns, got %v", perr.Available)
	}
}

func TestProjectDuplicateRequest(t *testing.T) {
	rs := mustRecordSet(t, testSchema(), nil)
	if _, err := Project(rs, []string{"name", "name"}); err == nil {
		t.Fatal("expected error for duplicated column request")
	}
}
