package core

import "testing"

func strptr(s string) *string { return &s }
func intptr(i int) *int       { return &i }

func TestDmoCreateValidate(t *testing.T) {
	good := DmoCreate{Name: "  Morning Routine  "}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if good.Name != "Morning Routine" {
		t.Fatalf("expected trimmed name, got %q", good.Name)
	}

	bads := []DmoCreate{
		{Name: ""},
		{Name: "   "},
		{Name: string(make([]byte, 256))},
	}
	for i, d := range bads {
		if err := d.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDmoUpdateValidate(t *testing.T) {
	empty := DmoUpdate{}
	if err := empty.Validate(); err != nil {
		t.Fatalf("nil name should validate, got %v", err)
	}
	if !empty.IsZero() {
		t.Fatalf("expected zero update")
	}

	u := DmoUpdate{Name: strptr("  Renamed  ")}
	if err := u.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if *u.Name != "Renamed" {
		t.Fatalf("expected trimmed name, got %q", *u.Name)
	}

	bad := DmoUpdate{Name: strptr("   ")}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for whitespace name")
	}
}

func TestActivityCreateValidate(t *testing.T) {
	good := ActivityCreate{DmoID: 1, Name: " Stretch ", Order: 0}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if good.Name != "Stretch" {
		t.Fatalf("expected trimmed name, got %q", good.Name)
	}

	if err := (&ActivityCreate{DmoID: 1, Name: ""}).Validate(); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if err := (&ActivityCreate{DmoID: 1, Name: "x", Order: -1}).Validate(); err == nil {
		t.Fatalf("expected error for negative order")
	}
}

func TestActivityUpdateValidate(t *testing.T) {
	if err := (&ActivityUpdate{}).Validate(); err != nil {
		t.Fatalf("empty update should validate")
	}
	if err := (&ActivityUpdate{Order: intptr(-1)}).Validate(); err == nil {
		t.Fatalf("expected error for negative order")
	}
	u := ActivityUpdate{Name: strptr(" a "), Order: intptr(3)}
	if err := u.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if *u.Name != "a" || *u.Order != 3 {
		t.Fatalf("unexpected normalized update: %+v", u)
	}
}
