package util

import "testing"

func TestTrimQuotes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no quotes", "hello", "hello"},
		{"double quoted", `"hello"`, "hello"},
		{"single quotes only", "'hello'", "'hello'"},
		{"quotes in middle", `he"llo`, `he"llo`},
		{"only quotes", `""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TrimQuotes(tt.input)
			if result != tt.expected {
				t.Errorf("TrimQuotes(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFixEscapeQuotes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no escaped quotes", "hello", "hello"},
		{"single escaped quote", `he""llo`, `he"llo`},
		{"multiple escaped quotes", `a""b""c`, `a"b"c`},
		{"consecutive escaped", `a""""b`, `a""b`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FixEscapeQuotes(tt.input)
			if result != tt.expected {
				t.Errorf("FixEscapeQuotes(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestCleanArgs(t *testing.T) {
	args := CleanArgs([]string{` "p1" `, `"say ""hi"""`, "3.5"})
	want := []string{"p1", `say "hi"`, "3.5"}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("arg %d = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestArgFloat(t *testing.T) {
	args := []string{"p1", "2.5", "tall"}

	if v, err := ArgFloat(args, 1); err != nil || v != 2.5 {
		t.Errorf("ArgFloat(1) = %v, %v", v, err)
	}
	if _, err := ArgFloat(args, 2); err == nil {
		t.Error("expected parse error")
	}
	if _, err := ArgFloat(args, 3); err == nil {
		t.Error("expected missing argument error")
	}
}

func TestArgFloatOr(t *testing.T) {
	args := []string{"p1", ""}

	if v, err := ArgFloatOr(args, 1, 0.02); err != nil || v != 0.02 {
		t.Errorf("empty arg: %v, %v", v, err)
	}
	if v, err := ArgFloatOr(args, 5, 1); err != nil || v != 1 {
		t.Errorf("missing arg: %v, %v", v, err)
	}
	if _, err := ArgFloatOr([]string{"x"}, 0, 1); err == nil {
		t.Error("expected parse error")
	}
}

func TestArgInt(t *testing.T) {
	args := []string{"10", "1.5"}

	if v, err := ArgInt(args, 0); err != nil || v != 10 {
		t.Errorf("ArgInt(0) = %v, %v", v, err)
	}
	if _, err := ArgInt(args, 1); err == nil {
		t.Error("expected parse error")
	}
	if _, err := ArgInt(args, 2); err == nil {
		t.Error("expected missing argument error")
	}
}
