package deptree

import (
	"errors"
	"maps"
	"testing"
)

func TestExpandOnce(t *testing.T) {
	lookup := map[string]string{
		"SUPPORT": "/dls_sw/prod/R3.14.12.3/support",
		"MOTOR":   "$(SUPPORT)/motor/6-9",
	}

	tests := []struct {
		name          string
		in            string
		dropUndefined bool
		want          string
	}{
		{
			name: "paren form",
			in:   "$(SUPPORT)/asyn/4-21",
			want: "/dls_sw/prod/R3.14.12.3/support/asyn/4-21",
		},
		{
			name: "brace form",
			in:   "${SUPPORT}/asyn/4-21",
			want: "/dls_sw/prod/R3.14.12.3/support/asyn/4-21",
		},
		{
			name: "bare form",
			in:   "$SUPPORT/asyn/4-21",
			want: "/dls_sw/prod/R3.14.12.3/support/asyn/4-21",
		},
		{
			name: "single pass leaves nested reference",
			in:   "$(MOTOR)/db",
			want: "$(SUPPORT)/motor/6-9/db",
		},
		{
			name: "undefined kept by default",
			in:   "$(NOPE)/x",
			want: "$(NOPE)/x",
		},
		{
			name:          "undefined dropped on request",
			in:            "$(NOPE)/x",
			dropUndefined: true,
			want:          "/x",
		},
		{
			name: "no references",
			in:   "plain/path",
			want: "plain/path",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expandOnce(tt.in, lookup, tt.dropUndefined)
			if got != tt.want {
				t.Errorf("expandOnce(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolveMacros(t *testing.T) {
	tests := []struct {
		name  string
		table map[string]string
		want  map[string]string
	}{
		{
			name: "chain resolves regardless of order",
			table: map[string]string{
				"MOTOR":   "$(SUPPORT)/motor/6-9",
				"SUPPORT": "$(PROD)/support",
				"PROD":    "/dls_sw/prod/R3.14.12.3",
			},
			want: map[string]string{
				"MOTOR":   "/dls_sw/prod/R3.14.12.3/support/motor/6-9",
				"SUPPORT": "/dls_sw/prod/R3.14.12.3/support",
				"PROD":    "/dls_sw/prod/R3.14.12.3",
			},
		},
		{
			name: "undefined references become empty",
			table: map[string]string{
				"A": "$(MISSING)/x",
			},
			want: map[string]string{
				"A": "/x",
			},
		},
		{
			name: "mixed forms in one value",
			table: map[string]string{
				"TOP": "/top",
				"A":   "$(TOP)/${B}/$TOP",
				"B":   "mid",
			},
			want: map[string]string{
				"TOP": "/top",
				"A":   "/top/mid//top",
				"B":   "mid",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := resolveMacros(tt.table, tt.table); err != nil {
				t.Fatalf("resolveMacros() error = %v", err)
			}
			if !maps.Equal(tt.table, tt.want) {
				t.Errorf("resolveMacros() = %v, want %v", tt.table, tt.want)
			}
			// A second resolution must be a no-op.
			if err := resolveMacros(tt.table, tt.table); err != nil {
				t.Fatalf("second resolveMacros() error = %v", err)
			}
			if !maps.Equal(tt.table, tt.want) {
				t.Errorf("resolution not idempotent: %v", tt.table)
			}
		})
	}
}

func TestResolveMacrosCycle(t *testing.T) {
	table := map[string]string{
		"A":  "$(B)/a",
		"B":  "$(A)/b",
		"OK": "/fine",
	}
	err := resolveMacros(table, table)
	var cycleErr *MacroCycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("resolveMacros() error = %v, want *MacroCycleError", err)
	}
	if len(cycleErr.Macros) != 2 || cycleErr.Macros[0] != "A" || cycleErr.Macros[1] != "B" {
		t.Errorf("cycle macros = %v, want [A B]", cycleErr.Macros)
	}
	if table["OK"] != "/fine" {
		t.Errorf("unrelated macro disturbed: %q", table["OK"])
	}
}

func TestResolveMacrosSelfReference(t *testing.T) {
	table := map[string]string{"A": "$(A)/again"}
	err := resolveMacros(table, table)
	var cycleErr *MacroCycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("resolveMacros() error = %v, want *MacroCycleError", err)
	}
}
