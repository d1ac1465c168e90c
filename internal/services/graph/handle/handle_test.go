package handle

import "testing"

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "lowercase passthrough", input: "alice", want: "alice"},
		{name: "uppercase folds", input: "Alice", want: "alice"},
		{name: "mixed case folds", input: "DJ.Khaled_99", want: "dj.khaled_99"},
		{name: "surrounding whitespace trimmed", input: "  bob  ", want: "bob"},
		{name: "hyphen and underscore allowed", input: "a-b_c", want: "a-b_c"},
		{name: "minimum length", input: "abc", want: "abc"},
		{name: "maximum length", input: "abcdefghijklmnopqrstuvwxyz012345", want: "abcdefghijklmnopqrstuvwxyz012345"},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
		{name: "too short", input: "ab", wantErr: true},
		{name: "too long", input: "abcdefghijklmnopqrstuvwxyz0123456", wantErr: true},
		{name: "leading digit", input: "1alice", wantErr: true},
		{name: "leading dot", input: ".alice", wantErr: true},
		{name: "inner space", input: "al ice", wantErr: true},
		{name: "non-ascii", input: "ålice", wantErr: true},
		{name: "emoji", input: "alice🙂", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Canonicalize(%q) = %q, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Canonicalize(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("Canonicalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	first, err := Canonicalize("Bob.Builder")
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	second, err := Canonicalize(first)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if first != second {
		t.Fatalf("second pass = %q, want %q", second, first)
	}
}
