package types

import (
	"errors"
	"strings"
	"testing"
)

func TestHash_IsZero(t *testing.T) {
	var zero Hash
	if !zero.IsZero() {
		t.Error("zero-value Hash should be zero")
	}

	nonZero := Hash{0x01}
	if nonZero.IsZero() {
		t.Error("non-zero Hash should not be zero")
	}
}

func TestHash_String(t *testing.T) {
	var h Hash
	s := h.String()
	if len(s) != 64 {
		t.Errorf("String() length = %d, want 64", len(s))
	}
	if s != strings.Repeat("0", 64) {
		t.Errorf("zero hash String() = %s, want all zeros", s)
	}

	h[0] = 0xab
	h[31] = 0xcd
	s = h.String()
	if !strings.HasPrefix(s, "ab") {
		t.Errorf("String() should start with 'ab', got %s", s[:2])
	}
	if !strings.HasSuffix(s, "cd") {
		t.Errorf("String() should end with 'cd', got %s", s[62:])
	}
}

func TestParseHash(t *testing.T) {
	tests := []struct {
		name    string
		input   Digest
		wantErr bool
	}{
		{
			name:  "valid 64 hex chars",
			input: "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
		},
		{
			name:  "all zeros",
			input: Digest(strings.Repeat("0", 64)),
		},
		{
			name:    "too short",
			input:   "abcd",
			wantErr: true,
		},
		{
			name:    "too long",
			input:   Digest(strings.Repeat("a", 66)),
			wantErr: true,
		},
		{
			name:    "invalid hex character",
			input:   Digest(strings.Repeat("g", 64)),
			wantErr: true,
		},
		{
			name:    "text digest",
			input:   "h1|h2|h3|h3",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := ParseHash(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrBadHash) {
					t.Errorf("ParseHash(%q) = %v, want ErrBadHash", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHash(%q) unexpected error: %v", tt.input, err)
			}
			if h.Digest() != tt.input {
				t.Errorf("roundtrip: got %s, want %s", h.Digest(), tt.input)
			}
		})
	}
}

func TestHash_Digest(t *testing.T) {
	h := Hash{0x01}
	d := h.Digest()
	if d.String() != h.String() {
		t.Errorf("Digest() = %s, want %s", d, h)
	}
	if len(d) != 2*HashSize {
		t.Errorf("Digest() length = %d, want %d", len(d), 2*HashSize)
	}
}
