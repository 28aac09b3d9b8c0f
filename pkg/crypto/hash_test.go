package crypto

import (
	"testing"

	"github.com/Klingon-tech/txroot/pkg/types"
)

func hexToHash(t *testing.T, s string) types.Hash {
	t.Helper()
	h, err := types.ParseHash(types.Digest(s))
	if err != nil {
		t.Fatalf("bad vector: %v", err)
	}
	return h
}

func TestHashFuncs_KnownVectors(t *testing.T) {
	tests := []struct {
		name  string
		fn    HashFunc
		input []byte
		want  string
	}{
		{
			name:  "blake3 empty",
			fn:    Hash,
			input: []byte{},
			want:  "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
		},
		{
			name:  "blake3 hello",
			fn:    Hash,
			input: []byte("hello"),
			want:  "ea8f163db38682925e4491c5e58d4bb3506ef8c14eb78a86e908c5624a67200f",
		},
		{
			name:  "sha256 empty",
			fn:    SHA256,
			input: []byte{},
			want:  "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:  "sha256 hello",
			fn:    SHA256,
			input: []byte("hello"),
			want:  "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		},
		{
			name:  "sha3 empty",
			fn:    SHA3,
			input: []byte{},
			want:  "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a",
		},
		{
			name:  "sha3 hello",
			fn:    SHA3,
			input: []byte("hello"),
			want:  "3338be694f50c5f338814986cdf0686453a888b84f424d792af4b9202398f392",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(tt.input)
			want := hexToHash(t, tt.want)
			if got != want {
				t.Errorf("%s(%q) = %x, want %x", tt.name, tt.input, got, want)
			}
		})
	}
}

func TestHash_Deterministic(t *testing.T) {
	data := []byte("deterministic test input")
	for _, fn := range []HashFunc{Hash, SHA256, SHA3} {
		if fn(data) != fn(data) {
			t.Error("hash function is not deterministic")
		}
	}
}

func TestHash_DifferentInputs(t *testing.T) {
	for _, fn := range []HashFunc{Hash, SHA256, SHA3} {
		if fn([]byte("input A")) == fn([]byte("input B")) {
			t.Error("different inputs produced the same hash")
		}
	}
}
