package internal

import (
	"bytes"
	"testing"
)

// FuzzBindingEqual checks that binding comparison agrees with plain equality.
func FuzzBindingEqual(f *testing.F) {
	f.Add("fp-A", "fp-A")
	f.Add("fp-A", "fp-B")
	f.Add("", "")
	f.Add("d1", "")

	f.Fuzz(func(t *testing.T, a, b string) {
		if got, want := BindingEqual(a, b), a == b; got != want {
			t.Fatalf("BindingEqual(%q, %q) = %v, want %v", a, b, got, want)
		}
	})
}

func TestNewTokenIDShape(t *testing.T) {
	src := bytes.NewReader(bytes.Repeat([]byte{0xAB}, TokenIDSize))
	id, err := NewTokenID(src)
	if err != nil {
		t.Fatalf("NewTokenID: %v", err)
	}
	if !ValidTokenID(id) {
		t.Fatalf("id %q does not decode to %d bytes", id, TokenIDSize)
	}
	if len(id) != 43 {
		t.Fatalf("expected 43 base64url chars, got %d", len(id))
	}
}

func TestNewTokenIDShortRead(t *testing.T) {
	src := bytes.NewReader([]byte{1, 2, 3})
	if _, err := NewTokenID(src); err == nil {
		t.Fatal("expected error on short entropy read")
	}
	if _, err := NewTokenID(nil); err == nil {
		t.Fatal("expected error on nil source")
	}
}

func TestNewTokenIDUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id, err := NewTokenID(DefaultRandom())
		if err != nil {
			t.Fatalf("NewTokenID: %v", err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate token id %q", id)
		}
		seen[id] = struct{}{}
	}
}
