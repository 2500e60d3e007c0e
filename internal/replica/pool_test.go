package replica

import "testing"

func TestNewRejectsEmpty(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for empty replica list")
	}
}

func TestPickRoundRobins(t *testing.T) {
	urls := []string{"http://a", "http://b", "http://c"}
	pool, err := New(urls)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < len(urls)*2; i++ {
		got := pool.Pick()
		want := urls[i%len(urls)]
		if got != want {
			t.Fatalf("Pick() iteration %d = %q, want %q", i, got, want)
		}
	}
}

func TestLen(t *testing.T) {
	pool, err := New([]string{"http://a", "http://b"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if pool.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", pool.Len())
	}
}

func TestNewCopiesInput(t *testing.T) {
	urls := []string{"http://a"}
	pool, err := New(urls)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	urls[0] = "http://mutated"
	if got := pool.Pick(); got != "http://a" {
		t.Fatalf("pool retained a reference to caller's slice: got %q", got)
	}
}
