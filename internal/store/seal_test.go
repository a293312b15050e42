package store

import (
	"errors"
	"testing"
)

func TestNewSealerEmptyPassphrase(t *testing.T) {
	s, err := NewSealer("")
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	if s != nil {
		t.Error("expected nil sealer for empty passphrase")
	}
}

func TestSealerAcrossInstances(t *testing.T) {
	a, err := NewSealer("pass")
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	sealed, err := a.Seal("hello")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	// A later process has a fresh salt but the same passphrase.
	b, err := NewSealer("pass")
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	got, err := b.Open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got != "hello" {
		t.Errorf("open = %q, want hello", got)
	}
}

func TestSealerWrongPassphrase(t *testing.T) {
	a, _ := NewSealer("right")
	sealed, _ := a.Seal("hello")

	b, _ := NewSealer("wrong")
	if _, err := b.Open(sealed); err == nil {
		t.Fatal("expected error opening with wrong passphrase")
	}
}

func TestSealerTooShort(t *testing.T) {
	s, _ := NewSealer("pass")
	_, err := s.Open("AAAA")
	if !errors.Is(err, ErrSealedTooShort) {
		t.Errorf("err = %v, want ErrSealedTooShort", err)
	}
}
