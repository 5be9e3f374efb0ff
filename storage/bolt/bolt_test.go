package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Comcast/conduit/storage"
)

func TestImpl(t *testing.T) {
	// Just confirm that this code compiles.
	var _ storage.TokenStore = &Storage{}
}

func TestBasics(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "storage.db")

	s, err := NewStorage(filename)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := s.GetToken(ctx); err != NotOpen {
		t.Fatal(err)
	}

	if err := s.Open(ctx); err != nil {
		t.Fatal(err)
	}

	if token, err := s.GetToken(ctx); err != nil || token != "" {
		t.Fatalf("%q %v", token, err)
	}

	if err := s.SetToken(ctx, "tacos"); err != nil {
		t.Fatal(err)
	}

	if token, err := s.GetToken(ctx); err != nil || token != "tacos" {
		t.Fatalf("%q %v", token, err)
	}

	// Survives a reopen.
	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer s.Close(ctx)

	if token, err := s.GetToken(ctx); err != nil || token != "tacos" {
		t.Fatalf("%q %v", token, err)
	}

	if err := s.ClearToken(ctx); err != nil {
		t.Fatal(err)
	}

	if token, err := s.GetToken(ctx); err != nil || token != "" {
		t.Fatalf("%q %v", token, err)
	}
}
