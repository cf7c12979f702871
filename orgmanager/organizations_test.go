package orgmanager

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestInMemoryOrganizationStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryOrganizationStore()

	first, err := store.Create(ctx, "acme")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	second, err := store.Create(ctx, "globex")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if first.ID != 1 || second.ID != 2 {
		t.Errorf("IDs = %d, %d, want 1, 2", first.ID, second.ID)
	}
	if first.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	orgs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(orgs) != 2 || orgs[0].Name != "acme" || orgs[1].Name != "globex" {
		t.Errorf("List() = %+v", orgs)
	}

	orgs[0].Name = "mutated"
	again, _ := store.List(ctx)
	if again[0].Name != "acme" {
		t.Error("List() should return copies")
	}
}

func TestOrganizationNameValidation(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryOrganizationStore()

	for _, name := range []string{"", "   ", strings.Repeat("x", 201)} {
		if _, err := store.Create(ctx, name); !errors.Is(err, ErrInvalidOrganization) {
			t.Errorf("Create(%q) error = %v, want ErrInvalidOrganization", name, err)
		}
	}

	if _, err := store.Create(ctx, strings.Repeat("x", 200)); err != nil {
		t.Errorf("Create() with a 200 character name failed: %v", err)
	}
}
