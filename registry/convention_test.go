/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"sync"
	"testing"

	"github.com/suparena/sti/errors"
)

type userSuspended struct{}
type userBanned struct{}

func TestTypeName(t *testing.T) {
	tests := []struct {
		base  string
		value string
		want  string
	}{
		{"User", "suspended", "Users.UserSuspended"},
		{`Phylos\User`, "banned", "Users.UserBanned"},
		{"models.Category", "archived", "Categories.CategoryArchived"},
		{"Sample", "on hold", "Samples.SampleOnHold"},
		{"Person", "new", "People.PersonNew"},
	}
	for _, tt := range tests {
		if got := TypeName(tt.base, tt.value); got != tt.want {
			t.Errorf("TypeName(%q, %q) = %q, want %q", tt.base, tt.value, got, tt.want)
		}
	}
}

func TestTitleCaseKeepsInnerCase(t *testing.T) {
	if got := TitleCase("reviewPending"); got != "ReviewPending" {
		t.Fatalf("TitleCase lower-cased the word tail: %q", got)
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"on hold", "On Hold"},
		{"on-hold", "On-hold"},
		{"o'neil", "O'neil"},
		{"in\treview", "In\tReview"},
		{"  padded", "  Padded"},
		{"élan vital", "Élan Vital"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Title(tt.value); got != tt.want {
			t.Errorf("Title(%q) = %q, want %q", tt.value, got, tt.want)
		}
	}
	if got := TitleCase("on-hold"); got != "On-hold" {
		t.Errorf("TitleCase(%q) = %q", "on-hold", got)
	}
}

func TestTitleConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 2000; j++ {
				if got := Title("on hold"); got != "On Hold" {
					t.Errorf("Title = %q", got)
					return
				}
				if got := TypeName("User", "suspended"); got != "Users.UserSuspended" {
					t.Errorf("TypeName = %q", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestConventionResolver(t *testing.T) {
	c := NewCatalog[any]()
	c.MustRegister("Users.UserSuspended", func() any { return &userSuspended{} })
	c.MustRegister("Users.UserBanned", func() any { return &userBanned{} })

	r, err := NewConventionResolver("User", []string{"suspended", "banned"}, c)
	if err != nil {
		t.Fatalf("NewConventionResolver failed: %v", err)
	}

	d, err := r.Resolve("suspended")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if d.Name != "Users.UserSuspended" {
		t.Fatalf("expected Users.UserSuspended, got %q", d.Name)
	}
	if _, ok := d.New().(*userSuspended); !ok {
		t.Fatalf("expected *userSuspended, got %T", d.New())
	}

	// registered in the catalog but not allowed
	c.MustRegister("Users.UserNew", func() any { return &userSuspended{} })
	for _, value := range []any{"new", nil, "registered"} {
		if _, err := r.Resolve(value); !errors.IsUnknownDiscriminator(err) {
			t.Fatalf("expected unknown discriminator for %v, got %v", value, err)
		}
	}

	types := r.Types()
	if len(types) != 2 || types[0] != "banned" || types[1] != "suspended" {
		t.Fatalf("unexpected types %v", types)
	}
	if r.BaseType() != "User" {
		t.Fatalf("unexpected base type %q", r.BaseType())
	}
}

func TestConventionResolverRequiresFactories(t *testing.T) {
	c := NewCatalog[any]()
	c.MustRegister("Users.UserSuspended", func() any { return &userSuspended{} })

	if _, err := NewConventionResolver("User", []string{"suspended", "banned"}, c); err == nil {
		t.Fatal("expected error when a derived type has no factory")
	}
	if _, err := NewConventionResolver("User", []string{"suspended", "suspended"}, c); err == nil {
		t.Fatal("expected error for a repeated allowed value")
	}
}
