package memory

import (
	"context"
	"testing"

	"github.com/lanternsoft/authbridge/core"
)

func seedUsers(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	users := []map[string]interface{}{
		{"id": "1", "email": "a@example.com", "age": 30},
		{"id": "2", "email": "b@example.com", "age": 25},
		{"id": "3", "email": "c@example.com", "age": 35},
	}
	for _, u := range users {
		if _, err := s.Create(ctx, "user", u); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
}

func TestCreateAndFindOne(t *testing.T) {
	s := New()
	seedUsers(t, s)

	got, err := s.FindOne(context.Background(), &core.Query{
		Model: "user",
		Where: []core.WhereClause{{Field: "email", Operator: core.OpEqual, Value: "b@example.com"}},
	})
	if err != nil {
		t.Fatalf("FindOne failed: %v", err)
	}
	if got == nil || got["id"] != "2" {
		t.Errorf("expected user 2, got %v", got)
	}
}

func TestFindOneMissingReturnsNil(t *testing.T) {
	s := New()
	got, err := s.FindOne(context.Background(), &core.Query{
		Model: "user",
		Where: []core.WhereClause{{Field: "id", Value: "nope"}},
	})
	if err != nil {
		t.Fatalf("FindOne failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing record, got %v", got)
	}
}

func TestFindManyOperators(t *testing.T) {
	s := New()
	seedUsers(t, s)
	ctx := context.Background()

	got, err := s.FindMany(ctx, &core.Query{
		Model: "user",
		Where: []core.WhereClause{{Field: "age", Operator: core.OpGreaterThan, Value: 26}},
	})
	if err != nil {
		t.Fatalf("FindMany failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 users over 26, got %d", len(got))
	}

	got, err = s.FindMany(ctx, &core.Query{
		Model: "user",
		Where: []core.WhereClause{{Field: "id", Operator: core.OpIn, Value: []interface{}{"1", "3"}}},
	})
	if err != nil {
		t.Fatalf("FindMany failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 users in set, got %d", len(got))
	}

	got, err = s.FindMany(ctx, &core.Query{
		Model: "user",
		Where: []core.WhereClause{{Field: "email", Operator: core.OpNotEqual, Value: "a@example.com"}},
	})
	if err != nil {
		t.Fatalf("FindMany failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 users excluding a@, got %d", len(got))
	}
}

func TestFindManyOrderLimitOffset(t *testing.T) {
	s := New()
	seedUsers(t, s)

	got, err := s.FindMany(context.Background(), &core.Query{
		Model:   "user",
		OrderBy: []core.OrderBy{{Field: "age", Desc: true}},
		Limit:   2,
	})
	if err != nil {
		t.Fatalf("FindMany failed: %v", err)
	}
	if len(got) != 2 || got[0]["id"] != "3" || got[1]["id"] != "1" {
		t.Errorf("expected [3 1] by descending age, got %v", got)
	}

	got, err = s.FindMany(context.Background(), &core.Query{
		Model:   "user",
		OrderBy: []core.OrderBy{{Field: "age"}},
		Offset:  1,
	})
	if err != nil {
		t.Fatalf("FindMany failed: %v", err)
	}
	if len(got) != 2 || got[0]["id"] != "1" {
		t.Errorf("expected offset past youngest, got %v", got)
	}
}

func TestUpdateFirstMatch(t *testing.T) {
	s := New()
	seedUsers(t, s)

	got, err := s.Update(context.Background(), &core.Query{
		Model: "user",
		Where: []core.WhereClause{{Field: "id", Value: "2"}},
	}, map[string]interface{}{"email": "new@example.com"})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got["email"] != "new@example.com" {
		t.Errorf("update result missing change: %v", got)
	}

	check, _ := s.FindOne(context.Background(), &core.Query{
		Model: "user",
		Where: []core.WhereClause{{Field: "id", Value: "2"}},
	})
	if check["email"] != "new@example.com" {
		t.Errorf("update not persisted: %v", check)
	}
}

func TestDeleteAndCount(t *testing.T) {
	s := New()
	seedUsers(t, s)
	ctx := context.Background()

	if err := s.Delete(ctx, &core.Query{
		Model: "user",
		Where: []core.WhereClause{{Field: "id", Value: "1"}},
	}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	count, err := s.Count(ctx, &core.Query{Model: "user"})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 remaining, got %d", count)
	}
}

func TestResultsAreCopies(t *testing.T) {
	s := New()
	seedUsers(t, s)

	got, _ := s.FindOne(context.Background(), &core.Query{
		Model: "user",
		Where: []core.WhereClause{{Field: "id", Value: "1"}},
	})
	got["email"] = "mutated@example.com"

	again, _ := s.FindOne(context.Background(), &core.Query{
		Model: "user",
		Where: []core.WhereClause{{Field: "id", Value: "1"}},
	})
	if again["email"] != "a@example.com" {
		t.Error("caller mutation leaked into the store")
	}
}
