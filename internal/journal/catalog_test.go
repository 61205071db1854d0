package journal

import "testing"

func TestLogSearchableVisibleTo(t *testing.T) {
	curated := LogSearchable{ID: "med-1", Name: "Ibuprofen", ParentCategory: CategoryMedication, CreatedBy: CreatedByMaster}
	owned := LogSearchable{ID: "med-2", Name: "My Supplement", ParentCategory: CategoryMedication, CreatedBy: "user-1"}

	if !curated.VisibleTo("user-1") || !curated.VisibleTo("user-2") {
		t.Fatalf("curated entries must be visible to everyone")
	}
	if !owned.VisibleTo("user-1") {
		t.Fatalf("owner must see their own entry")
	}
	if owned.VisibleTo("user-2") {
		t.Fatalf("user-added entries must stay private to their owner")
	}
}

func TestLogSearchableValidate(t *testing.T) {
	valid := LogSearchable{ID: "med-1", Name: "Ibuprofen", ParentCategory: CategoryMedication, CreatedBy: CreatedByMaster}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid entry, got %v", err)
	}

	tests := []struct {
		name string
		item LogSearchable
	}{
		{"empty id", LogSearchable{Name: "Ibuprofen", ParentCategory: CategoryMedication}},
		{"blank name", LogSearchable{ID: "med-1", Name: "   ", ParentCategory: CategoryMedication}},
		{"unknown category", LogSearchable{ID: "med-1", Name: "Ibuprofen", ParentCategory: Category("vitals")}},
	}
	for _, tc := range tests {
		if err := tc.item.Validate(); err == nil {
			t.Fatalf("expected validation error for %s", tc.name)
		}
	}
}

func TestUserLinkedAndValidate(t *testing.T) {
	plain := User{ID: "user-1"}
	if plain.Linked() {
		t.Fatalf("user without account reference must not report linked")
	}
	if err := plain.Validate(); err != nil {
		t.Fatalf("expected plain user to validate, got %v", err)
	}

	linked := User{ID: "user-1", LinkedAccount: &ExternalAccountRef{AccountID: "acct-1"}}
	if !linked.Linked() {
		t.Fatalf("user with account reference must report linked")
	}
	broken := User{ID: "user-1", LinkedAccount: &ExternalAccountRef{}}
	if err := broken.Validate(); err == nil {
		t.Fatalf("expected error for linked account without id")
	}
}
