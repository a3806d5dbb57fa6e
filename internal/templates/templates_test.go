package templates

import "testing"

func TestIsValid(t *testing.T) {
	if !IsValid("templateA", KindProject) {
		t.Fatal("templateA should be a valid project template")
	}
	if IsValid("templateA", KindTitlePage) {
		t.Fatal("templateA is not a title page template")
	}
	if !IsValid("titleTemplate1", KindTitlePage) {
		t.Fatal("titleTemplate1 should be a valid title page template")
	}
	if IsValid("nope", KindProject) {
		t.Fatal("unknown key should be invalid")
	}
}

func TestDefaultKeys(t *testing.T) {
	if got := DefaultKey(KindProject); got != DefaultProjectKey {
		t.Fatalf("got %q", got)
	}
	if got := DefaultKey(KindTitlePage); got != DefaultTitlePageKey {
		t.Fatalf("got %q", got)
	}
	if !IsValid(DefaultProjectKey, KindProject) {
		t.Fatal("default project key must be registered")
	}
	if !IsValid(DefaultTitlePageKey, KindTitlePage) {
		t.Fatal("default title page key must be registered")
	}
}

func TestSlotExists(t *testing.T) {
	tpl, ok := Get("templateA")
	if !ok || len(tpl.Slots) == 0 {
		t.Fatal("templateA must exist and declare slots")
	}
	if !SlotExists("templateA", tpl.Slots[0].ID) {
		t.Fatalf("slot %q should exist", tpl.Slots[0].ID)
	}
	if SlotExists("templateA", "missing-slot") {
		t.Fatal("unknown slot must not exist")
	}
	if SlotExists("unknown-template", "slot1") {
		t.Fatal("unknown template has no slots")
	}
}

func TestKeys_SortedAndKindScoped(t *testing.T) {
	keys := Keys(KindProject)
	if len(keys) == 0 {
		t.Fatal("expected project templates")
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Fatalf("keys not sorted: %v", keys)
		}
	}
	for _, key := range keys {
		tpl, _ := Get(key)
		if tpl.Kind != KindProject {
			t.Fatalf("key %q has kind %q", key, tpl.Kind)
		}
	}
}
