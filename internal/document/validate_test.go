package document

import (
	"testing"

	"github.com/BartekTra/portfolioCreator-sub000/internal/templates"
)

func projectOpts(key string) Options {
	return Options{EntityTemplateKey: key, Kind: templates.KindProject}
}

func TestValidate_RejectsNonObject(t *testing.T) {
	cases := map[string]string{
		"array":   `[1,2,3]`,
		"string":  `"hello"`,
		"number":  `42`,
		"garbage": `{not json`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			violations := Validate([]byte(raw), projectOpts("templateA"))
			if len(violations) != 1 || violations[0] != ErrNotObject {
				t.Fatalf("got %v, want [%q]", violations, ErrNotObject)
			}
		})
	}
}

func TestValidate_EmptyDocumentIsValid(t *testing.T) {
	if violations := Validate(nil, projectOpts("templateA")); len(violations) != 0 {
		t.Fatalf("empty payload: got %v", violations)
	}
	if violations := Validate([]byte(`{}`), projectOpts("templateA")); len(violations) != 0 {
		t.Fatalf("empty object: got %v", violations)
	}
}

func TestValidate_RequireSections(t *testing.T) {
	opts := projectOpts("templateA")
	opts.RequireSections = true
	violations := Validate([]byte(`{"sections":[]}`), opts)
	if len(violations) != 1 || violations[0] != ErrNoSections {
		t.Fatalf("got %v, want [%q]", violations, ErrNoSections)
	}
}

func TestValidate_SectionsMustBeArray(t *testing.T) {
	violations := Validate([]byte(`{"sections":{"a":1}}`), projectOpts("templateA"))
	if len(violations) != 1 || violations[0] != ErrSectionsNotArray {
		t.Fatalf("got %v, want [%q]", violations, ErrSectionsNotArray)
	}
}

func TestValidate_SectionShape(t *testing.T) {
	raw := []byte(`{"sections":[
		{"type":"title","order":0},
		{"id":1,"type":"title","order":"first"},
		{"id":2,"type":"salary","order":1},
		{"id":3,"type":"description","order":2}
	]}`)
	violations := Validate(raw, projectOpts("templateA"))
	want := []string{
		"section at index 0 must have id and type",
		"section at index 0 must have numeric order",
		"section at index 1 must have numeric order",
		"section at index 2 has unsupported type",
	}
	if len(violations) != len(want) {
		t.Fatalf("got %v, want %v", violations, want)
	}
	for i := range want {
		if violations[i] != want[i] {
			t.Fatalf("violation %d: got %q, want %q", i, violations[i], want[i])
		}
	}
}

func TestValidate_TemplateKeyMismatch(t *testing.T) {
	raw := []byte(`{"template_key":"templateB","sections":[]}`)
	violations := Validate(raw, projectOpts("templateA"))
	if len(violations) != 1 || violations[0] != ErrTemplateMismatch {
		t.Fatalf("got %v, want [%q]", violations, ErrTemplateMismatch)
	}

	matching := []byte(`{"template_key":"templateA","sections":[]}`)
	if violations := Validate(matching, projectOpts("templateA")); len(violations) != 0 {
		t.Fatalf("matching key: got %v", violations)
	}
}

func TestValidate_KindControlsAllowedTypes(t *testing.T) {
	raw := []byte(`{"sections":[{"id":1,"type":"social_media","order":0}]}`)

	if violations := Validate(raw, projectOpts("templateA")); len(violations) == 0 {
		t.Fatal("social_media should be rejected for project documents")
	}

	opts := Options{EntityTemplateKey: "titleTemplate1", Kind: templates.KindTitlePage}
	if violations := Validate(raw, opts); len(violations) != 0 {
		t.Fatalf("title page document: got %v", violations)
	}
}

func TestMultiplicityViolations(t *testing.T) {
	doc := Document{Sections: []Section{
		{ID: "1", Type: TypeTitle, Order: 0},
		{ID: "2", Type: TypeTitle, Order: 1},
		{ID: "3", Type: TypeImage, Order: 2},
		{ID: "4", Type: TypeImage, Order: 3},
		{ID: "5", Type: TypeGithubURL, Order: 4},
	}}
	violations := MultiplicityViolations(doc)
	if len(violations) != 1 {
		t.Fatalf("got %v, want single title violation", violations)
	}
	if violations[0] != "document allows only one title section" {
		t.Fatalf("got %q", violations[0])
	}
}

func TestSlotViolations(t *testing.T) {
	doc := Document{Sections: []Section{
		{ID: "1", Type: TypeTitle, Order: 0, SlotID: "slot1"},
		{ID: "2", Type: TypeDescription, Order: 1, SlotID: "no-such-slot"},
		{ID: "3", Type: TypeImage, Order: 2}, // 孤儿 Section 合法
	}}
	violations := SlotViolations(doc, "templateA")
	if len(violations) != 1 {
		t.Fatalf("got %v, want single unknown-slot violation", violations)
	}
}

func TestSectionID_AcceptsNumberAndString(t *testing.T) {
	doc, err := Parse([]byte(`{"sections":[
		{"id":7,"type":"title","order":0},
		{"id":"intro","type":"description","order":1}
	]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Sections[0].ID != "7" {
		t.Fatalf("numeric id: got %q", doc.Sections[0].ID)
	}
	if doc.Sections[1].ID != "intro" {
		t.Fatalf("string id: got %q", doc.Sections[1].ID)
	}
}

func TestSectionID_NumericRoundTrip(t *testing.T) {
	id := SectionID("42")
	b, err := id.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "42" {
		t.Fatalf("numeric id should marshal as number, got %s", b)
	}

	b, err = SectionID("intro").MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"intro"` {
		t.Fatalf("string id should marshal as string, got %s", b)
	}
}

func TestTechList_BothForms(t *testing.T) {
	array := Section{Type: TypeTechnologies, Value: []byte(`["Go"," Redis ","","Postgres"]`)}
	if got := array.TechList(); len(got) != 3 || got[0] != "Go" || got[1] != "Redis" || got[2] != "Postgres" {
		t.Fatalf("array form: got %v", got)
	}

	joined := Section{Type: TypeTechnologies, Value: []byte(`"Go, Redis,Postgres"`)}
	if got := joined.TechList(); len(got) != 3 || got[1] != "Redis" {
		t.Fatalf("comma form: got %v", got)
	}
}
