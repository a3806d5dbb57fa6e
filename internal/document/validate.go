package document

import (
	"encoding/json"
	"fmt"

	"github.com/BartekTra/portfolioCreator-sub000/internal/templates"
)

// 校验失败时返回的固定文案，前端依赖这些字符串做提示。
const (
	ErrNotObject        = "must be a valid JSON object"
	ErrSectionsNotArray = "must have sections array"
	ErrTemplateMismatch = "template_key must match project template"
	ErrNoSections       = "must contain at least one section"
)

// Options 控制形状校验的上下文。
type Options struct {
	// EntityTemplateKey 是实体上持久化的 template_key；
	// 文档内部若携带 template_key，必须与之一致。
	EntityTemplateKey string
	// Kind 决定允许的 Section 类型集合。
	Kind templates.Kind
	// RequireSections 为 true 时（创建场景）空文档视为违规。
	RequireSections bool
}

// Validate 对原始 JSON 做形状校验，返回全部违规项；合法时返回空切片。
// 纯函数，无副作用。规则顺序与返回文案是对外约定的一部分。
func Validate(raw []byte, opts Options) []string {
	var violations []string

	var decoded any
	if len(raw) == 0 {
		decoded = map[string]any{}
	} else if err := json.Unmarshal(raw, &decoded); err != nil {
		return []string{ErrNotObject}
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return []string{ErrNotObject}
	}

	sections := []any{}
	if rawSections, exists := obj["sections"]; exists {
		arr, ok := rawSections.([]any)
		if !ok {
			violations = append(violations, ErrSectionsNotArray)
			arr = nil
		}
		sections = arr
	}

	if len(violations) == 0 {
		violations = append(violations, sectionViolations(sections, opts.Kind)...)
	}

	if docKey, exists := obj["template_key"]; exists {
		if s, ok := docKey.(string); !ok || s != opts.EntityTemplateKey {
			violations = append(violations, ErrTemplateMismatch)
		}
	}

	if opts.RequireSections && len(sections) == 0 {
		violations = append(violations, ErrNoSections)
	}

	return violations
}

func sectionViolations(sections []any, kind templates.Kind) []string {
	var violations []string

	allowed := projectTypes
	if kind == templates.KindTitlePage {
		allowed = titlePageTypes
	}

	for i, raw := range sections {
		section, ok := raw.(map[string]any)
		if !ok {
			violations = append(violations, fmt.Sprintf("section at index %d must have id and type", i))
			continue
		}

		if !hasKey(section, "id") || !hasKey(section, "type") {
			violations = append(violations, fmt.Sprintf("section at index %d must have id and type", i))
		} else if t, ok := section["type"].(string); !ok || !allowed[SectionType(t)] {
			violations = append(violations, fmt.Sprintf("section at index %d has unsupported type", i))
		}

		if !isNumeric(section["order"]) {
			violations = append(violations, fmt.Sprintf("section at index %d must have numeric order", i))
		}
	}

	return violations
}

// MultiplicityViolations 检查单例类型是否重复出现。
// 该约束属于组合层语义，不属于文档形状本身。
func MultiplicityViolations(doc Document) []string {
	var violations []string
	seen := map[SectionType]bool{}
	for _, s := range doc.Sections {
		if !singleInstanceTypes[s.Type] {
			continue
		}
		if seen[s.Type] {
			violations = append(violations, fmt.Sprintf("document allows only one %s section", s.Type))
			continue
		}
		seen[s.Type] = true
	}
	return violations
}

// SlotViolations 检查各 Section 绑定的栏位是否在模板中存在。
// 未绑定栏位的 Section（孤儿）是合法的，单独渲染。
func SlotViolations(doc Document, templateKey string) []string {
	var violations []string
	for i, s := range doc.Sections {
		if s.SlotID == "" {
			continue
		}
		if !templates.SlotExists(templateKey, s.SlotID) {
			violations = append(violations, fmt.Sprintf("section at index %d references unknown slot %q", i, s.SlotID))
		}
	}
	return violations
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

func isNumeric(v any) bool {
	switch v.(type) {
	case float64, json.Number:
		return true
	default:
		return false
	}
}
