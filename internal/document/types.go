package document

import (
	"encoding/json"
	"strconv"
	"strings"
)

// SectionType 是 Section 的判别字段，payload 结构随类型变化。
type SectionType string

const (
	TypeTitle        SectionType = "title"
	TypeDescription  SectionType = "description"
	TypeTechnologies SectionType = "technologies"
	TypeImage        SectionType = "image"
	TypeGithubURL    SectionType = "github_url"
	TypeLiveURL      SectionType = "live_url"
	TypeLanguages    SectionType = "languages"
	TypeSocialMedia  SectionType = "social_media"
)

// projectTypes / titlePageTypes 规定两类文档各自允许的 Section 类型。
var projectTypes = map[SectionType]bool{
	TypeTitle:        true,
	TypeDescription:  true,
	TypeTechnologies: true,
	TypeImage:        true,
	TypeGithubURL:    true,
	TypeLiveURL:      true,
}

var titlePageTypes = map[SectionType]bool{
	TypeLanguages:    true,
	TypeTechnologies: true,
	TypeSocialMedia:  true,
}

// singleInstanceTypes 列出每份文档最多出现一次的类型。
var singleInstanceTypes = map[SectionType]bool{
	TypeTitle:        true,
	TypeTechnologies: true,
	TypeGithubURL:    true,
	TypeLiveURL:      true,
}

// SectionID 兼容客户端提交的数字或字符串 id，统一按字符串保存。
type SectionID string

func (id *SectionID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = SectionID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = SectionID(n.String())
	return nil
}

func (id SectionID) MarshalJSON() ([]byte, error) {
	// 数字形式的 id 原样写回数字，避免往返后类型漂移。
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id SectionID) String() string { return string(id) }

// Section 是文档中的一个内容单元。
// Value 的结构由 Type 决定，保留原始 JSON，按需解码。
type Section struct {
	ID     SectionID       `json:"id"`
	Type   SectionType     `json:"type"`
	Order  int             `json:"order"`
	SlotID string          `json:"slot_id,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
}

// Document 表示存储在 Project / TitlePage Data(JSONB) 中的结构化内容。
// TemplateKey 为可选的内部引用，必须与实体自身的 template_key 一致。
type Document struct {
	TemplateKey string    `json:"template_key,omitempty"`
	Sections    []Section `json:"sections"`
}

// SocialLink 是 social_media Section 的一项。
type SocialLink struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// LanguageSkill 是 languages Section 的一项。
type LanguageSkill struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

// Parse 解码文档。调用方应当先用 Validate 校验原始输入。
func Parse(raw []byte) (Document, error) {
	var doc Document
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// First 返回第一个匹配类型的 Section，没有则返回 nil。
func (d Document) First(t SectionType) *Section {
	for i := range d.Sections {
		if d.Sections[i].Type == t {
			return &d.Sections[i]
		}
	}
	return nil
}

// StringValue 解出字符串型 payload（title/description/github_url/live_url）。
func (s Section) StringValue() (string, bool) {
	if len(s.Value) == 0 {
		return "", false
	}
	var v string
	if err := json.Unmarshal(s.Value, &v); err != nil {
		return "", false
	}
	return v, true
}

// TechList 解出 technologies 的标签列表。
// 兼容两种提交形式：字符串数组，或逗号拼接的单个字符串。
func (s Section) TechList() []string {
	if len(s.Value) == 0 {
		return nil
	}

	var list []string
	if err := json.Unmarshal(s.Value, &list); err == nil {
		return trimAll(list)
	}

	var joined string
	if err := json.Unmarshal(s.Value, &joined); err == nil {
		return trimAll(strings.Split(joined, ","))
	}
	return nil
}

// SocialLinks 解出 social_media 的平台链接列表。
func (s Section) SocialLinks() []SocialLink {
	if len(s.Value) == 0 {
		return nil
	}
	var links []SocialLink
	if err := json.Unmarshal(s.Value, &links); err != nil {
		return nil
	}
	return links
}

// Languages 解出 languages 的语言能力列表。
func (s Section) Languages() []LanguageSkill {
	if len(s.Value) == 0 {
		return nil
	}
	var skills []LanguageSkill
	if err := json.Unmarshal(s.Value, &skills); err != nil {
		return nil
	}
	return skills
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
