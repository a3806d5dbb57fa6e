package document

import "sort"

// UntitledFallback 是文档中没有 title Section 时的展示标题。
const UntitledFallback = "Untitled project"

// TitleFor 从原始文档中推导展示标题：
// 取第一个 type=="title" 的 Section 的字符串值，缺失时回落到占位标题。
// 标题永远是派生值，不落库。
func TitleFor(raw []byte) string {
	doc, err := Parse(raw)
	if err != nil {
		return UntitledFallback
	}

	section := doc.First(TypeTitle)
	if section == nil {
		return UntitledFallback
	}

	if title, ok := section.StringValue(); ok && title != "" {
		return title
	}
	return UntitledFallback
}

// Ordered 返回按 order 升序排列的 Section 副本，排序稳定。
func (d Document) Ordered() []Section {
	out := make([]Section, len(d.Sections))
	copy(out, d.Sections)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

// OrderOf 返回指定 id 的 Section 的 order，找不到时返回 0。
// 附件元数据里的 section_order 以此为准。
func (d Document) OrderOf(id SectionID) int {
	for _, s := range d.Sections {
		if s.ID == id {
			return s.Order
		}
	}
	return 0
}
