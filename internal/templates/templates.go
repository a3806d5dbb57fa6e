package templates

import "sort"

// Kind 区分模板所属的资源类型。
type Kind string

const (
	KindProject   Kind = "project"
	KindTitlePage Kind = "title_page"
)

// 模板分类，仅供前端布局使用，后端只做存在性校验。
const (
	CategorySymmetric  = "symmetric"
	CategoryVertical   = "vertical"
	CategoryHorizontal = "horizontal"
	CategoryMosaic     = "mosaic"
	CategoryTitle      = "title"
)

// Slot 描述模板中一个可绑定的栏位及其网格位置。
type Slot struct {
	ID string `json:"id"`
	X  int    `json:"x"`
	Y  int    `json:"y"`
	W  int    `json:"w"`
	H  int    `json:"h"`
}

// Template 是注册表中的一条模板定义。
type Template struct {
	Key      string `json:"key"`
	Kind     Kind   `json:"kind"`
	Category string `json:"category"`
	Slots    []Slot `json:"slots"`
}

// 默认模板：创建时省略 template_key 时回落到这里。
const (
	DefaultProjectKey   = "templateA"
	DefaultTitlePageKey = "titleTemplate1"
)

// registry 在进程启动时构建一次，之后只读。
var registry = buildRegistry()

func buildRegistry() map[string]Template {
	m := make(map[string]Template)

	add := func(t Template) { m[t.Key] = t }

	// 对称布局：左右两栏。
	add(Template{Key: "templateA", Kind: KindProject, Category: CategorySymmetric, Slots: []Slot{
		{ID: "slot-1", X: 0, Y: 0, W: 12, H: 8},
		{ID: "slot-2", X: 12, Y: 0, W: 12, H: 8},
		{ID: "slot-3", X: 0, Y: 8, W: 12, H: 8},
		{ID: "slot-4", X: 12, Y: 8, W: 12, H: 8},
	}})
	add(Template{Key: "templateB", Kind: KindProject, Category: CategorySymmetric, Slots: []Slot{
		{ID: "slot-1", X: 0, Y: 0, W: 24, H: 6},
		{ID: "slot-2", X: 0, Y: 6, W: 12, H: 10},
		{ID: "slot-3", X: 12, Y: 6, W: 12, H: 10},
	}})
	add(Template{Key: "templateC", Kind: KindProject, Category: CategorySymmetric, Slots: []Slot{
		{ID: "slot-1", X: 0, Y: 0, W: 8, H: 16},
		{ID: "slot-2", X: 8, Y: 0, W: 8, H: 16},
		{ID: "slot-3", X: 16, Y: 0, W: 8, H: 16},
	}})

	// 纵向布局：自上而下排布。
	add(Template{Key: "templateD", Kind: KindProject, Category: CategoryVertical, Slots: []Slot{
		{ID: "slot-1", X: 0, Y: 0, W: 24, H: 4},
		{ID: "slot-2", X: 0, Y: 4, W: 24, H: 8},
		{ID: "slot-3", X: 0, Y: 12, W: 24, H: 4},
	}})
	add(Template{Key: "templateE", Kind: KindProject, Category: CategoryVertical, Slots: []Slot{
		{ID: "slot-1", X: 0, Y: 0, W: 24, H: 4},
		{ID: "slot-2", X: 0, Y: 4, W: 24, H: 4},
		{ID: "slot-3", X: 0, Y: 8, W: 24, H: 4},
		{ID: "slot-4", X: 0, Y: 12, W: 24, H: 4},
	}})
	add(Template{Key: "templateF", Kind: KindProject, Category: CategoryVertical, Slots: []Slot{
		{ID: "slot-1", X: 0, Y: 0, W: 24, H: 10},
		{ID: "slot-2", X: 0, Y: 10, W: 24, H: 6},
	}})

	// 横向布局：主视觉在左，说明在右。
	add(Template{Key: "templateG", Kind: KindProject, Category: CategoryHorizontal, Slots: []Slot{
		{ID: "slot-1", X: 0, Y: 0, W: 16, H: 16},
		{ID: "slot-2", X: 16, Y: 0, W: 8, H: 8},
		{ID: "slot-3", X: 16, Y: 8, W: 8, H: 8},
	}})
	add(Template{Key: "templateH", Kind: KindProject, Category: CategoryHorizontal, Slots: []Slot{
		{ID: "slot-1", X: 0, Y: 0, W: 8, H: 16},
		{ID: "slot-2", X: 8, Y: 0, W: 16, H: 16},
	}})
	add(Template{Key: "templateI", Kind: KindProject, Category: CategoryHorizontal, Slots: []Slot{
		{ID: "slot-1", X: 0, Y: 0, W: 18, H: 12},
		{ID: "slot-2", X: 18, Y: 0, W: 6, H: 6},
		{ID: "slot-3", X: 18, Y: 6, W: 6, H: 6},
		{ID: "slot-4", X: 0, Y: 12, W: 24, H: 4},
	}})

	// 马赛克布局：不规则网格。
	add(Template{Key: "templateJ", Kind: KindProject, Category: CategoryMosaic, Slots: []Slot{
		{ID: "slot-1", X: 0, Y: 0, W: 10, H: 10},
		{ID: "slot-2", X: 10, Y: 0, W: 14, H: 6},
		{ID: "slot-3", X: 10, Y: 6, W: 7, H: 10},
		{ID: "slot-4", X: 17, Y: 6, W: 7, H: 10},
		{ID: "slot-5", X: 0, Y: 10, W: 10, H: 6},
	}})
	add(Template{Key: "templateK", Kind: KindProject, Category: CategoryMosaic, Slots: []Slot{
		{ID: "slot-1", X: 0, Y: 0, W: 6, H: 6},
		{ID: "slot-2", X: 6, Y: 0, W: 18, H: 6},
		{ID: "slot-3", X: 0, Y: 6, W: 18, H: 10},
		{ID: "slot-4", X: 18, Y: 6, W: 6, H: 10},
	}})
	add(Template{Key: "templateL", Kind: KindProject, Category: CategoryMosaic, Slots: []Slot{
		{ID: "slot-1", X: 0, Y: 0, W: 12, H: 6},
		{ID: "slot-2", X: 12, Y: 0, W: 12, H: 10},
		{ID: "slot-3", X: 0, Y: 6, W: 12, H: 10},
		{ID: "slot-4", X: 12, Y: 10, W: 12, H: 6},
	}})
	add(Template{Key: "templateM", Kind: KindProject, Category: CategoryMosaic, Slots: []Slot{
		{ID: "slot-1", X: 0, Y: 0, W: 24, H: 8},
		{ID: "slot-2", X: 0, Y: 8, W: 8, H: 8},
		{ID: "slot-3", X: 8, Y: 8, W: 8, H: 8},
		{ID: "slot-4", X: 16, Y: 8, W: 8, H: 8},
	}})

	// 封面模板。
	add(Template{Key: "titleTemplate1", Kind: KindTitlePage, Category: CategoryTitle, Slots: []Slot{
		{ID: "photo", X: 0, Y: 0, W: 8, H: 10},
		{ID: "contact", X: 8, Y: 0, W: 16, H: 4},
		{ID: "bio", X: 8, Y: 4, W: 16, H: 6},
		{ID: "experience", X: 0, Y: 10, W: 24, H: 8},
	}})
	add(Template{Key: "titleTemplate2", Kind: KindTitlePage, Category: CategoryTitle, Slots: []Slot{
		{ID: "photo", X: 8, Y: 0, W: 8, H: 8},
		{ID: "contact", X: 0, Y: 8, W: 24, H: 3},
		{ID: "bio", X: 0, Y: 11, W: 24, H: 5},
		{ID: "experience", X: 0, Y: 16, W: 24, H: 8},
	}})
	add(Template{Key: "titleTemplate3", Kind: KindTitlePage, Category: CategoryTitle, Slots: []Slot{
		{ID: "contact", X: 0, Y: 0, W: 12, H: 6},
		{ID: "photo", X: 12, Y: 0, W: 12, H: 6},
		{ID: "experience", X: 0, Y: 6, W: 12, H: 12},
		{ID: "bio", X: 12, Y: 6, W: 12, H: 12},
	}})

	return m
}

// IsValid 判断模板 key 是否存在且属于给定类型。
func IsValid(key string, kind Kind) bool {
	t, ok := registry[key]
	return ok && t.Kind == kind
}

// Get 返回模板定义。
func Get(key string) (Template, bool) {
	t, ok := registry[key]
	return t, ok
}

// SlotExists 判断模板中是否存在指定栏位。
func SlotExists(key, slotID string) bool {
	t, ok := registry[key]
	if !ok {
		return false
	}
	for _, s := range t.Slots {
		if s.ID == slotID {
			return true
		}
	}
	return false
}

// DefaultKey 返回某资源类型的默认模板 key。
func DefaultKey(kind Kind) string {
	if kind == KindTitlePage {
		return DefaultTitlePageKey
	}
	return DefaultProjectKey
}

// Keys 返回某资源类型的全部模板 key，按字典序排列。
func Keys(kind Kind) []string {
	keys := make([]string, 0, len(registry))
	for k, t := range registry {
		if t.Kind == kind {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
