package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BartekTra/portfolioCreator-sub000/internal/templates"
)

// TemplateHandler 暴露静态模板注册表。
// 注册表编译进二进制，没有数据库状态，接口只读。
type TemplateHandler struct{}

// NewTemplateHandler 构造 TemplateHandler。
func NewTemplateHandler() *TemplateHandler {
	return &TemplateHandler{}
}

type templateResponse struct {
	Key      string           `json:"key"`
	Kind     string           `json:"kind"`
	Category string           `json:"category"`
	Slots    []templates.Slot `json:"slots"`
}

// ListTemplates 列出模板，可用 ?kind=project|title_page 过滤。
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	kindParam := c.Query("kind")

	var kinds []templates.Kind
	switch kindParam {
	case "":
		kinds = []templates.Kind{templates.KindProject, templates.KindTitlePage}
	case string(templates.KindProject):
		kinds = []templates.Kind{templates.KindProject}
	case string(templates.KindTitlePage):
		kinds = []templates.Kind{templates.KindTitlePage}
	default:
		BadRequest(c, "unknown template kind")
		return
	}

	items := []templateResponse{}
	for _, kind := range kinds {
		for _, key := range templates.Keys(kind) {
			tpl, _ := templates.Get(key)
			items = append(items, newTemplateResponse(tpl))
		}
	}
	c.JSON(http.StatusOK, items)
}

// GetTemplate 按 key 返回单个模板及其插槽布局。
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	tpl, ok := templates.Get(c.Param("key"))
	if !ok {
		NotFound(c, "template not found")
		return
	}
	c.JSON(http.StatusOK, newTemplateResponse(tpl))
}

func newTemplateResponse(tpl templates.Template) templateResponse {
	return templateResponse{
		Key:      tpl.Key,
		Kind:     string(tpl.Kind),
		Category: tpl.Category,
		Slots:    tpl.Slots,
	}
}
