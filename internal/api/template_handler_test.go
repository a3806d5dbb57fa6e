package api

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTemplateRouter() *gin.Engine {
	h := NewTemplateHandler()
	router := gin.New()
	router.GET("/v1/templates", h.ListTemplates)
	router.GET("/v1/templates/:key", h.GetTemplate)
	return router
}

func TestListTemplates_FilterByKind(t *testing.T) {
	router := newTemplateRouter()

	rec := doJSON(t, router, http.MethodGet, "/v1/templates?kind=title_page", nil)
	requireStatus(t, rec, http.StatusOK)
	var items []struct {
		Key  string `json:"key"`
		Kind string `json:"kind"`
	}
	decodeBody(t, rec, &items)
	if len(items) == 0 {
		t.Fatal("expected title page templates")
	}
	for _, item := range items {
		if item.Kind != "title_page" {
			t.Fatalf("unexpected kind in %+v", item)
		}
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/templates?kind=bogus", nil)
	requireStatus(t, rec, http.StatusBadRequest)
}

func TestGetTemplate(t *testing.T) {
	router := newTemplateRouter()

	rec := doJSON(t, router, http.MethodGet, "/v1/templates/templateA", nil)
	requireStatus(t, rec, http.StatusOK)
	var tpl struct {
		Key   string `json:"key"`
		Slots []struct {
			ID string `json:"id"`
		} `json:"slots"`
	}
	decodeBody(t, rec, &tpl)
	if tpl.Key != "templateA" || len(tpl.Slots) == 0 {
		t.Fatalf("template: %+v", tpl)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/templates/unknown", nil)
	requireStatus(t, rec, http.StatusNotFound)
}
