package api

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BartekTra/portfolioCreator-sub000/internal/database"
	"github.com/BartekTra/portfolioCreator-sub000/internal/document"
)

func newProjectRouter(db *gorm.DB, storage ObjectStorage, accountID uint) *gin.Engine {
	h := NewProjectHandler(db, storage, 1<<20)
	router := gin.New()
	group := router.Group("/v1/projects", asAccount(accountID))
	group.POST("", h.CreateProject)
	group.GET("", h.ListProjects)
	group.GET("/:id", h.GetProject)
	group.PUT("/:id", h.UpdateProject)
	group.DELETE("/:id", h.DeleteProject)
	group.DELETE("/:id/images/:imageId", h.DeleteImage)
	return router
}

func TestCreateProject_DefaultsTemplate(t *testing.T) {
	db := newTestDB(t)
	account := createAccount(t, db, "a@example.com")
	router := newProjectRouter(db, newFakeStorage(), account.ID)

	rec := doJSON(t, router, http.MethodPost, "/v1/projects", gin.H{
		"data": gin.H{"sections": []gin.H{
			{"id": 1, "type": "title", "order": 0, "value": "My App"},
		}},
	})
	requireStatus(t, rec, http.StatusCreated)

	var resp struct {
		Title       string `json:"title"`
		TemplateKey string `json:"template_key"`
	}
	decodeBody(t, rec, &resp)
	if resp.TemplateKey != "templateA" {
		t.Fatalf("template_key %q, want default templateA", resp.TemplateKey)
	}
	if resp.Title != "My App" {
		t.Fatalf("title %q", resp.Title)
	}
}

func TestCreateProject_RejectsInvalidTemplate(t *testing.T) {
	db := newTestDB(t)
	account := createAccount(t, db, "a@example.com")
	router := newProjectRouter(db, newFakeStorage(), account.ID)

	rec := doJSON(t, router, http.MethodPost, "/v1/projects", gin.H{
		"template_key": "no-such-template",
		"data": gin.H{"sections": []gin.H{
			{"id": 1, "type": "title", "order": 0, "value": "x"},
		}},
	})
	requireStatus(t, rec, http.StatusUnprocessableEntity)

	var resp struct {
		Errors []string `json:"errors"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Errors) != 1 || resp.Errors[0] != "invalid template" {
		t.Fatalf("errors: %v", resp.Errors)
	}
}

func TestCreateProject_RejectsMalformedDocument(t *testing.T) {
	db := newTestDB(t)
	account := createAccount(t, db, "a@example.com")
	router := newProjectRouter(db, newFakeStorage(), account.ID)

	req := httptest.NewRequest(http.MethodPost, "/v1/projects",
		bytes.NewReader([]byte(`{"data":[1,2,3]}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	requireStatus(t, rec, http.StatusUnprocessableEntity)

	var resp struct {
		Errors []string `json:"errors"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Errors) != 1 || resp.Errors[0] != document.ErrNotObject {
		t.Fatalf("errors: %v", resp.Errors)
	}

	var count int64
	db.Model(&database.Project{}).Count(&count)
	if count != 0 {
		t.Fatalf("rejected document must not persist, found %d rows", count)
	}
}

func TestCreateProject_RejectsDuplicateSingletonSections(t *testing.T) {
	db := newTestDB(t)
	account := createAccount(t, db, "a@example.com")
	router := newProjectRouter(db, newFakeStorage(), account.ID)

	rec := doJSON(t, router, http.MethodPost, "/v1/projects", gin.H{
		"data": gin.H{"sections": []gin.H{
			{"id": 1, "type": "title", "order": 0, "value": "One"},
			{"id": 2, "type": "title", "order": 1, "value": "Two"},
		}},
	})
	requireStatus(t, rec, http.StatusUnprocessableEntity)
}

func TestGetProject_OwnershipIsolation(t *testing.T) {
	db := newTestDB(t)
	owner := createAccount(t, db, "owner@example.com")
	intruder := createAccount(t, db, "intruder@example.com")
	project := createProject(t, db, owner.ID, "Secret")

	ownRouter := newProjectRouter(db, newFakeStorage(), owner.ID)
	rec := doJSON(t, ownRouter, http.MethodGet, fmt.Sprintf("/v1/projects/%d", project.ID), nil)
	requireStatus(t, rec, http.StatusOK)

	// 跨账号访问与不存在不可区分
	otherRouter := newProjectRouter(db, newFakeStorage(), intruder.ID)
	rec = doJSON(t, otherRouter, http.MethodGet, fmt.Sprintf("/v1/projects/%d", project.ID), nil)
	requireStatus(t, rec, http.StatusNotFound)

	rec = doJSON(t, ownRouter, http.MethodGet, "/v1/projects/99999", nil)
	requireStatus(t, rec, http.StatusNotFound)
	if rec.Body.String() == "" {
		t.Fatal("expected error body")
	}
}

func TestListProjects_OnlyOwn(t *testing.T) {
	db := newTestDB(t)
	owner := createAccount(t, db, "owner@example.com")
	other := createAccount(t, db, "other@example.com")
	createProject(t, db, owner.ID, "Mine")
	createProject(t, db, other.ID, "Theirs")

	router := newProjectRouter(db, newFakeStorage(), owner.ID)
	rec := doJSON(t, router, http.MethodGet, "/v1/projects", nil)
	requireStatus(t, rec, http.StatusOK)

	var items []struct {
		Title string `json:"title"`
	}
	decodeBody(t, rec, &items)
	if len(items) != 1 || items[0].Title != "Mine" {
		t.Fatalf("items: %+v", items)
	}
}

func TestCreateProject_MultipartWithImages(t *testing.T) {
	db := newTestDB(t)
	account := createAccount(t, db, "a@example.com")
	storage := newFakeStorage()
	router := newProjectRouter(db, storage, account.ID)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writer.WriteField("data", `{"sections":[
		{"id":1,"type":"title","order":0,"value":"Gallery"},
		{"id":2,"type":"image","order":1}
	]}`)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="images[2_0]"; filename="shot.png"`)
	header.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write([]byte("png-bytes"))
	writer.WriteField("image_descriptions[2_0]", "landing page")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/projects", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	requireStatus(t, rec, http.StatusCreated)

	var resp struct {
		ID     uint `json:"id"`
		Images []struct {
			SectionID    string `json:"section_id"`
			SectionOrder int    `json:"section_order"`
			Description  string `json:"description"`
			URL          string `json:"url"`
		} `json:"images"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Images) != 1 {
		t.Fatalf("images: %+v", resp.Images)
	}
	img := resp.Images[0]
	if img.SectionID != "2" || img.SectionOrder != 1 || img.Description != "landing page" {
		t.Fatalf("image metadata: %+v", img)
	}
	if img.URL == "" {
		t.Fatal("expected presigned url")
	}
	if len(storage.uploaded) != 1 {
		t.Fatalf("uploaded %d objects", len(storage.uploaded))
	}
}

func TestUpdateProject_ResyncsImageOrder(t *testing.T) {
	db := newTestDB(t)
	account := createAccount(t, db, "a@example.com")
	router := newProjectRouter(db, newFakeStorage(), account.ID)

	project := database.Project{
		AccountID:   account.ID,
		TemplateKey: "templateA",
		Data: []byte(`{"sections":[
			{"id":1,"type":"title","order":0,"value":"App"},
			{"id":2,"type":"image","order":1}
		]}`),
	}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	image := database.SectionImage{
		OwnerType:    database.OwnerTypeProject,
		OwnerID:      project.ID,
		SectionID:    "2",
		SectionOrder: 1,
		SectionType:  "image",
		ObjectKey:    "accounts/1/projects/1/2/x.png",
	}
	if err := db.Create(&image).Error; err != nil {
		t.Fatalf("create image: %v", err)
	}

	// image Section 移到最前，镜像的 section_order 必须跟着变
	rec := doJSON(t, router, http.MethodPut, fmt.Sprintf("/v1/projects/%d", project.ID), gin.H{
		"data": gin.H{"sections": []gin.H{
			{"id": 2, "type": "image", "order": 0},
			{"id": 1, "type": "title", "order": 5, "value": "App"},
		}},
	})
	requireStatus(t, rec, http.StatusOK)

	var reloaded database.SectionImage
	if err := db.First(&reloaded, image.ID).Error; err != nil {
		t.Fatalf("reload image: %v", err)
	}
	if reloaded.SectionOrder != 0 {
		t.Fatalf("section_order %d, want 0", reloaded.SectionOrder)
	}
}

func TestDeleteProject_RemovesAttachmentsAndLinks(t *testing.T) {
	db := newTestDB(t)
	account := createAccount(t, db, "a@example.com")
	storage := newFakeStorage()
	router := newProjectRouter(db, storage, account.ID)

	project := createProject(t, db, account.ID, "Doomed")
	page := createTitlePage(t, db, account.ID)
	repo := database.Repository{AccountID: account.ID, Name: "Portfolio", TitlePageID: page.ID}
	if err := db.Create(&repo).Error; err != nil {
		t.Fatalf("create repository: %v", err)
	}
	link := database.RepositoryProject{RepositoryID: repo.ID, ProjectID: project.ID, Position: 0}
	if err := db.Create(&link).Error; err != nil {
		t.Fatalf("create link: %v", err)
	}

	rec := doJSON(t, router, http.MethodDelete, fmt.Sprintf("/v1/projects/%d", project.ID), nil)
	requireStatus(t, rec, http.StatusNoContent)

	var linkCount int64
	db.Model(&database.RepositoryProject{}).Where("project_id = ?", project.ID).Count(&linkCount)
	if linkCount != 0 {
		t.Fatalf("links remain: %d", linkCount)
	}
	wantPrefix := fmt.Sprintf("accounts/%d/projects/%d/", account.ID, project.ID)
	if len(storage.prefixes) != 1 || storage.prefixes[0] != wantPrefix {
		t.Fatalf("prefix cleanup: %v", storage.prefixes)
	}
}

func TestDeleteImage(t *testing.T) {
	db := newTestDB(t)
	account := createAccount(t, db, "a@example.com")
	storage := newFakeStorage()
	router := newProjectRouter(db, storage, account.ID)

	project := createProject(t, db, account.ID, "App")
	image := database.SectionImage{
		OwnerType: database.OwnerTypeProject,
		OwnerID:   project.ID,
		SectionID: "2",
		ObjectKey: "accounts/1/projects/1/2/x.png",
	}
	if err := db.Create(&image).Error; err != nil {
		t.Fatalf("create image: %v", err)
	}

	rec := doJSON(t, router, http.MethodDelete,
		fmt.Sprintf("/v1/projects/%d/images/%d", project.ID, image.ID), nil)
	requireStatus(t, rec, http.StatusNoContent)

	if len(storage.deleted) != 1 || storage.deleted[0] != image.ObjectKey {
		t.Fatalf("deleted objects: %v", storage.deleted)
	}

	rec = doJSON(t, router, http.MethodDelete,
		fmt.Sprintf("/v1/projects/%d/images/%d", project.ID, image.ID), nil)
	requireStatus(t, rec, http.StatusNotFound)
}
