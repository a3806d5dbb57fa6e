package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BartekTra/portfolioCreator-sub000/internal/database"
)

func newPublicRouter(db *gorm.DB, storage ObjectStorage) *gin.Engine {
	h := NewPublicHandler(db, storage)
	router := gin.New()
	router.GET("/public/repositories/:token", h.GetSharedRepository)
	router.GET("/public/projects/:id", h.GetSharedProject)
	return router
}

// shareRepository 建好一个带封面、两个有序作品和分享令牌的作品集。
func shareRepository(t *testing.T, db *gorm.DB, accountID uint, token string) (database.Repository, []database.Project) {
	t.Helper()
	repo, _ := createRepository(t, db, accountID)
	first := createProject(t, db, accountID, "First")
	second := createProject(t, db, accountID, "Second")
	links := []database.RepositoryProject{
		{RepositoryID: repo.ID, ProjectID: second.ID, Position: 0},
		{RepositoryID: repo.ID, ProjectID: first.ID, Position: 1},
	}
	if err := db.Create(&links).Error; err != nil {
		t.Fatalf("create links: %v", err)
	}
	if err := db.Model(&repo).Update("public_share_token", token).Error; err != nil {
		t.Fatalf("set token: %v", err)
	}
	return repo, []database.Project{second, first}
}

func TestGetSharedRepository(t *testing.T) {
	db := newTestDB(t)
	account := createAccount(t, db, "a@example.com")
	_, ordered := shareRepository(t, db, account.ID, "tok-abc")

	image := database.SectionImage{
		OwnerType: database.OwnerTypeProject,
		OwnerID:   ordered[0].ID,
		SectionID: "2",
		ObjectKey: "accounts/1/projects/1/2/x.png",
		Filename:  "x.png",
	}
	if err := db.Create(&image).Error; err != nil {
		t.Fatalf("create image: %v", err)
	}

	router := newPublicRouter(db, newFakeStorage())
	rec := doJSON(t, router, http.MethodGet, "/public/repositories/tok-abc", nil)
	requireStatus(t, rec, http.StatusOK)

	var resp struct {
		Name      string `json:"name"`
		TitlePage *struct {
			Bio string `json:"bio"`
		} `json:"title_page"`
		Projects []struct {
			ID     uint `json:"id"`
			Images []struct {
				URL string `json:"url"`
			} `json:"images"`
		} `json:"projects"`
	}
	decodeBody(t, rec, &resp)
	if resp.Name != "Portfolio" {
		t.Fatalf("name %q", resp.Name)
	}
	if resp.TitlePage == nil || resp.TitlePage.Bio == "" {
		t.Fatalf("title page missing: %+v", resp.TitlePage)
	}
	if len(resp.Projects) != 2 {
		t.Fatalf("projects: %+v", resp.Projects)
	}
	// position 顺序，不是创建顺序
	if resp.Projects[0].ID != ordered[0].ID || resp.Projects[1].ID != ordered[1].ID {
		t.Fatalf("order: %+v", resp.Projects)
	}
	if len(resp.Projects[0].Images) != 1 || resp.Projects[0].Images[0].URL == "" {
		t.Fatalf("images: %+v", resp.Projects[0].Images)
	}
}

func TestGetSharedRepository_UnknownToken(t *testing.T) {
	db := newTestDB(t)
	account := createAccount(t, db, "a@example.com")
	shareRepository(t, db, account.ID, "tok-real")

	router := newPublicRouter(db, newFakeStorage())
	rec := doJSON(t, router, http.MethodGet, "/public/repositories/tok-forged", nil)
	requireStatus(t, rec, http.StatusNotFound)
}

func TestGetSharedProject(t *testing.T) {
	db := newTestDB(t)
	account := createAccount(t, db, "a@example.com")
	_, ordered := shareRepository(t, db, account.ID, "tok-abc")
	private := createProject(t, db, account.ID, "Private")

	router := newPublicRouter(db, newFakeStorage())

	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/public/projects/%d", ordered[0].ID), nil)
	requireStatus(t, rec, http.StatusOK)
	var resp struct {
		Title string `json:"title"`
	}
	decodeBody(t, rec, &resp)
	if resp.Title != "Second" {
		t.Fatalf("title %q", resp.Title)
	}

	// 不在任何已分享作品集里的作品不可见
	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/public/projects/%d", private.ID), nil)
	requireStatus(t, rec, http.StatusNotFound)
}

func TestGetSharedProject_UnsharedRepository(t *testing.T) {
	db := newTestDB(t)
	account := createAccount(t, db, "a@example.com")
	repo, _ := createRepository(t, db, account.ID)
	project := createProject(t, db, account.ID, "Hidden")
	link := database.RepositoryProject{RepositoryID: repo.ID, ProjectID: project.ID, Position: 0}
	if err := db.Create(&link).Error; err != nil {
		t.Fatalf("create link: %v", err)
	}

	// 作品集存在但没生成令牌，公开端点一律 404
	router := newPublicRouter(db, newFakeStorage())
	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/public/projects/%d", project.ID), nil)
	requireStatus(t, rec, http.StatusNotFound)
}
