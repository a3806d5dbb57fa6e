package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BartekTra/portfolioCreator-sub000/internal/database"
)

// PublicHandler 处理免认证的公开访问。
// 令牌是唯一的访问凭据：查不到就是 404，不区分"不存在"和"未分享"。
type PublicHandler struct {
	db      *gorm.DB
	storage ObjectStorage
}

// NewPublicHandler 构造 PublicHandler。
func NewPublicHandler(db *gorm.DB, storage ObjectStorage) *PublicHandler {
	return &PublicHandler{db: db, storage: storage}
}

type publicRepositoryResponse struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	TitlePage   *titlePageResponse  `json:"title_page,omitempty"`
	Projects    []projectResponse   `json:"projects"`
	SharedAt    time.Time           `json:"shared_at"`
}

// GetSharedRepository 按分享令牌解析整个作品集。
// 响应不包含内部 id 之外的账号信息，预签名 URL 让访客直接读对象存储。
func (h *PublicHandler) GetSharedRepository(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		NotFound(c, "repository not found")
		return
	}

	ctx := c.Request.Context()

	var repo database.Repository
	if err := h.db.WithContext(ctx).
		Preload("TitlePage").
		Where("public_share_token = ?", token).
		First(&repo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "repository not found")
			return
		}
		Internal(c, "failed to resolve share token")
		return
	}

	links, err := projectsOrdered(ctx, h.db, repo.ID)
	if err != nil {
		Internal(c, "failed to load repository projects")
		return
	}

	resp := publicRepositoryResponse{
		Name:        repo.Name,
		Description: repo.Description,
		Projects:    []projectResponse{},
		SharedAt:    repo.UpdatedAt,
	}
	if repo.TitlePage.ID != 0 {
		page := newTitlePageResponse(ctx, h.storage, repo.TitlePage)
		resp.TitlePage = &page
	}
	for _, link := range links {
		project := link.Project
		if err := h.db.WithContext(ctx).
			Where("owner_type = ? AND owner_id = ?", database.OwnerTypeProject, project.ID).
			Find(&project.Images).Error; err != nil {
			Internal(c, "failed to load project images")
			return
		}
		resp.Projects = append(resp.Projects, newProjectResponse(ctx, h.storage, project))
	}

	c.JSON(http.StatusOK, resp)
}

// GetSharedProject 返回单个作品的公开视图。
// 作品必须出现在至少一个已分享的作品集里，否则按不存在处理。
func (h *PublicHandler) GetSharedProject(c *gin.Context) {
	projectID, err := parseIDParam(c, "id")
	if err != nil {
		BadRequest(c, "invalid project id")
		return
	}

	ctx := c.Request.Context()

	var project database.Project
	err = h.db.WithContext(ctx).
		Preload("Images").
		Joins("JOIN repository_projects rp ON rp.project_id = projects.id AND rp.deleted_at IS NULL").
		Joins("JOIN repositories r ON r.id = rp.repository_id AND r.deleted_at IS NULL").
		Where("projects.id = ? AND r.public_share_token IS NOT NULL", projectID).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "project not found")
			return
		}
		Internal(c, "failed to resolve project")
		return
	}

	c.JSON(http.StatusOK, newProjectResponse(ctx, h.storage, project))
}
