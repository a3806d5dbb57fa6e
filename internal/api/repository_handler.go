package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BartekTra/portfolioCreator-sub000/internal/database"
	"github.com/BartekTra/portfolioCreator-sub000/internal/document"
	"github.com/BartekTra/portfolioCreator-sub000/internal/share"
)

// RepositoryHandler 负责作品集的组织：排序、去重、分享令牌。
type RepositoryHandler struct {
	db      *gorm.DB
	storage ObjectStorage
}

// NewRepositoryHandler 构造 RepositoryHandler。
func NewRepositoryHandler(db *gorm.DB, storage ObjectStorage) *RepositoryHandler {
	return &RepositoryHandler{db: db, storage: storage}
}

type repositoryRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	TitlePageID uint   `json:"title_page_id" binding:"required"`
}

type repositoryResponse struct {
	ID               uint               `json:"id"`
	Name             string             `json:"name"`
	Description      string             `json:"description"`
	PublicShareToken *string            `json:"public_share_token,omitempty"`
	ProjectCount     int                `json:"project_count"`
	Projects         []projectListItem  `json:"projects"`
	TitlePage        *titlePageResponse `json:"title_page,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`

	// SkippedProjectIDs 仅在全量替换时返回，列出被拒绝的外部 id。
	SkippedProjectIDs []uint `json:"skipped_project_ids,omitempty"`
}

// CreateRepository 创建作品集。封面页必选，且必须归当前账号所有。
func (h *RepositoryHandler) CreateRepository(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req repositoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()

	var page database.TitlePage
	if err := h.db.WithContext(ctx).
		Where("id = ? AND account_id = ?", req.TitlePageID, accountID).
		First(&page).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "title page not found")
			return
		}
		Internal(c, "failed to query title page")
		return
	}
	if page.RepositoryID != nil {
		Conflict(c, "title page is attached to another repository")
		return
	}

	repo := database.Repository{
		AccountID:   accountID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		TitlePageID: page.ID,
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&repo).Error; err != nil {
			return err
		}
		return tx.Model(&page).Update("repository_id", repo.ID).Error
	})
	if err != nil {
		Internal(c, "failed to create repository")
		return
	}

	repo.TitlePage = page
	c.JSON(http.StatusCreated, h.newRepositoryResponse(ctx, repo, nil))
}

// ListRepositories 列出账号全部作品集。
func (h *RepositoryHandler) ListRepositories(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	var repos []database.Repository
	if err := h.db.WithContext(ctx).
		Preload("TitlePage").
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&repos).Error; err != nil {
		Internal(c, "failed to list repositories")
		return
	}

	items := make([]repositoryResponse, 0, len(repos))
	for _, repo := range repos {
		items = append(items, h.newRepositoryResponse(ctx, repo, nil))
	}
	c.JSON(http.StatusOK, items)
}

// GetRepository 返回作品集详情及按位置排序的作品列表。
func (h *RepositoryHandler) GetRepository(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	repo, err := h.getRepositoryForAccount(c.Request.Context(), c, accountID)
	if err != nil {
		h.replyFetchError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.newRepositoryResponse(c.Request.Context(), *repo, nil))
}

type updateRepositoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// UpdateRepository 更新名称与描述。
func (h *RepositoryHandler) UpdateRepository(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	repo, err := h.getRepositoryForAccount(c.Request.Context(), c, accountID)
	if err != nil {
		h.replyFetchError(c, err)
		return
	}

	var req updateRepositoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			Unprocessable(c, []string{"name is required"})
			return
		}
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}

	ctx := c.Request.Context()
	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(repo).Updates(updates).Error; err != nil {
			Internal(c, "failed to update repository")
			return
		}
	}
	if err := h.db.WithContext(ctx).Preload("TitlePage").First(repo, repo.ID).Error; err != nil {
		Internal(c, "failed to reload repository")
		return
	}

	c.JSON(http.StatusOK, h.newRepositoryResponse(ctx, *repo, nil))
}

// DeleteRepository 删除作品集：清理关联行并解绑封面页，作品本身保留。
func (h *RepositoryHandler) DeleteRepository(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	repo, err := h.getRepositoryForAccount(c.Request.Context(), c, accountID)
	if err != nil {
		h.replyFetchError(c, err)
		return
	}

	ctx := c.Request.Context()
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("repository_id = ?", repo.ID).
			Delete(&database.RepositoryProject{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&database.TitlePage{}).
			Where("repository_id = ?", repo.ID).
			Update("repository_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&database.Repository{}, repo.ID).Error
	})
	if err != nil {
		Internal(c, "failed to delete repository")
		return
	}

	c.Status(http.StatusNoContent)
}

type addProjectRequest struct {
	ProjectID uint `json:"project_id" binding:"required"`
	Position  *int `json:"position"`
}

// AddProject 把作品加入作品集。
// 重复添加是显式的 no-op；省略 position 时追加到末尾（max+1）。
func (h *RepositoryHandler) AddProject(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	repo, err := h.getRepositoryForAccount(c.Request.Context(), c, accountID)
	if err != nil {
		h.replyFetchError(c, err)
		return
	}

	var req addProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.Position != nil && *req.Position < 0 {
		Unprocessable(c, []string{"position must be non-negative"})
		return
	}

	ctx := c.Request.Context()

	var project database.Project
	if err := h.db.WithContext(ctx).
		Where("id = ? AND account_id = ?", req.ProjectID, accountID).
		First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "project not found")
			return
		}
		Internal(c, "failed to query project")
		return
	}

	var existing database.RepositoryProject
	err = h.db.WithContext(ctx).
		Where("repository_id = ? AND project_id = ?", repo.ID, project.ID).
		First(&existing).Error
	switch {
	case err == nil:
		// 已关联：保持原位置，不创建第二条记录。
		c.JSON(http.StatusOK, h.newRepositoryResponse(ctx, *repo, nil))
		return
	case !errors.Is(err, gorm.ErrRecordNotFound):
		Internal(c, "failed to query repository projects")
		return
	}

	position := 0
	if req.Position != nil {
		position = *req.Position
	} else {
		// max+1 在并发写入下存在理论竞态；唯一索引兜底，
		// 单账号场景下接受，不为此加锁。
		var max *int
		if err := h.db.WithContext(ctx).
			Model(&database.RepositoryProject{}).
			Where("repository_id = ?", repo.ID).
			Select("MAX(position)").
			Scan(&max).Error; err != nil {
			Internal(c, "failed to compute position")
			return
		}
		if max != nil {
			position = *max + 1
		}
	}

	link := database.RepositoryProject{
		RepositoryID: repo.ID,
		ProjectID:    project.ID,
		Position:     position,
	}
	if err := h.db.WithContext(ctx).Create(&link).Error; err != nil {
		if isUniqueViolation(err) {
			Unprocessable(c, []string{"position already taken"})
			return
		}
		Internal(c, "failed to add project")
		return
	}

	c.JSON(http.StatusCreated, h.newRepositoryResponse(ctx, *repo, nil))
}

type replaceProjectsRequest struct {
	ProjectIDs []uint `json:"project_ids" binding:"required"`
}

// ReplaceProjects 全量替换作品列表：先清空再按提交顺序重建位置 0..n-1。
// 单事务执行，并发读取永远看不到清空的中间态。
// 不属于当前账号的 id 会被跳过，并在响应里报告，方便客户端发现过期引用。
func (h *RepositoryHandler) ReplaceProjects(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	repo, err := h.getRepositoryForAccount(c.Request.Context(), c, accountID)
	if err != nil {
		h.replyFetchError(c, err)
		return
	}

	var req replaceProjectsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()

	// 只保留归属当前账号的作品，顺序按提交顺序，重复 id 去重。
	var owned []database.Project
	if err := h.db.WithContext(ctx).
		Where("account_id = ? AND id IN ?", accountID, dedupe(req.ProjectIDs)).
		Find(&owned).Error; err != nil {
		Internal(c, "failed to query projects")
		return
	}
	ownedSet := make(map[uint]bool, len(owned))
	for _, p := range owned {
		ownedSet[p.ID] = true
	}

	var kept []uint
	var skipped []uint
	seen := map[uint]bool{}
	for _, id := range req.ProjectIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if ownedSet[id] {
			kept = append(kept, id)
		} else {
			skipped = append(skipped, id)
		}
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("repository_id = ?", repo.ID).
			Delete(&database.RepositoryProject{}).Error; err != nil {
			return err
		}
		for i, id := range kept {
			link := database.RepositoryProject{
				RepositoryID: repo.ID,
				ProjectID:    id,
				Position:     i,
			}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		Internal(c, "failed to replace projects")
		return
	}

	c.JSON(http.StatusOK, h.newRepositoryResponse(ctx, *repo, skipped))
}

type generateShareTokenRequest struct {
	Force bool `json:"force"`
}

// GenerateShareToken 按需生成公开分享令牌。
// 已有令牌时幂等返回原值；只有显式 force 才轮换。
func (h *RepositoryHandler) GenerateShareToken(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	repo, err := h.getRepositoryForAccount(c.Request.Context(), c, accountID)
	if err != nil {
		h.replyFetchError(c, err)
		return
	}

	var req generateShareTokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}

	ctx := c.Request.Context()
	if repo.PublicShareToken == nil || req.Force {
		token, err := share.NewToken()
		if err != nil {
			Internal(c, "failed to generate token")
			return
		}
		if err := h.db.WithContext(ctx).Model(repo).
			Update("public_share_token", token).Error; err != nil {
			Internal(c, "failed to persist token")
			return
		}
		repo.PublicShareToken = &token
	}

	c.JSON(http.StatusOK, gin.H{"public_share_token": *repo.PublicShareToken})
}

// projectsOrdered 返回作品集内按 position 升序的关联行。
func projectsOrdered(ctx context.Context, db *gorm.DB, repositoryID uint) ([]database.RepositoryProject, error) {
	var links []database.RepositoryProject
	err := db.WithContext(ctx).
		Preload("Project").
		Where("repository_id = ?", repositoryID).
		Order("position ASC").
		Find(&links).Error
	return links, err
}

func (h *RepositoryHandler) getRepositoryForAccount(ctx context.Context, c *gin.Context, accountID uint) (*database.Repository, error) {
	repoID, err := parseIDParam(c, "id")
	if err != nil {
		return nil, errInvalidID
	}

	var repo database.Repository
	if err := h.db.WithContext(ctx).
		Preload("TitlePage").
		Where("id = ? AND account_id = ?", repoID, accountID).
		First(&repo).Error; err != nil {
		return nil, err
	}
	return &repo, nil
}

func (h *RepositoryHandler) replyFetchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errInvalidID):
		BadRequest(c, "invalid repository id")
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "repository not found")
	default:
		Internal(c, "failed to query repository")
	}
}

func (h *RepositoryHandler) newRepositoryResponse(ctx context.Context, repo database.Repository, skipped []uint) repositoryResponse {
	resp := repositoryResponse{
		ID:               repo.ID,
		Name:             repo.Name,
		Description:      repo.Description,
		PublicShareToken: repo.PublicShareToken,
		Projects:         []projectListItem{},
		CreatedAt:        repo.CreatedAt,
		UpdatedAt:        repo.UpdatedAt,
	}

	if links, err := projectsOrdered(ctx, h.db, repo.ID); err == nil {
		for _, link := range links {
			resp.Projects = append(resp.Projects, projectListItem{
				ID:          link.Project.ID,
				Title:       document.TitleFor(link.Project.Data),
				TemplateKey: link.Project.TemplateKey,
				CreatedAt:   link.Project.CreatedAt,
			})
		}
	}
	resp.ProjectCount = len(resp.Projects)
	resp.SkippedProjectIDs = skipped

	if repo.TitlePage.ID != 0 {
		page := newTitlePageResponse(ctx, h.storage, repo.TitlePage)
		resp.TitlePage = &page
	}

	return resp
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// isUniqueViolation 粗粒度判断唯一约束冲突，postgres 与 sqlite 文案都覆盖。
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
