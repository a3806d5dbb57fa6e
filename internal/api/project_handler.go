package api

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/BartekTra/portfolioCreator-sub000/internal/attachments"
	"github.com/BartekTra/portfolioCreator-sub000/internal/database"
	"github.com/BartekTra/portfolioCreator-sub000/internal/document"
	"github.com/BartekTra/portfolioCreator-sub000/internal/templates"
)

// ProjectHandler 负责作品文档的增删改查与图片绑定。
type ProjectHandler struct {
	db       *gorm.DB
	storage  ObjectStorage
	maxBytes int64
}

// NewProjectHandler 构造 ProjectHandler。
func NewProjectHandler(db *gorm.DB, storage ObjectStorage, maxBytes int64) *ProjectHandler {
	return &ProjectHandler{
		db:       db,
		storage:  storage,
		maxBytes: maxBytes,
	}
}

type projectListItem struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	TemplateKey string    `json:"template_key"`
	CreatedAt   time.Time `json:"created_at"`
}

type projectResponse struct {
	ID          uint            `json:"id"`
	Title       string          `json:"title"`
	TemplateKey string          `json:"template_key"`
	Data        datatypes.JSON  `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Images      []imageResponse `json:"images"`
}

// documentInput 是 create/update 共用的提交载荷。
// data 在 multipart 下是 JSON 字符串字段，在 JSON 请求体下是内嵌对象。
type documentInput struct {
	TemplateKey string
	RawData     []byte
	HasData     bool
	Form        *multipart.Form
}

// readDocumentInput 同时支持 multipart（文档+文件合并提交）与纯 JSON 两种形态。
func readDocumentInput(c *gin.Context) (documentInput, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		form, err := c.MultipartForm()
		if err != nil {
			return documentInput{}, err
		}
		input := documentInput{Form: form}
		if values := form.Value["template_key"]; len(values) > 0 {
			input.TemplateKey = strings.TrimSpace(values[0])
		}
		if values := form.Value["data"]; len(values) > 0 {
			input.RawData = []byte(values[0])
			input.HasData = true
		}
		return input, nil
	}

	var body struct {
		TemplateKey string          `json:"template_key"`
		Data        json.RawMessage `json:"data"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		return documentInput{}, err
	}
	return documentInput{
		TemplateKey: strings.TrimSpace(body.TemplateKey),
		RawData:     body.Data,
		HasData:     len(body.Data) > 0,
	}, nil
}

// CreateProject 创建作品：校验模板与文档形状，绑定随请求上传的图片。
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	input, err := readDocumentInput(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	templateKey := input.TemplateKey
	if templateKey == "" {
		// 创建时省略模板回落到默认值；显式的非法值从不静默纠正。
		templateKey = templates.DefaultKey(templates.KindProject)
	}
	if !templates.IsValid(templateKey, templates.KindProject) {
		Unprocessable(c, []string{"invalid template"})
		return
	}

	violations := document.Validate(input.RawData, document.Options{
		EntityTemplateKey: templateKey,
		Kind:              templates.KindProject,
		RequireSections:   true,
	})
	if len(violations) > 0 {
		Unprocessable(c, violations)
		return
	}

	doc, err := document.Parse(input.RawData)
	if err != nil {
		Unprocessable(c, []string{document.ErrNotObject})
		return
	}
	violations = append(violations, document.MultiplicityViolations(doc)...)
	violations = append(violations, document.SlotViolations(doc, templateKey)...)
	if len(violations) > 0 {
		Unprocessable(c, violations)
		return
	}

	ctx := c.Request.Context()
	project := database.Project{
		AccountID:   accountID,
		TemplateKey: templateKey,
		Data:        datatypes.JSON(input.RawData),
	}
	if err := h.db.WithContext(ctx).Create(&project).Error; err != nil {
		Internal(c, "failed to create project")
		return
	}

	images, bindViolations, err := h.bindImages(ctx, input.Form, doc, project.ID, accountID)
	if err != nil {
		Internal(c, "failed to store images")
		return
	}
	if len(bindViolations) > 0 {
		// 文件校验失败回滚整个创建，客户端修正后重新提交。
		_ = h.db.WithContext(ctx).Delete(&database.Project{}, project.ID).Error
		Unprocessable(c, bindViolations)
		return
	}
	if len(images) > 0 {
		if err := h.db.WithContext(ctx).Create(&images).Error; err != nil {
			Internal(c, "failed to record images")
			return
		}
	}

	project.Images = images
	c.JSON(http.StatusCreated, newProjectResponse(ctx, h.storage, project))
}

// ListProjects 列出账号全部作品的概要。
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	var projects []database.Project
	if err := h.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&projects).Error; err != nil {
		Internal(c, "failed to list projects")
		return
	}

	items := make([]projectListItem, 0, len(projects))
	for _, p := range projects {
		items = append(items, projectListItem{
			ID:          p.ID,
			Title:       document.TitleFor(p.Data),
			TemplateKey: p.TemplateKey,
			CreatedAt:   p.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, items)
}

// GetProject 返回作品详情及排序后的图片列表。
func (h *ProjectHandler) GetProject(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	project, err := h.getProjectForAccount(c.Request.Context(), c, accountID)
	if err != nil {
		h.replyFetchError(c, err)
		return
	}

	c.JSON(http.StatusOK, newProjectResponse(c.Request.Context(), h.storage, *project))
}

// UpdateProject 替换文档内容并追加新上传的图片。
// 已有附件不受影响；移除附件走独立的 DeleteImage。
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	project, err := h.getProjectForAccount(c.Request.Context(), c, accountID)
	if err != nil {
		h.replyFetchError(c, err)
		return
	}

	input, err := readDocumentInput(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	templateKey := project.TemplateKey
	if input.TemplateKey != "" {
		templateKey = input.TemplateKey
		if !templates.IsValid(templateKey, templates.KindProject) {
			Unprocessable(c, []string{"invalid template"})
			return
		}
	}

	rawData := []byte(project.Data)
	if input.HasData {
		rawData = input.RawData
	}

	violations := document.Validate(rawData, document.Options{
		EntityTemplateKey: templateKey,
		Kind:              templates.KindProject,
	})
	if len(violations) > 0 {
		Unprocessable(c, violations)
		return
	}

	doc, err := document.Parse(rawData)
	if err != nil {
		Unprocessable(c, []string{document.ErrNotObject})
		return
	}
	violations = append(violations, document.MultiplicityViolations(doc)...)
	violations = append(violations, document.SlotViolations(doc, templateKey)...)
	if len(violations) > 0 {
		Unprocessable(c, violations)
		return
	}

	ctx := c.Request.Context()
	images, bindViolations, err := h.bindImages(ctx, input.Form, doc, project.ID, accountID)
	if err != nil {
		Internal(c, "failed to store images")
		return
	}
	if len(bindViolations) > 0 {
		Unprocessable(c, bindViolations)
		return
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(project).Updates(map[string]any{
			"template_key": templateKey,
			"data":         datatypes.JSON(rawData),
		}).Error; err != nil {
			return err
		}
		if len(images) > 0 {
			if err := tx.Create(&images).Error; err != nil {
				return err
			}
		}
		// 文档替换后同步镜像的 section_order，读取路径据此排序。
		for _, s := range doc.Sections {
			if err := tx.Model(&database.SectionImage{}).
				Where("owner_type = ? AND owner_id = ? AND section_id = ?",
					database.OwnerTypeProject, project.ID, s.ID.String()).
				Update("section_order", s.Order).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		Internal(c, "failed to update project")
		return
	}

	if err := h.db.WithContext(ctx).Preload("Images").First(project, project.ID).Error; err != nil {
		Internal(c, "failed to reload project")
		return
	}

	c.JSON(http.StatusOK, newProjectResponse(ctx, h.storage, *project))
}

// DeleteProject 删除作品及其全部附件。
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	project, err := h.getProjectForAccount(c.Request.Context(), c, accountID)
	if err != nil {
		h.replyFetchError(c, err)
		return
	}

	ctx := c.Request.Context()
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_type = ? AND owner_id = ?", database.OwnerTypeProject, project.ID).
			Delete(&database.SectionImage{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("project_id = ?", project.ID).
			Delete(&database.RepositoryProject{}).Error; err != nil {
			return err
		}
		return tx.Delete(&database.Project{}, project.ID).Error
	})
	if err != nil {
		Internal(c, "failed to delete project")
		return
	}

	if h.storage != nil {
		_ = h.storage.DeletePrefix(ctx, attachments.OwnerPrefix(accountID, database.OwnerTypeProject, project.ID))
	}

	c.Status(http.StatusNoContent)
}

// DeleteImage 移除单个附件（显式操作，更新作品从不隐式替换附件）。
func (h *ProjectHandler) DeleteImage(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	project, err := h.getProjectForAccount(c.Request.Context(), c, accountID)
	if err != nil {
		h.replyFetchError(c, err)
		return
	}

	imageID, err := parseIDParam(c, "imageId")
	if err != nil {
		BadRequest(c, "invalid image id")
		return
	}

	ctx := c.Request.Context()
	var image database.SectionImage
	if err := h.db.WithContext(ctx).
		Where("id = ? AND owner_type = ? AND owner_id = ?", imageID, database.OwnerTypeProject, project.ID).
		First(&image).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "image not found")
			return
		}
		Internal(c, "failed to query image")
		return
	}

	if err := h.db.WithContext(ctx).Delete(&database.SectionImage{}, image.ID).Error; err != nil {
		Internal(c, "failed to delete image")
		return
	}
	if h.storage != nil {
		_ = h.storage.DeleteObject(ctx, image.ObjectKey)
	}

	c.Status(http.StatusNoContent)
}

func (h *ProjectHandler) bindImages(
	ctx context.Context,
	form *multipart.Form,
	doc document.Document,
	projectID uint,
	accountID uint,
) ([]database.SectionImage, []string, error) {
	if form == nil || h.storage == nil {
		return nil, nil, nil
	}
	binder := attachments.Binder{Storage: h.storage, MaxBytes: h.maxBytes}
	return binder.Bind(ctx, form, doc, database.OwnerTypeProject, projectID, accountID)
}

// getProjectForAccount 按账号收敛查询：跨账号访问与不存在同样返回 not found。
func (h *ProjectHandler) getProjectForAccount(ctx context.Context, c *gin.Context, accountID uint) (*database.Project, error) {
	projectID, err := parseIDParam(c, "id")
	if err != nil {
		return nil, errInvalidID
	}

	var project database.Project
	if err := h.db.WithContext(ctx).
		Preload("Images").
		Where("id = ? AND account_id = ?", projectID, accountID).
		First(&project).Error; err != nil {
		return nil, err
	}

	return &project, nil
}

func (h *ProjectHandler) replyFetchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errInvalidID):
		BadRequest(c, "invalid project id")
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "project not found")
	default:
		Internal(c, "failed to query project")
	}
}

func newProjectResponse(ctx context.Context, storage ObjectStorage, project database.Project) projectResponse {
	return projectResponse{
		ID:          project.ID,
		Title:       document.TitleFor(project.Data),
		TemplateKey: project.TemplateKey,
		Data:        project.Data,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
		Images:      newImageResponses(ctx, storage, project.Images),
	}
}
