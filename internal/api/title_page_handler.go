package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/BartekTra/portfolioCreator-sub000/internal/database"
	"github.com/BartekTra/portfolioCreator-sub000/internal/document"
	"github.com/BartekTra/portfolioCreator-sub000/internal/templates"
)

// TitlePageHandler 负责封面页（类简历页）的增删改查与照片上传。
type TitlePageHandler struct {
	db       *gorm.DB
	storage  ObjectStorage
	maxBytes int64
}

// NewTitlePageHandler 构造 TitlePageHandler。
func NewTitlePageHandler(db *gorm.DB, storage ObjectStorage, maxBytes int64) *TitlePageHandler {
	return &TitlePageHandler{
		db:       db,
		storage:  storage,
		maxBytes: maxBytes,
	}
}

// experienceEntry 是 experience 数组的一项。
type experienceEntry struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	Period      string `json:"period"`
	Description string `json:"description"`
}

type titlePageRequest struct {
	TemplateKey string            `json:"template_key"`
	Phone       string            `json:"phone"`
	Email       string            `json:"email"`
	Address     string            `json:"address"`
	Bio         string            `json:"bio"`
	Experience  []experienceEntry `json:"experience"`
	Data        json.RawMessage   `json:"data"`
}

type titlePageResponse struct {
	ID           uint              `json:"id"`
	TemplateKey  string            `json:"template_key"`
	Phone        string            `json:"phone"`
	Email        string            `json:"email"`
	Address      string            `json:"address"`
	Bio          string            `json:"bio"`
	Experience   []experienceEntry `json:"experience"`
	Data         datatypes.JSON    `json:"data"`
	RepositoryID *uint             `json:"repository_id,omitempty"`
	PhotoURL     string            `json:"photo_url,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// CreateTitlePage 创建封面页。
func (h *TitlePageHandler) CreateTitlePage(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req titlePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	templateKey := strings.TrimSpace(req.TemplateKey)
	if templateKey == "" {
		templateKey = templates.DefaultKey(templates.KindTitlePage)
	}

	violations := h.validateRequest(req, templateKey)
	if len(violations) > 0 {
		Unprocessable(c, violations)
		return
	}

	page := database.TitlePage{
		AccountID:   accountID,
		TemplateKey: templateKey,
		Phone:       req.Phone,
		Email:       req.Email,
		Address:     req.Address,
		Bio:         req.Bio,
		Experience:  marshalExperience(req.Experience),
		Data:        datatypes.JSON(req.Data),
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&page).Error; err != nil {
		Internal(c, "failed to create title page")
		return
	}

	c.JSON(http.StatusCreated, newTitlePageResponse(c.Request.Context(), h.storage, page))
}

// ListTitlePages 列出账号全部封面页。
func (h *TitlePageHandler) ListTitlePages(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	var pages []database.TitlePage
	if err := h.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&pages).Error; err != nil {
		Internal(c, "failed to list title pages")
		return
	}

	items := make([]titlePageResponse, 0, len(pages))
	for _, page := range pages {
		items = append(items, newTitlePageResponse(ctx, h.storage, page))
	}
	c.JSON(http.StatusOK, items)
}

// GetTitlePage 返回封面页详情。
func (h *TitlePageHandler) GetTitlePage(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	page, err := h.getTitlePageForAccount(c.Request.Context(), c, accountID)
	if err != nil {
		h.replyFetchError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTitlePageResponse(c.Request.Context(), h.storage, *page))
}

// UpdateTitlePage 覆盖封面页内容。
func (h *TitlePageHandler) UpdateTitlePage(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	page, err := h.getTitlePageForAccount(c.Request.Context(), c, accountID)
	if err != nil {
		h.replyFetchError(c, err)
		return
	}

	var req titlePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	templateKey := page.TemplateKey
	if strings.TrimSpace(req.TemplateKey) != "" {
		templateKey = strings.TrimSpace(req.TemplateKey)
	}

	violations := h.validateRequest(req, templateKey)
	if len(violations) > 0 {
		Unprocessable(c, violations)
		return
	}

	ctx := c.Request.Context()
	updates := map[string]any{
		"template_key": templateKey,
		"phone":        req.Phone,
		"email":        req.Email,
		"address":      req.Address,
		"bio":          req.Bio,
		"experience":   marshalExperience(req.Experience),
	}
	if len(req.Data) > 0 {
		updates["data"] = datatypes.JSON(req.Data)
	}

	if err := h.db.WithContext(ctx).Model(page).Updates(updates).Error; err != nil {
		Internal(c, "failed to update title page")
		return
	}
	if err := h.db.WithContext(ctx).First(page, page.ID).Error; err != nil {
		Internal(c, "failed to reload title page")
		return
	}

	c.JSON(http.StatusOK, newTitlePageResponse(ctx, h.storage, *page))
}

// DeleteTitlePage 删除封面页。仍被作品集引用时拒绝删除。
func (h *TitlePageHandler) DeleteTitlePage(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	page, err := h.getTitlePageForAccount(c.Request.Context(), c, accountID)
	if err != nil {
		h.replyFetchError(c, err)
		return
	}

	ctx := c.Request.Context()

	var count int64
	if err := h.db.WithContext(ctx).
		Model(&database.Repository{}).
		Where("title_page_id = ?", page.ID).
		Count(&count).Error; err != nil {
		Internal(c, "failed to query repositories")
		return
	}
	if count > 0 {
		Conflict(c, "title page is attached to a repository")
		return
	}

	if err := h.db.WithContext(ctx).Delete(&database.TitlePage{}, page.ID).Error; err != nil {
		Internal(c, "failed to delete title page")
		return
	}
	if h.storage != nil && page.PhotoKey != "" {
		_ = h.storage.DeleteObject(ctx, page.PhotoKey)
	}

	c.Status(http.StatusNoContent)
}

// UploadPhoto 上传封面照片：必须是图片类型且不超过大小上限。
// 重复上传覆盖旧照片。
func (h *TitlePageHandler) UploadPhoto(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	page, err := h.getTitlePageForAccount(c.Request.Context(), c, accountID)
	if err != nil {
		h.replyFetchError(c, err)
		return
	}

	file, err := c.FormFile("photo")
	if err != nil {
		BadRequest(c, "missing photo")
		return
	}

	contentType := file.Header.Get("Content-Type")
	var violations []string
	if !strings.HasPrefix(contentType, "image/") {
		violations = append(violations, "photo must be an image content type")
	}
	if h.maxBytes > 0 && file.Size > h.maxBytes {
		violations = append(violations, fmt.Sprintf("photo exceeds the %d byte limit", h.maxBytes))
	}
	if len(violations) > 0 {
		Unprocessable(c, violations)
		return
	}

	reader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open photo")
		return
	}
	defer reader.Close()

	ctx := c.Request.Context()
	objectKey := fmt.Sprintf("accounts/%d/title_pages/%d/photo-%s", accountID, page.ID, uuid.NewString())
	if err := h.storage.UploadFile(ctx, objectKey, reader, file.Size, contentType); err != nil {
		Internal(c, "failed to upload photo")
		return
	}

	oldKey := page.PhotoKey
	if err := h.db.WithContext(ctx).Model(page).Updates(map[string]any{
		"photo_key":          objectKey,
		"photo_content_type": contentType,
		"photo_byte_size":    file.Size,
	}).Error; err != nil {
		Internal(c, "failed to record photo")
		return
	}
	if oldKey != "" {
		_ = h.storage.DeleteObject(ctx, oldKey)
	}

	page.PhotoKey = objectKey
	page.PhotoContentType = contentType
	page.PhotoByteSize = file.Size
	c.JSON(http.StatusOK, newTitlePageResponse(ctx, h.storage, *page))
}

func (h *TitlePageHandler) validateRequest(req titlePageRequest, templateKey string) []string {
	var violations []string

	if !templates.IsValid(templateKey, templates.KindTitlePage) {
		violations = append(violations, "invalid template")
	}

	if len(req.Data) > 0 {
		violations = append(violations, document.Validate(req.Data, document.Options{
			EntityTemplateKey: templateKey,
			Kind:              templates.KindTitlePage,
		})...)

		if doc, err := document.Parse(req.Data); err == nil {
			violations = append(violations, document.MultiplicityViolations(doc)...)
			violations = append(violations, document.SlotViolations(doc, templateKey)...)
		}
	}

	return violations
}

func marshalExperience(entries []experienceEntry) datatypes.JSON {
	if entries == nil {
		entries = []experienceEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(data)
}

func (h *TitlePageHandler) getTitlePageForAccount(ctx context.Context, c *gin.Context, accountID uint) (*database.TitlePage, error) {
	pageID, err := parseIDParam(c, "id")
	if err != nil {
		return nil, errInvalidID
	}

	var page database.TitlePage
	if err := h.db.WithContext(ctx).
		Where("id = ? AND account_id = ?", pageID, accountID).
		First(&page).Error; err != nil {
		return nil, err
	}
	return &page, nil
}

func (h *TitlePageHandler) replyFetchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errInvalidID):
		BadRequest(c, "invalid title page id")
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "title page not found")
	default:
		Internal(c, "failed to query title page")
	}
}

func newTitlePageResponse(ctx context.Context, storage ObjectStorage, page database.TitlePage) titlePageResponse {
	resp := titlePageResponse{
		ID:           page.ID,
		TemplateKey:  page.TemplateKey,
		Phone:        page.Phone,
		Email:        page.Email,
		Address:      page.Address,
		Bio:          page.Bio,
		Experience:   decodeExperience(page.Experience),
		Data:         page.Data,
		RepositoryID: page.RepositoryID,
		CreatedAt:    page.CreatedAt,
		UpdatedAt:    page.UpdatedAt,
	}
	if storage != nil && page.PhotoKey != "" {
		if url, err := storage.GeneratePresignedURL(ctx, page.PhotoKey, presignTTL); err == nil {
			resp.PhotoURL = url
		}
	}
	return resp
}

func decodeExperience(raw datatypes.JSON) []experienceEntry {
	entries := []experienceEntry{}
	if len(raw) == 0 {
		return entries
	}
	_ = json.Unmarshal(raw, &entries)
	return entries
}
