package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BartekTra/portfolioCreator-sub000/internal/database"
)

// AccountHandler 处理账号资料与头像。
type AccountHandler struct {
	db       *gorm.DB
	storage  ObjectStorage
	maxBytes int64
}

// NewAccountHandler 构造 AccountHandler。
func NewAccountHandler(db *gorm.DB, storage ObjectStorage, maxBytes int64) *AccountHandler {
	return &AccountHandler{db: db, storage: storage, maxBytes: maxBytes}
}

type accountResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Confirmed bool      `json:"confirmed"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GetAccount 返回当前账号资料。
func (h *AccountHandler) GetAccount(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	account, err := h.loadAccount(c, accountID)
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, h.newAccountResponse(c, *account))
}

type updateAccountRequest struct {
	Name *string `json:"name"`
}

// UpdateAccount 更新账号资料。邮箱不可改：它是登录凭据也是确认链路的锚点。
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	account, err := h.loadAccount(c, accountID)
	if err != nil {
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			Unprocessable(c, []string{"name must not be empty"})
			return
		}
		if err := h.db.WithContext(c.Request.Context()).
			Model(account).Update("name", name).Error; err != nil {
			Internal(c, "failed to update account")
			return
		}
		account.Name = name
	}

	c.JSON(http.StatusOK, h.newAccountResponse(c, *account))
}

// UploadAvatar 上传或替换头像，表单字段为 avatar。
func (h *AccountHandler) UploadAvatar(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	account, err := h.loadAccount(c, accountID)
	if err != nil {
		return
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		BadRequest(c, "avatar file is required")
		return
	}
	contentType := file.Header.Get("Content-Type")
	var violations []string
	if !strings.HasPrefix(contentType, "image/") {
		violations = append(violations, "avatar must be an image")
	}
	if file.Size > h.maxBytes {
		violations = append(violations, fmt.Sprintf("avatar exceeds %d bytes", h.maxBytes))
	}
	if len(violations) > 0 {
		Unprocessable(c, violations)
		return
	}

	src, err := file.Open()
	if err != nil {
		Internal(c, "failed to read avatar")
		return
	}
	defer src.Close()

	ctx := c.Request.Context()
	objectKey := fmt.Sprintf("accounts/%d/avatar-%s", accountID, uuid.NewString())
	if err := h.storage.UploadFile(ctx, objectKey, src, file.Size, contentType); err != nil {
		Internal(c, "failed to store avatar")
		return
	}

	previous := account.AvatarKey
	if err := h.db.WithContext(ctx).Model(account).
		Update("avatar_key", objectKey).Error; err != nil {
		_ = h.storage.DeleteObject(ctx, objectKey)
		Internal(c, "failed to update account")
		return
	}
	if previous != "" {
		// 旧对象删除失败只留下孤儿文件，不影响新头像生效。
		_ = h.storage.DeleteObject(ctx, previous)
	}
	account.AvatarKey = objectKey

	c.JSON(http.StatusOK, h.newAccountResponse(c, *account))
}

// DeleteAccount 删除账号及其全部数据与对象存储文件。
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var repoIDs []uint
		if err := tx.Model(&database.Repository{}).
			Where("account_id = ?", accountID).
			Pluck("id", &repoIDs).Error; err != nil {
			return err
		}
		if len(repoIDs) > 0 {
			if err := tx.Unscoped().Where("repository_id IN ?", repoIDs).
				Delete(&database.RepositoryProject{}).Error; err != nil {
				return err
			}
		}

		var projectIDs []uint
		if err := tx.Model(&database.Project{}).
			Where("account_id = ?", accountID).
			Pluck("id", &projectIDs).Error; err != nil {
			return err
		}
		var pageIDs []uint
		if err := tx.Model(&database.TitlePage{}).
			Where("account_id = ?", accountID).
			Pluck("id", &pageIDs).Error; err != nil {
			return err
		}
		if len(projectIDs) > 0 {
			if err := tx.Where("owner_type = ? AND owner_id IN ?",
				database.OwnerTypeProject, projectIDs).
				Delete(&database.SectionImage{}).Error; err != nil {
				return err
			}
		}
		if len(pageIDs) > 0 {
			if err := tx.Where("owner_type = ? AND owner_id IN ?",
				database.OwnerTypeTitlePage, pageIDs).
				Delete(&database.SectionImage{}).Error; err != nil {
				return err
			}
		}

		for _, model := range []any{
			&database.Repository{},
			&database.TitlePage{},
			&database.Project{},
		} {
			if err := tx.Where("account_id = ?", accountID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&database.Account{}, accountID).Error
	})
	if err != nil {
		Internal(c, "failed to delete account")
		return
	}

	// 数据库删除已提交；对象清理失败不回滚，只能留给人工或后台重扫。
	_ = h.storage.DeletePrefix(ctx, fmt.Sprintf("accounts/%d/", accountID))

	c.Status(http.StatusNoContent)
}

// loadAccount 加载账号并在失败时直接写响应，调用方只需在 err 非空时返回。
func (h *AccountHandler) loadAccount(c *gin.Context, accountID uint) (*database.Account, error) {
	var account database.Account
	if err := h.db.WithContext(c.Request.Context()).
		First(&account, accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "account not found")
			return nil, err
		}
		Internal(c, "failed to query account")
		return nil, err
	}
	return &account, nil
}

func (h *AccountHandler) newAccountResponse(c *gin.Context, account database.Account) accountResponse {
	resp := accountResponse{
		ID:        account.ID,
		Email:     account.Email,
		Name:      account.Name,
		Confirmed: account.Confirmed,
		CreatedAt: account.CreatedAt,
	}
	if account.AvatarKey != "" {
		if url, err := h.storage.GeneratePresignedURL(c.Request.Context(), account.AvatarKey, presignTTL); err == nil {
			resp.AvatarURL = url
		}
	}
	return resp
}
