package api

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BartekTra/portfolioCreator-sub000/internal/attachments"
	"github.com/BartekTra/portfolioCreator-sub000/internal/database"
)

// ObjectStorage 是各 Handler 依赖的对象存储接口，*storage.Client 实现之。
type ObjectStorage interface {
	UploadFile(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// 预签名链接的有效期。
const presignTTL = 15 * time.Minute

var errInvalidID = errors.New("invalid resource id")

func accountIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get("accountID")
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}

func parseIDParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return uint(id), nil
}

// imageResponse 是附件在所有读取路径上的统一投影。
type imageResponse struct {
	ID           uint   `json:"id"`
	SectionID    string `json:"section_id"`
	FileIndex    int    `json:"file_index"`
	SectionOrder int    `json:"section_order"`
	SectionType  string `json:"section_type"`
	Description  string `json:"description"`
	Filename     string `json:"filename"`
	ContentType  string `json:"content_type"`
	ByteSize     int64  `json:"byte_size"`
	URL          string `json:"url,omitempty"`
}

// newImageResponses 按 (section_order, file_index) 排序并附上预签名链接。
// 签名失败只降级为空链接，不让整个请求失败。
func newImageResponses(ctx context.Context, storage ObjectStorage, images []database.SectionImage) []imageResponse {
	attachments.SortImages(images)

	out := make([]imageResponse, 0, len(images))
	for _, img := range images {
		item := imageResponse{
			ID:           img.ID,
			SectionID:    img.SectionID,
			FileIndex:    img.FileIndex,
			SectionOrder: img.SectionOrder,
			SectionType:  img.SectionType,
			Description:  img.Description,
			Filename:     img.Filename,
			ContentType:  img.ContentType,
			ByteSize:     img.ByteSize,
		}
		if storage != nil {
			if url, err := storage.GeneratePresignedURL(ctx, img.ObjectKey, presignTTL); err == nil {
				item.URL = url
			}
		}
		out = append(out, item)
	}
	return out
}
