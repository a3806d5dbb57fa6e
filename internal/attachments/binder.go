package attachments

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/BartekTra/portfolioCreator-sub000/internal/database"
	"github.com/BartekTra/portfolioCreator-sub000/internal/document"
)

// 表单字段约定：文件在 images[{sectionId}_{index}]，
// 说明文字在 image_descriptions[{sectionId}_{index}]，键后缀一一对应。
const (
	fileFieldPrefix        = "images["
	descriptionFieldPrefix = "image_descriptions["
	fieldSuffix            = "]"
)

// Uploader 是 Binder 依赖的最小存储接口。
type Uploader interface {
	UploadFile(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
}

// Binder 把上传文件绑定到文档中的 Section，并记录排序元数据。
type Binder struct {
	Storage  Uploader
	MaxBytes int64
}

// FileKey 是从表单键解析出的 Section 绑定信息。
type FileKey struct {
	SectionID document.SectionID
	FileIndex int
}

// ParseFileKey 解析 "{sectionId}_{index}" 形式的键后缀。
// sectionId 自身可能含下划线，因此从最后一个下划线切分。
func ParseFileKey(key string) (FileKey, error) {
	idx := strings.LastIndex(key, "_")
	if idx <= 0 || idx == len(key)-1 {
		return FileKey{}, fmt.Errorf("malformed file key %q", key)
	}

	fileIndex, err := strconv.Atoi(key[idx+1:])
	if err != nil || fileIndex < 0 {
		return FileKey{}, fmt.Errorf("malformed file index in key %q", key)
	}

	return FileKey{
		SectionID: document.SectionID(key[:idx]),
		FileIndex: fileIndex,
	}, nil
}

// boundFile 是待上传的一个文件及其绑定信息。
type boundFile struct {
	key         FileKey
	header      *multipart.FileHeader
	description string
}

// Bind 处理一次 multipart 提交中的全部图片：
// 校验大小与类型，上传到对象存储，返回待持久化的 SectionImage 行。
// 追加语义：已有附件不受影响，删除是独立操作。
func (b *Binder) Bind(
	ctx context.Context,
	form *multipart.Form,
	doc document.Document,
	ownerType string,
	ownerID uint,
	accountID uint,
) ([]database.SectionImage, []string, error) {
	if form == nil {
		return nil, nil, nil
	}

	files, violations := b.collect(form, doc)
	if len(violations) > 0 {
		return nil, violations, nil
	}

	images := make([]database.SectionImage, 0, len(files))
	for _, f := range files {
		objectKey := objectKeyFor(accountID, ownerType, ownerID, f)

		reader, err := f.header.Open()
		if err != nil {
			return nil, nil, fmt.Errorf("open uploaded file %q: %w", f.header.Filename, err)
		}

		contentType := f.header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		err = b.Storage.UploadFile(ctx, objectKey, reader, f.header.Size, contentType)
		reader.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("upload %q: %w", f.header.Filename, err)
		}

		section := sectionFor(doc, f.key.SectionID)
		sectionType := string(document.TypeImage)
		if section != nil {
			sectionType = string(section.Type)
		}

		images = append(images, database.SectionImage{
			OwnerType:    ownerType,
			OwnerID:      ownerID,
			SectionID:    f.key.SectionID.String(),
			FileIndex:    f.key.FileIndex,
			SectionOrder: doc.OrderOf(f.key.SectionID),
			SectionType:  sectionType,
			Description:  f.description,
			ObjectKey:    objectKey,
			Filename:     f.header.Filename,
			ContentType:  contentType,
			ByteSize:     f.header.Size,
		})
	}

	return images, nil, nil
}

// collect 扫描表单键，配对文件与说明并做入口校验。
func (b *Binder) collect(form *multipart.Form, doc document.Document) ([]boundFile, []string) {
	var violations []string

	descriptions := map[string]string{}
	for field, values := range form.Value {
		suffix, ok := fieldKey(field, descriptionFieldPrefix)
		if !ok || len(values) == 0 {
			continue
		}
		descriptions[suffix] = values[0]
	}

	var files []boundFile
	for field, headers := range form.File {
		suffix, ok := fieldKey(field, fileFieldPrefix)
		if !ok || len(headers) == 0 {
			continue
		}

		key, err := ParseFileKey(suffix)
		if err != nil {
			violations = append(violations, fmt.Sprintf("invalid image field %q", field))
			continue
		}

		header := headers[0]
		if b.MaxBytes > 0 && header.Size > b.MaxBytes {
			violations = append(violations, fmt.Sprintf("image %q exceeds the %d byte limit", header.Filename, b.MaxBytes))
			continue
		}
		if ct := header.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
			violations = append(violations, fmt.Sprintf("image %q must be an image content type", header.Filename))
			continue
		}
		if sectionFor(doc, key.SectionID) == nil {
			violations = append(violations, fmt.Sprintf("image field %q references unknown section %s", field, key.SectionID))
			continue
		}

		files = append(files, boundFile{
			key:         key,
			header:      header,
			description: descriptions[suffix],
		})
	}

	// 上传顺序固定为 (section, index)，保证对象键生成可复现。
	sort.Slice(files, func(i, j int) bool {
		if files[i].key.SectionID != files[j].key.SectionID {
			return files[i].key.SectionID < files[j].key.SectionID
		}
		return files[i].key.FileIndex < files[j].key.FileIndex
	})

	return files, violations
}

// SortImages 按 (section_order, file_index) 升序排列附件。
// 读路径必须统一走这里：file_index 是请求内局部值，单独排序不可靠。
func SortImages(images []database.SectionImage) {
	sort.SliceStable(images, func(i, j int) bool {
		if images[i].SectionOrder != images[j].SectionOrder {
			return images[i].SectionOrder < images[j].SectionOrder
		}
		return images[i].FileIndex < images[j].FileIndex
	})
}

// OwnerPrefix 返回某个实体全部附件的对象键前缀，用于级联清理。
func OwnerPrefix(accountID uint, ownerType string, ownerID uint) string {
	return fmt.Sprintf("accounts/%d/%s/%d/", accountID, ownerType, ownerID)
}

func objectKeyFor(accountID uint, ownerType string, ownerID uint, f boundFile) string {
	ext := strings.ToLower(filepath.Ext(f.header.Filename))
	return fmt.Sprintf("%s%s/%s%s",
		OwnerPrefix(accountID, ownerType, ownerID),
		f.key.SectionID,
		uuid.NewString(),
		ext,
	)
}

func fieldKey(field, prefix string) (string, bool) {
	if !strings.HasPrefix(field, prefix) || !strings.HasSuffix(field, fieldSuffix) {
		return "", false
	}
	return field[len(prefix) : len(field)-len(fieldSuffix)], true
}

func sectionFor(doc document.Document, id document.SectionID) *document.Section {
	for i := range doc.Sections {
		if doc.Sections[i].ID == id {
			return &doc.Sections[i]
		}
	}
	return nil
}
