package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SectionImage 的多态 owner 取值，与 gorm polymorphic 写入的表名一致。
const (
	OwnerTypeProject   = "projects"
	OwnerTypeTitlePage = "title_pages"
)

// Account 表示系统中的账号信息。
// 删除账号时级联清理其全部作品、封面与作品集。
type Account struct {
	gorm.Model
	Email             string `gorm:"uniqueIndex;size:255"`
	PasswordHash      string `gorm:"size:255"`
	Name              string `gorm:"size:128"`
	Confirmed         bool   `gorm:"default:false"`
	ConfirmationToken string `gorm:"size:128;index"`
	AvatarKey         string `gorm:"size:512"`

	Projects     []Project    `gorm:"constraint:OnDelete:CASCADE"`
	TitlePages   []TitlePage  `gorm:"constraint:OnDelete:CASCADE"`
	Repositories []Repository `gorm:"constraint:OnDelete:CASCADE"`
}

// Project 表示一个模板驱动的作品文档。
// Data 是 Section 文档（见 internal/document），存 JSONB。
type Project struct {
	gorm.Model
	AccountID   uint           `gorm:"index"`
	TemplateKey string         `gorm:"size:64"`
	Data        datatypes.JSON `gorm:"type:jsonb"`

	Images []SectionImage `gorm:"polymorphic:Owner;constraint:OnDelete:CASCADE"`
}

// TitlePage 表示作品集的封面（类简历页）。
// 与 Repository 为可空的一对一：作品集删除时仅置空 RepositoryID。
type TitlePage struct {
	gorm.Model
	AccountID    uint           `gorm:"index"`
	TemplateKey  string         `gorm:"size:64"`
	Phone        string         `gorm:"size:64"`
	Email        string         `gorm:"size:255"`
	Address      string         `gorm:"size:255"`
	Bio          string         `gorm:"type:text"`
	Experience   datatypes.JSON `gorm:"type:jsonb"` // [{company, position, period, description}]
	Data         datatypes.JSON `gorm:"type:jsonb"`
	RepositoryID *uint          `gorm:"index"`

	PhotoKey         string `gorm:"size:512"`
	PhotoContentType string `gorm:"size:128"`
	PhotoByteSize    int64

	Images []SectionImage `gorm:"polymorphic:Owner;constraint:OnDelete:CASCADE"`
}

// Repository 表示一个可分享的作品集：有序的作品列表加一个封面。
// PublicShareToken 为空表示尚未开启公开分享。
type Repository struct {
	gorm.Model
	AccountID        uint    `gorm:"index"`
	Name             string  `gorm:"size:255;not null"`
	Description      string  `gorm:"type:text"`
	TitlePageID      uint    `gorm:"index"`
	PublicShareToken *string `gorm:"uniqueIndex;size:64"`

	TitlePage TitlePage           `gorm:"foreignKey:TitlePageID"`
	Projects  []RepositoryProject `gorm:"constraint:OnDelete:CASCADE"`
}

// RepositoryProject 是作品集与作品之间的有序关联。
// 两个唯一索引在存储层关死并发不变量：同一作品在同一作品集最多出现一次，
// 位置在作品集内唯一。
type RepositoryProject struct {
	gorm.Model
	RepositoryID uint `gorm:"uniqueIndex:idx_repo_project;uniqueIndex:idx_repo_position"`
	ProjectID    uint `gorm:"uniqueIndex:idx_repo_project;index"`
	Position     int  `gorm:"uniqueIndex:idx_repo_position"`

	Project Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// SectionImage 把上传的图片绑定到文档里的某个 Section。
// 排序字段是廉价的反范式键：file_index 只在单次上传请求内有意义，
// 跨请求不保证全局唯一，读取时必须按 (section_order, file_index) 重排。
type SectionImage struct {
	gorm.Model
	OwnerType string `gorm:"size:32;index:idx_section_image_owner"` // OwnerTypeProject 或 OwnerTypeTitlePage
	OwnerID   uint   `gorm:"index:idx_section_image_owner"`

	SectionID    string `gorm:"size:64"`
	FileIndex    int
	SectionOrder int
	SectionType  string `gorm:"size:32"`
	Description  string `gorm:"type:text"`

	ObjectKey   string `gorm:"size:512"`
	Filename    string `gorm:"size:255"`
	ContentType string `gorm:"size:128"`
	ByteSize    int64
}
