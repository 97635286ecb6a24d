package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the server-generated id and timestamps every entity shares.
type Base struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

type Article struct {
	Base
	Title       string `gorm:"not null" json:"title" validate:"required"`
	Description string `gorm:"type:text" json:"description"`
	Label       string `json:"label"`
	Order       int    `gorm:"column:sort_order;index" json:"order"`
}

type Chapter struct {
	Base
	ArticleID string `gorm:"type:varchar(36);not null;index" json:"articleId" validate:"required"`
	Title     string `gorm:"not null" json:"title" validate:"required"`
	Summary   string `gorm:"type:text" json:"summary"`
	Label     string `json:"label"`
	Order     int    `gorm:"column:sort_order;index" json:"order"`
}

type Topic struct {
	Base
	ChapterID   string `gorm:"type:varchar(36);not null;index" json:"chapterId" validate:"required"`
	Title       string `gorm:"not null" json:"title" validate:"required"`
	Description string `gorm:"type:text" json:"description"`
	Label       string `json:"label"`
	Order       int    `gorm:"column:sort_order;index" json:"order"`
}

type Content struct {
	Base
	TopicID string `gorm:"type:varchar(36);not null;index" json:"topicId" validate:"required"`
	Heading string `json:"heading"`
	Body    string `gorm:"type:text;not null" json:"body" validate:"required"`
	Label   string `json:"label"`
	Order   int    `gorm:"column:sort_order;index" json:"order"`
}

type PdfAttachment struct {
	Base
	ParentType   ParentType `gorm:"type:varchar(16);not null;index:idx_pdf_parent" json:"parentType"`
	ParentID     string     `gorm:"type:varchar(36);not null;index:idx_pdf_parent" json:"parentId"`
	Title        string     `json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	URL          string     `json:"url"`
	StoredName   string     `json:"storedName"` // blob key
	OriginalName string     `json:"originalName"`
	Size         int64      `json:"size"`
	MimeType     string     `json:"mimeType"`
}

func (p PdfAttachment) Parent() ParentRef {
	return ParentRef{Type: p.ParentType, ID: p.ParentID}
}

type GalleryFolder struct {
	Base
	Title        string `gorm:"not null" json:"title" validate:"required"`
	Description  string `gorm:"type:text" json:"description"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

type GalleryImage struct {
	Base
	FolderID     string `gorm:"type:varchar(36);not null;index" json:"folderId"`
	URL          string `json:"url"`
	Caption      string `json:"caption"`
	OriginalName string `json:"originalName"`
	StoredName   string `json:"storedName"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimeType"`
}

type MediaType string

const (
	MediaImage  MediaType = "image"
	MediaVideo  MediaType = "video"
	MediaBanner MediaType = "banner"
	MediaAudio  MediaType = "audio"
)

func (t MediaType) Valid() bool {
	switch t {
	case MediaImage, MediaVideo, MediaBanner, MediaAudio:
		return true
	}
	return false
}

type MediaAsset struct {
	Base
	Type         MediaType `gorm:"type:varchar(16);not null;index" json:"type"`
	URL          string    `json:"url"`
	OriginalName string    `json:"originalName"`
	StoredName   string    `json:"storedName"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mimeType"`
}

type VideoReference struct {
	Base
	Title       string `json:"title"`
	OriginalURL string `gorm:"not null" json:"originalUrl" validate:"required"`
	EmbedURL    string `json:"embedUrl"`
	Provider    string `gorm:"type:varchar(16)" json:"provider"` // youtube | external
	VideoID     string `json:"videoId"`
	Description string `gorm:"type:text" json:"description"`
}

type Notification struct {
	Base
	Text         string  `gorm:"type:text;not null" json:"text" validate:"required"`
	TargetUserID *string `gorm:"type:varchar(36);index" json:"targetUserId,omitempty"` // nil = broadcast
	IsRead       bool    `gorm:"default:false" json:"isRead"`
}

// ArticleView is one throttled visit to an article page.
type ArticleView struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ArticleID string    `gorm:"type:varchar(36);not null;index" json:"articleId"`
	VisitorID string    `gorm:"not null;index" json:"-"`
	Language  *string   `json:"language,omitempty"`
	Browser   *string   `json:"browser,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	Base
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	Email        *string `gorm:"uniqueIndex:idx_users_email,where:email IS NOT NULL" json:"email,omitempty"`
	Phone        *string `gorm:"uniqueIndex:idx_users_phone,where:phone IS NOT NULL" json:"phone,omitempty"`
	PasswordHash string  `json:"-"`
	Role         Role    `gorm:"type:varchar(16);not null" json:"role"`
	// nil on both flags marks a record created before verification existed.
	IsEmailVerified *bool      `json:"isEmailVerified,omitempty"`
	IsPhoneVerified *bool      `json:"isPhoneVerified,omitempty"`
	LastLoginAt     *time.Time `json:"lastLoginAt,omitempty"`
}

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

type OtpSession struct {
	Base
	Channel     Channel   `gorm:"type:varchar(8);not null;index:idx_otp_lookup" json:"channel"`
	Identifier  string    `gorm:"not null;index:idx_otp_lookup" json:"identifier"`
	UserID      string    `gorm:"type:varchar(36);not null;index:idx_otp_lookup" json:"userId"`
	OtpHash     string    `gorm:"not null" json:"-"`
	ExpiresAt   time.Time `gorm:"not null;index" json:"expiresAt"`
	Attempts    int       `gorm:"not null;default:0" json:"attempts"`
	MaxAttempts int       `gorm:"not null;default:5" json:"maxAttempts"`
	Used        bool      `gorm:"not null;default:false;index:idx_otp_lookup" json:"used"`
}

// All lists every table in migration order.
func All() []interface{} {
	return []interface{}{
		&Article{},
		&Chapter{},
		&Topic{},
		&Content{},
		&PdfAttachment{},
		&GalleryFolder{},
		&GalleryImage{},
		&MediaAsset{},
		&VideoReference{},
		&Notification{},
		&ArticleView{},
		&User{},
		&OtpSession{},
	}
}
