package models

import "time"

// PostKind discriminates the three post variants
type PostKind string

const (
	KindQuestion PostKind = "question"
	KindArticle  PostKind = "article"
	KindTutorial PostKind = "tutorial"
)

// Valid reports whether the kind is one of the supported discriminants
func (k PostKind) Valid() bool {
	switch k {
	case KindQuestion, KindArticle, KindTutorial:
		return true
	}
	return false
}

// Author identifies the user who wrote a post or answer
type Author struct {
	UID      string  `gorm:"type:varchar(128);not null;column:author_uid" json:"uid"`
	Name     string  `gorm:"type:varchar(255);not null;column:author_name" json:"name"`
	PhotoURL *string `gorm:"type:varchar(512);column:author_photo_url" json:"photoURL"`
}

// Post represents a question, article or tutorial document.
// Exactly one kind's variant fields are non-nil at a time; the rest are
// forced to nil at the repository boundary.
type Post struct {
	ID    string   `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	Kind  PostKind `gorm:"type:varchar(16);not null;index;column:kind" json:"type"`
	Title string   `gorm:"type:varchar(255);not null;column:title" json:"title"`

	Author Author `gorm:"embedded" json:"author"`

	// Variant fields
	Description *string `gorm:"type:text;column:description" json:"description"` // question, tutorial
	Abstract    *string `gorm:"type:text;column:abstract" json:"abstract"`       // article
	Body        *string `gorm:"type:text;column:body" json:"body"`               // article
	ImageURL    *string `gorm:"type:varchar(1024);column:image_url" json:"imageUrl"`
	VideoURL    *string `gorm:"type:varchar(1024);column:video_url" json:"videoUrl"` // tutorial

	// Tags in insertion order; persisted as PostTag rows by the gorm store
	Tags []string `gorm:"-" json:"tags"`

	CreatedAt time.Time `gorm:"not null;index;column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at" json:"updatedAt"`

	TagRows []PostTag `gorm:"foreignKey:PostID;references:ID" json:"-"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}

// PostTag represents one ordered tag on a post
type PostTag struct {
	PostID   string `gorm:"type:uuid;primaryKey;column:post_id"`
	Position int    `gorm:"primaryKey;column:position"`
	Tag      string `gorm:"type:varchar(64);not null;column:tag"`
}

// TableName specifies the table name for PostTag
func (PostTag) TableName() string {
	return "post_tags"
}
