package models

import "time"

// Answer is a reply nested under a question post. There is deliberately no
// foreign-key constraint to posts: answers may outlive their parent until a
// cascade delete sweeps them, mirroring document-store sub-collections.
type Answer struct {
	ID     string `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	PostID string `gorm:"type:uuid;not null;index;column:post_id" json:"postId"`
	Body   string `gorm:"type:text;not null;column:body" json:"body"`

	Author Author `gorm:"embedded" json:"author"`

	CreatedAt time.Time `gorm:"not null;index;column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at" json:"updatedAt"`
}

// TableName specifies the table name for Answer
func (Answer) TableName() string {
	return "answers"
}
