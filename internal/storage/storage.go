package storage

import (
	"context"
	"errors"

	"github.com/devshare/devshare/internal/models"
)

// Store sentinel errors. Implementations wrap their native failures so callers
// can branch with errors.Is.
var (
	// ErrNotFound is returned when a point read misses
	ErrNotFound = errors.New("not found")
	// ErrUnavailable is returned on transport or connection failures
	ErrUnavailable = errors.New("store unavailable")
	// ErrPrecondition is returned for malformed queries, e.g. a missing index
	// or table, so the caller can show an actionable message
	ErrPrecondition = errors.New("store precondition failed")
)

// Order selects answer list ordering on created_at
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Update field keys accepted by UpdatePost. Values may be nil to clear a
// nullable column; "tags" takes a []string.
const (
	FieldTitle       = "title"
	FieldTags        = "tags"
	FieldDescription = "description"
	FieldAbstract    = "abstract"
	FieldBody        = "body"
	FieldImageURL    = "image_url"
	FieldVideoURL    = "video_url"
	FieldUpdatedAt   = "updated_at"
)

// Store defines the document-store contract the post layer is built on:
// insert with generated id, point read, filtered+sorted+limited list, partial
// merge update, idempotent delete, and the same set for the answer
// sub-collection scoped to a parent post.
type Store interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	UpdatePost(ctx context.Context, id string, fields map[string]interface{}) error
	DeletePost(ctx context.Context, id string) error
	ListPostsByKind(ctx context.Context, kind models.PostKind, limit int) ([]*models.Post, error)
	ListPostsByAuthor(ctx context.Context, uid string) ([]*models.Post, error)

	AddAnswer(ctx context.Context, answer *models.Answer) error
	GetAnswer(ctx context.Context, postID, answerID string) (*models.Answer, error)
	UpdateAnswerBody(ctx context.Context, postID, answerID, body string) error
	DeleteAnswer(ctx context.Context, postID, answerID string) error
	ListAnswers(ctx context.Context, postID string, order Order, limit int) ([]*models.Answer, error)
}
