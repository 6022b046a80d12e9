package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/devshare/devshare/internal/models"
	"github.com/devshare/devshare/internal/storage"
	"github.com/devshare/devshare/pkg/telemetry"
)

// Store implements storage.Store on postgres via gorm
type Store struct {
	db *gorm.DB
}

// New creates a new gorm-backed store
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	ctx, span := telemetry.StartSpan(ctx, "store.create_post")
	defer span.End()

	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	post.TagRows = tagRows(post.ID, post.Tags)

	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	ctx, span := telemetry.StartSpan(ctx, "store.get_post")
	defer span.End()

	var post models.Post
	err := s.db.WithContext(ctx).
		Preload("TagRows", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&post, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("post %s: %w", id, storage.ErrNotFound)
		}
		return nil, translate(err)
	}
	hydrate(&post)
	return &post, nil
}

func (s *Store) UpdatePost(ctx context.Context, id string, fields map[string]interface{}) error {
	ctx, span := telemetry.StartSpan(ctx, "store.update_post")
	defer span.End()

	cols := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if k != storage.FieldTags {
			cols[k] = v
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if raw, ok := fields[storage.FieldTags]; ok {
			tags, _ := raw.([]string)
			if err := tx.Where("post_id = ?", id).Delete(&models.PostTag{}).Error; err != nil {
				return err
			}
			if len(tags) > 0 {
				if err := tx.Create(tagRows(id, tags)).Error; err != nil {
					return err
				}
			}
		}
		if len(cols) == 0 {
			return nil
		}
		// Zero rows affected on a missing id is fine: existence is the
		// caller's concern.
		return tx.Model(&models.Post{}).Where("id = ?", id).Updates(cols).Error
	})
	if err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "store.delete_post")
	defer span.End()

	// Answers are intentionally left alone here; only the cascade path in
	// the service removes them.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.PostTag{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Post{}).Error
	})
	if err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) ListPostsByKind(ctx context.Context, kind models.PostKind, limit int) ([]*models.Post, error) {
	ctx, span := telemetry.StartSpan(ctx, "store.list_posts_by_kind")
	defer span.End()

	var posts []*models.Post
	q := s.db.WithContext(ctx).
		Preload("TagRows", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("kind = ?", kind).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&posts).Error; err != nil {
		return nil, translate(err)
	}
	for _, p := range posts {
		hydrate(p)
	}
	return posts, nil
}

func (s *Store) ListPostsByAuthor(ctx context.Context, uid string) ([]*models.Post, error) {
	ctx, span := telemetry.StartSpan(ctx, "store.list_posts_by_author")
	defer span.End()

	var posts []*models.Post
	err := s.db.WithContext(ctx).
		Preload("TagRows", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("author_uid = ?", uid).
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, translate(err)
	}
	for _, p := range posts {
		hydrate(p)
	}
	return posts, nil
}

func (s *Store) AddAnswer(ctx context.Context, answer *models.Answer) error {
	ctx, span := telemetry.StartSpan(ctx, "store.add_answer")
	defer span.End()

	if answer.ID == "" {
		answer.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(answer).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) GetAnswer(ctx context.Context, postID, answerID string) (*models.Answer, error) {
	ctx, span := telemetry.StartSpan(ctx, "store.get_answer")
	defer span.End()

	var answer models.Answer
	err := s.db.WithContext(ctx).
		First(&answer, "id = ? AND post_id = ?", answerID, postID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("answer %s/%s: %w", postID, answerID, storage.ErrNotFound)
		}
		return nil, translate(err)
	}
	return &answer, nil
}

func (s *Store) UpdateAnswerBody(ctx context.Context, postID, answerID, body string) error {
	ctx, span := telemetry.StartSpan(ctx, "store.update_answer")
	defer span.End()

	err := s.db.WithContext(ctx).
		Model(&models.Answer{}).
		Where("id = ? AND post_id = ?", answerID, postID).
		Update("body", body).Error
	if err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) DeleteAnswer(ctx context.Context, postID, answerID string) error {
	ctx, span := telemetry.StartSpan(ctx, "store.delete_answer")
	defer span.End()

	err := s.db.WithContext(ctx).
		Where("id = ? AND post_id = ?", answerID, postID).
		Delete(&models.Answer{}).Error
	if err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) ListAnswers(ctx context.Context, postID string, order storage.Order, limit int) ([]*models.Answer, error) {
	ctx, span := telemetry.StartSpan(ctx, "store.list_answers")
	defer span.End()

	direction := "ASC"
	if order == storage.OrderDesc {
		direction = "DESC"
	}

	var answers []*models.Answer
	q := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at " + direction)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&answers).Error; err != nil {
		return nil, translate(err)
	}
	return answers, nil
}

func tagRows(postID string, tags []string) []models.PostTag {
	rows := make([]models.PostTag, 0, len(tags))
	for i, tag := range tags {
		rows = append(rows, models.PostTag{PostID: postID, Position: i, Tag: tag})
	}
	return rows
}

func hydrate(post *models.Post) {
	post.Tags = make([]string, 0, len(post.TagRows))
	for _, row := range post.TagRows {
		post.Tags = append(post.Tags, row.Tag)
	}
	post.TagRows = nil
}

// translate maps driver errors onto the storage sentinels. Schema problems
// (missing table, column or index) become ErrPrecondition so the caller can
// show an actionable message; everything else is treated as transport failure.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42P01", "42703", "42P10", "42704":
			return fmt.Errorf("%w: %s", storage.ErrPrecondition, pgErr.Message)
		}
	}
	return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
}
