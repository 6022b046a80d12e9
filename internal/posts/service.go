package posts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devshare/devshare/internal/models"
	"github.com/devshare/devshare/internal/notify"
	"github.com/devshare/devshare/internal/storage"
	"github.com/devshare/devshare/pkg/config"
	"github.com/devshare/devshare/pkg/logging"
	"github.com/devshare/devshare/pkg/telemetry"
)

// Change topics published after successful writes
func topicPost(id string) string { return "post." + id }

func topicKind(kind models.PostKind) string { return "posts.kind." + string(kind) }

func topicAnswers(postID string) string { return "answers." + postID }

// Service normalizes and persists posts and answers. All variant handling
// happens here, at the repository boundary; the store only sees fully
// normalized documents.
type Service struct {
	store  storage.Store
	bus    notify.Bus
	cfg    config.PostsConfig
	logger *zap.Logger
}

// NewService creates a new post service
func NewService(store storage.Store, bus notify.Bus, cfg config.PostsConfig) *Service {
	return &Service{
		store:  store,
		bus:    bus,
		cfg:    cfg,
		logger: logging.GetLogger().With(zap.String("component", "posts")),
	}
}

// CreatePostInput carries the union of fields accepted on create. Fields not
// applicable to the kind are ignored and stored as nil.
type CreatePostInput struct {
	Kind        models.PostKind
	Title       string
	Tags        []string
	Author      models.Author
	Description *string
	Abstract    *string
	Body        *string
	ImageURL    *string
	VideoURL    *string
}

// CreatePost validates, normalizes and stores a new post. The discriminant
// selects which variant fields survive; everything else is forced to nil.
func (s *Service) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	ctx, span := telemetry.StartSpan(ctx, "posts.create")
	defer span.End()

	if !in.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, in.Kind)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
	}

	post := &models.Post{
		Kind:   in.Kind,
		Title:  title,
		Tags:   s.normalizeTags(in.Tags),
		Author: in.Author,
	}

	switch in.Kind {
	case models.KindQuestion:
		post.Description = orEmpty(in.Description)
		post.ImageURL = in.ImageURL
	case models.KindArticle:
		post.Abstract = orEmpty(in.Abstract)
		post.Body = orEmpty(in.Body)
		post.ImageURL = in.ImageURL
	case models.KindTutorial:
		post.Description = orEmpty(in.Description)
		post.ImageURL = in.ImageURL
		post.VideoURL = in.VideoURL
	}

	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, err
	}

	s.publish(ctx, topicKind(post.Kind), topicPost(post.ID))
	s.logger.Info("post created",
		zap.String("id", post.ID),
		zap.String("kind", string(post.Kind)),
		zap.String("author", post.Author.UID))
	return post, nil
}

// GetPost reads one post by id
func (s *Service) GetPost(ctx context.Context, id string) (*models.Post, error) {
	return s.store.GetPost(ctx, id)
}

// NullString marks a nullable column in a patch: a non-nil NullString with a
// nil Value clears the column.
type NullString struct {
	Value *string
}

// PostPatch is a partial update. Nil pointers mean "leave unchanged"; the
// kind is never patchable.
type PostPatch struct {
	Title       *string
	Tags        []string
	Description *string
	Abstract    *string
	Body        *string
	ImageURL    *NullString
	VideoURL    *NullString
}

// UpdatePost applies a partial update. The target is point-read first so a
// missing document fails with a clear not-found error instead of a silent
// no-op. When actor is non-nil, only the author may write.
func (s *Service) UpdatePost(ctx context.Context, id string, actor *models.Author, patch PostPatch) error {
	ctx, span := telemetry.StartSpan(ctx, "posts.update")
	defer span.End()

	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if actor != nil && post.Author.UID != actor.UID {
		return fmt.Errorf("%w: post %s", ErrPermissionDenied, id)
	}

	fields := map[string]interface{}{
		storage.FieldUpdatedAt: time.Now().UTC(),
	}
	if patch.Title != nil {
		fields[storage.FieldTitle] = strings.TrimSpace(*patch.Title)
	}
	if patch.Tags != nil {
		fields[storage.FieldTags] = s.normalizeTags(patch.Tags)
	}
	if patch.Description != nil {
		fields[storage.FieldDescription] = *patch.Description
	}
	if patch.Abstract != nil {
		fields[storage.FieldAbstract] = *patch.Abstract
	}
	if patch.Body != nil {
		fields[storage.FieldBody] = *patch.Body
	}
	if patch.ImageURL != nil {
		fields[storage.FieldImageURL] = strPtrValue(patch.ImageURL.Value)
	}
	if patch.VideoURL != nil {
		fields[storage.FieldVideoURL] = strPtrValue(patch.VideoURL.Value)
	}

	if err := s.store.UpdatePost(ctx, id, fields); err != nil {
		return err
	}

	s.publish(ctx, topicKind(post.Kind), topicPost(id))
	return nil
}

// DeletePost removes a post by id. Deleting a missing id completes without
// error. Answers under a question are not touched; use DeleteQuestionCascade
// for that.
func (s *Service) DeletePost(ctx context.Context, id string, actor *models.Author) error {
	ctx, span := telemetry.StartSpan(ctx, "posts.delete")
	defer span.End()

	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	if actor != nil && post.Author.UID != actor.UID {
		return fmt.Errorf("%w: post %s", ErrPermissionDenied, id)
	}

	if err := s.store.DeletePost(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, topicKind(post.Kind), topicPost(id))
	return nil
}

// DeleteQuestionCascade removes a question and its answers. The answer sweep
// is best-effort: individual failures are logged and swallowed so they never
// block removal of the parent the user explicitly asked to delete.
func (s *Service) DeleteQuestionCascade(ctx context.Context, id string, actor *models.Author) error {
	ctx, span := telemetry.StartSpan(ctx, "posts.delete_question_cascade")
	defer span.End()

	// Ownership is settled on the parent before anything is swept, so a
	// denied delete leaves the answers untouched.
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	if actor != nil && post.Author.UID != actor.UID {
		return fmt.Errorf("%w: post %s", ErrPermissionDenied, id)
	}

	answers, err := s.store.ListAnswers(ctx, id, storage.OrderAsc, 0)
	if err != nil {
		s.logger.Warn("cascade: listing answers failed, proceeding to parent delete",
			zap.String("post", id), zap.Error(err))
		answers = nil
	}

	if len(answers) > 0 {
		workers := s.cfg.CascadeWorkers
		if workers <= 0 {
			workers = 1
		}
		sem := make(chan struct{}, workers)
		var wg sync.WaitGroup
		for _, answer := range answers {
			wg.Add(1)
			sem <- struct{}{}
			go func(answerID string) {
				defer wg.Done()
				defer func() { <-sem }()
				if err := s.store.DeleteAnswer(ctx, id, answerID); err != nil {
					s.logger.Warn("cascade: answer delete failed",
						zap.String("post", id), zap.String("answer", answerID), zap.Error(err))
				}
			}(answer.ID)
		}
		wg.Wait()
	}

	if err := s.store.DeletePost(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, topicKind(post.Kind), topicPost(id), topicAnswers(id))
	return nil
}

// FetchLatestByKind returns the newest posts of one kind, created_at
// descending. A non-positive limit falls back to the configured page size,
// which is also the cap.
func (s *Service) FetchLatestByKind(ctx context.Context, kind models.PostKind, limit int) ([]*models.Post, error) {
	ctx, span := telemetry.StartSpan(ctx, "posts.fetch_latest")
	defer span.End()

	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
	if limit <= 0 || limit > s.cfg.ListLimit {
		limit = s.cfg.ListLimit
	}
	return s.store.ListPostsByKind(ctx, kind, limit)
}

// FetchByAuthor returns every post authored by the given user, newest first.
// Account deletion drives this; no limit applies.
func (s *Service) FetchByAuthor(ctx context.Context, uid string) ([]*models.Post, error) {
	ctx, span := telemetry.StartSpan(ctx, "posts.fetch_by_author")
	defer span.End()

	return s.store.ListPostsByAuthor(ctx, uid)
}

// AnswerInput carries a new answer
type AnswerInput struct {
	Body   string
	Author models.Author
}

// AddAnswer stores a new answer under a question. The body is stored as-is,
// including an empty string: the form layer is the gate, and editing is
// always possible.
func (s *Service) AddAnswer(ctx context.Context, postID string, in AnswerInput) (*models.Answer, error) {
	ctx, span := telemetry.StartSpan(ctx, "posts.add_answer")
	defer span.End()

	if _, err := s.store.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	answer := &models.Answer{
		PostID: postID,
		Body:   in.Body,
		Author: in.Author,
	}
	if err := s.store.AddAnswer(ctx, answer); err != nil {
		return nil, err
	}

	s.publish(ctx, topicAnswers(postID))
	return answer, nil
}

// UpdateAnswer replaces an answer body. A missing answer is a silent no-op;
// there is no existence pre-check on this path.
func (s *Service) UpdateAnswer(ctx context.Context, postID, answerID string, actor *models.Author, body string) error {
	ctx, span := telemetry.StartSpan(ctx, "posts.update_answer")
	defer span.End()

	if actor != nil {
		answer, err := s.store.GetAnswer(ctx, postID, answerID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil
			}
			return err
		}
		if answer.Author.UID != actor.UID {
			return fmt.Errorf("%w: answer %s", ErrPermissionDenied, answerID)
		}
	}

	if err := s.store.UpdateAnswerBody(ctx, postID, answerID, body); err != nil {
		return err
	}
	s.publish(ctx, topicAnswers(postID))
	return nil
}

// DeleteAnswer removes one answer; missing ids complete without error
func (s *Service) DeleteAnswer(ctx context.Context, postID, answerID string, actor *models.Author) error {
	ctx, span := telemetry.StartSpan(ctx, "posts.delete_answer")
	defer span.End()

	if actor != nil {
		answer, err := s.store.GetAnswer(ctx, postID, answerID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil
			}
			return err
		}
		if answer.Author.UID != actor.UID {
			return fmt.Errorf("%w: answer %s", ErrPermissionDenied, answerID)
		}
	}

	if err := s.store.DeleteAnswer(ctx, postID, answerID); err != nil {
		return err
	}
	s.publish(ctx, topicAnswers(postID))
	return nil
}

// ListAnswers reads the answers under a question, created_at ascending by
// default, capped at the configured page size.
func (s *Service) ListAnswers(ctx context.Context, postID string, order storage.Order, limit int) ([]*models.Answer, error) {
	if order != storage.OrderDesc {
		order = storage.OrderAsc
	}
	if limit <= 0 || limit > s.cfg.AnswerLimit {
		limit = s.cfg.AnswerLimit
	}
	return s.store.ListAnswers(ctx, postID, order, limit)
}

// UniqueTags aggregates the distinct tags across posts, sorted
// case-insensitively for display.
func UniqueTags(items []*models.Post) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, item := range items {
		if item == nil {
			continue
		}
		for _, tag := range item.Tags {
			trimmed := strings.TrimSpace(tag)
			if trimmed == "" {
				continue
			}
			if _, ok := seen[trimmed]; ok {
				continue
			}
			seen[trimmed] = struct{}{}
			out = append(out, trimmed)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}

// normalizeTags trims entries, drops empties and truncates to the configured
// maximum, preserving insertion order. Case-insensitive dedupe happens at
// entry time in the form layer; the repository only enforces the hard cap.
func (s *Service) normalizeTags(tags []string) []string {
	max := s.cfg.MaxTags
	if max <= 0 {
		max = 3
	}
	out := make([]string, 0, max)
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
		if len(out) == max {
			break
		}
	}
	return out
}

func (s *Service) publish(ctx context.Context, topics ...string) {
	for _, topic := range topics {
		if err := s.bus.Publish(ctx, topic); err != nil {
			s.logger.Warn("change publish failed", zap.String("topic", topic), zap.Error(err))
		}
	}
}

func orEmpty(v *string) *string {
	if v == nil {
		empty := ""
		return &empty
	}
	return v
}

func strPtrValue(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
