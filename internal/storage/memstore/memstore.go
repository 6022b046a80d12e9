package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devshare/devshare/internal/models"
	"github.com/devshare/devshare/internal/storage"
)

// Store implements storage.Store in memory. Used by tests and local
// development; safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	posts   map[string]*models.Post
	answers map[string]map[string]*models.Answer // postID -> answerID -> answer
	seq     map[string]int64                     // insertion order, breaks created_at ties
	nextSeq int64
}

// New creates a new in-memory store
func New() *Store {
	return &Store{
		posts:   make(map[string]*models.Post),
		answers: make(map[string]map[string]*models.Answer),
		seq:     make(map[string]int64),
	}
}

func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	s.posts[post.ID] = copyPost(post)
	s.nextSeq++
	s.seq[post.ID] = s.nextSeq
	return nil
}

func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", id, storage.ErrNotFound)
	}
	return copyPost(post), nil
}

func (s *Store) UpdatePost(ctx context.Context, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		// Silent no-op matches the merge-update semantics of the SQL store
		return nil
	}

	for key, value := range fields {
		switch key {
		case storage.FieldTitle:
			if v, ok := value.(string); ok {
				post.Title = v
			}
		case storage.FieldTags:
			if v, ok := value.([]string); ok {
				post.Tags = append([]string(nil), v...)
			}
		case storage.FieldDescription:
			post.Description = asStringPtr(value)
		case storage.FieldAbstract:
			post.Abstract = asStringPtr(value)
		case storage.FieldBody:
			post.Body = asStringPtr(value)
		case storage.FieldImageURL:
			post.ImageURL = asStringPtr(value)
		case storage.FieldVideoURL:
			post.VideoURL = asStringPtr(value)
		case storage.FieldUpdatedAt:
			if v, ok := value.(time.Time); ok {
				post.UpdatedAt = v
			}
		default:
			return fmt.Errorf("unknown update field %q: %w", key, storage.ErrPrecondition)
		}
	}
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Deleting a missing id is a no-op, not an error. Answers are left in
	// place on purpose: only the cascade path removes them.
	delete(s.posts, id)
	delete(s.seq, id)
	return nil
}

func (s *Store) ListPostsByKind(ctx context.Context, kind models.PostKind, limit int) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Post, 0)
	for _, p := range s.posts {
		if p.Kind == kind {
			matched = append(matched, p)
		}
	}

	// created_at descending, insertion order breaks exact ties
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return s.seq[matched[i].ID] > s.seq[matched[j].ID]
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*models.Post, len(matched))
	for i, p := range matched {
		out[i] = copyPost(p)
	}
	return out, nil
}

func (s *Store) ListPostsByAuthor(ctx context.Context, uid string) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Post, 0)
	for _, p := range s.posts {
		if p.Author.UID == uid {
			out = append(out, copyPost(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) AddAnswer(ctx context.Context, answer *models.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if answer.ID == "" {
		answer.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	answer.CreatedAt = now
	answer.UpdatedAt = now

	byID, ok := s.answers[answer.PostID]
	if !ok {
		byID = make(map[string]*models.Answer)
		s.answers[answer.PostID] = byID
	}
	byID[answer.ID] = copyAnswer(answer)
	s.nextSeq++
	s.seq[answer.ID] = s.nextSeq
	return nil
}

func (s *Store) GetAnswer(ctx context.Context, postID, answerID string) (*models.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.answers[postID][answerID]; ok {
		return copyAnswer(a), nil
	}
	return nil, fmt.Errorf("answer %s/%s: %w", postID, answerID, storage.ErrNotFound)
}

func (s *Store) UpdateAnswerBody(ctx context.Context, postID, answerID, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.answers[postID][answerID]
	if !ok {
		return nil
	}
	a.Body = body
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) DeleteAnswer(ctx context.Context, postID, answerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if byID, ok := s.answers[postID]; ok {
		delete(byID, answerID)
		delete(s.seq, answerID)
		if len(byID) == 0 {
			delete(s.answers, postID)
		}
	}
	return nil
}

func (s *Store) ListAnswers(ctx context.Context, postID string, order storage.Order, limit int) ([]*models.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.answers[postID]
	matched := make([]*models.Answer, 0, len(byID))
	for _, a := range byID {
		matched = append(matched, a)
	}

	desc := order == storage.OrderDesc
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if desc {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if desc {
			return s.seq[a.ID] > s.seq[b.ID]
		}
		return s.seq[a.ID] < s.seq[b.ID]
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*models.Answer, len(matched))
	for i, a := range matched {
		out[i] = copyAnswer(a)
	}
	return out, nil
}

func copyPost(p *models.Post) *models.Post {
	cp := *p
	cp.Tags = append([]string(nil), p.Tags...)
	cp.TagRows = nil
	return &cp
}

func copyAnswer(a *models.Answer) *models.Answer {
	cp := *a
	return &cp
}

func asStringPtr(value interface{}) *string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return &v
	case *string:
		return v
	}
	return nil
}
