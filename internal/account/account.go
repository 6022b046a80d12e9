// Package account implements self-serve account deletion: every post the
// user authored is removed (questions take their answers with them), then the
// user's uploads are purged best-effort.
package account

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/devshare/devshare/internal/models"
	"github.com/devshare/devshare/internal/posts"
	"github.com/devshare/devshare/pkg/logging"
)

// ErrNoUser is returned when no user id accompanies the call
var ErrNoUser = errors.New("user id is required")

// Uploads is the slice of the blob store account deletion needs
type Uploads interface {
	PurgeUser(uid string) error
}

// Service orchestrates account deletion
type Service struct {
	posts   *posts.Service
	uploads Uploads
	logger  *zap.Logger
}

// New creates an account service. A nil uploads store skips the purge phase.
func New(postSvc *posts.Service, uploads Uploads) *Service {
	return &Service{
		posts:   postSvc,
		uploads: uploads,
		logger:  logging.GetLogger().With(zap.String("service", "account")),
	}
}

// DeleteAccount removes every post authored by uid, cascading answers for
// questions, then purges the user's upload folder. Post deletion failures
// propagate; the upload purge is logged and ignored.
func (s *Service) DeleteAccount(ctx context.Context, uid string) error {
	if uid == "" {
		return ErrNoUser
	}

	authored, err := s.posts.FetchByAuthor(ctx, uid)
	if err != nil {
		return err
	}

	actor := &models.Author{UID: uid}
	for _, post := range authored {
		if post.Kind == models.KindQuestion {
			err = s.posts.DeleteQuestionCascade(ctx, post.ID, actor)
		} else {
			err = s.posts.DeletePost(ctx, post.ID, actor)
		}
		if err != nil {
			return err
		}
	}

	if s.uploads != nil {
		if err := s.uploads.PurgeUser(uid); err != nil {
			s.logger.Warn("upload purge failed", zap.String("uid", uid), zap.Error(err))
		}
	}

	s.logger.Info("account deleted", zap.String("uid", uid), zap.Int("posts_removed", len(authored)))
	return nil
}
