package account

import (
	"context"
	"errors"
	"testing"

	"github.com/devshare/devshare/internal/models"
	"github.com/devshare/devshare/internal/notify"
	"github.com/devshare/devshare/internal/posts"
	"github.com/devshare/devshare/internal/storage"
	"github.com/devshare/devshare/internal/storage/memstore"
	"github.com/devshare/devshare/pkg/config"
)

type fakeUploads struct {
	purged []string
	err    error
}

func (f *fakeUploads) PurgeUser(uid string) error {
	f.purged = append(f.purged, uid)
	return f.err
}

func postsCfg() config.PostsConfig {
	return config.PostsConfig{MaxTags: 3, MinTitleLen: 10, ListLimit: 100, AnswerLimit: 200, CascadeWorkers: 2}
}

func strPtr(v string) *string { return &v }

func seed(t *testing.T, store storage.Store) *posts.Service {
	t.Helper()
	svc := posts.NewService(store, notify.NewLocalBus(), postsCfg())
	ctx := context.Background()

	q, err := svc.CreatePost(ctx, posts.CreatePostInput{
		Kind: models.KindQuestion, Title: "A question from u1",
		Author: models.Author{UID: "u1"}, Description: strPtr("d"),
	})
	if err != nil {
		t.Fatalf("seed question: %v", err)
	}
	if _, err := svc.AddAnswer(ctx, q.ID, posts.AnswerInput{Body: "a", Author: models.Author{UID: "u2"}}); err != nil {
		t.Fatalf("seed answer: %v", err)
	}
	if _, err := svc.CreatePost(ctx, posts.CreatePostInput{
		Kind: models.KindArticle, Title: "An article from u1",
		Author: models.Author{UID: "u1"}, Abstract: strPtr("a"), Body: strPtr("b"),
	}); err != nil {
		t.Fatalf("seed article: %v", err)
	}
	if _, err := svc.CreatePost(ctx, posts.CreatePostInput{
		Kind: models.KindTutorial, Title: "A tutorial from u2",
		Author: models.Author{UID: "u2"}, Description: strPtr("d"),
	}); err != nil {
		t.Fatalf("seed tutorial: %v", err)
	}
	return svc
}

func TestDeleteAccountRemovesAuthoredPosts(t *testing.T) {
	store := memstore.New()
	svc := seed(t, store)
	uploads := &fakeUploads{}
	ctx := context.Background()

	if err := New(svc, uploads).DeleteAccount(ctx, "u1"); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}

	mine, err := svc.FetchByAuthor(ctx, "u1")
	if err != nil {
		t.Fatalf("FetchByAuthor failed: %v", err)
	}
	if len(mine) != 0 {
		t.Errorf("u1 still owns %d posts", len(mine))
	}

	// The other user's post survives
	theirs, err := svc.FetchByAuthor(ctx, "u2")
	if err != nil {
		t.Fatalf("FetchByAuthor failed: %v", err)
	}
	if len(theirs) != 1 {
		t.Errorf("u2 should still own 1 post, got %d", len(theirs))
	}

	if len(uploads.purged) != 1 || uploads.purged[0] != "u1" {
		t.Errorf("purged = %v", uploads.purged)
	}
}

func TestDeleteAccountCascadesQuestionAnswers(t *testing.T) {
	store := memstore.New()
	svc := seed(t, store)
	ctx := context.Background()

	questions, err := svc.FetchLatestByKind(ctx, models.KindQuestion, 0)
	if err != nil || len(questions) != 1 {
		t.Fatalf("questions = %v, %v", questions, err)
	}
	qID := questions[0].ID

	if err := New(svc, nil).DeleteAccount(ctx, "u1"); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}

	// Cascade removed the answers, not just the parent
	left, err := store.ListAnswers(ctx, qID, storage.OrderAsc, 0)
	if err != nil {
		t.Fatalf("ListAnswers failed: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("%d answers survived the cascade", len(left))
	}
}

func TestDeleteAccountIgnoresPurgeFailure(t *testing.T) {
	store := memstore.New()
	svc := seed(t, store)
	uploads := &fakeUploads{err: errors.New("disk yanked")}

	if err := New(svc, uploads).DeleteAccount(context.Background(), "u1"); err != nil {
		t.Errorf("purge failure should not fail the deletion: %v", err)
	}
}

func TestDeleteAccountRequiresUID(t *testing.T) {
	svc := posts.NewService(memstore.New(), notify.NewLocalBus(), postsCfg())

	if err := New(svc, nil).DeleteAccount(context.Background(), ""); !errors.Is(err, ErrNoUser) {
		t.Errorf("err = %v", err)
	}
}
