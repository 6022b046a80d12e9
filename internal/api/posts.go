package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/devshare/devshare/internal/models"
	"github.com/devshare/devshare/internal/posts"
)

// PostsAPI provides the post and tag JSON-RPC methods
type PostsAPI struct {
	svc *posts.Service
}

// NewPostsAPI creates a new posts API
func NewPostsAPI(svc *posts.Service) *PostsAPI {
	return &PostsAPI{svc: svc}
}

// nullableString distinguishes an absent JSON field from an explicit null
type nullableString struct {
	set   bool
	value *string
}

func (n *nullableString) UnmarshalJSON(b []byte) error {
	n.set = true
	if string(b) == "null" {
		n.value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n.value = &s
	return nil
}

type createPostParams struct {
	Kind        models.PostKind `json:"type"`
	Title       string          `json:"title"`
	Tags        []string        `json:"tags"`
	Description *string         `json:"description"`
	Abstract    *string         `json:"abstract"`
	Body        *string         `json:"body"`
	ImageURL    *string         `json:"imageUrl"`
	VideoURL    *string         `json:"videoUrl"`
}

// Create handles posts.create
func (a *PostsAPI) Create(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	actor, ok := CurrentIdentity(ctx)
	if !ok {
		return nil, NewError(ErrPermissionDenied, "sign in to create a post")
	}

	var p createPostParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, NewError(ErrInvalidParams, "malformed params")
	}

	post, err := a.svc.CreatePost(ctx.Request.Context(), posts.CreatePostInput{
		Kind:        p.Kind,
		Title:       p.Title,
		Tags:        p.Tags,
		Author:      *actor,
		Description: p.Description,
		Abstract:    p.Abstract,
		Body:        p.Body,
		ImageURL:    p.ImageURL,
		VideoURL:    p.VideoURL,
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

type idParams struct {
	ID string `json:"id"`
}

// Get handles posts.get
func (a *PostsAPI) Get(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p idParams
	if err := json.Unmarshal(params, &p); err != nil || p.ID == "" {
		return nil, NewError(ErrInvalidParams, "id is required")
	}

	return a.svc.GetPost(ctx.Request.Context(), p.ID)
}

type updatePostParams struct {
	ID          string         `json:"id"`
	Title       *string        `json:"title"`
	Tags        []string       `json:"tags"`
	Description *string        `json:"description"`
	Abstract    *string        `json:"abstract"`
	Body        *string        `json:"body"`
	ImageURL    nullableString `json:"imageUrl"`
	VideoURL    nullableString `json:"videoUrl"`
}

// Update handles posts.update. Only the signed-in author may write; the
// ownership check itself lives in the service.
func (a *PostsAPI) Update(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	actor, ok := CurrentIdentity(ctx)
	if !ok {
		return nil, NewError(ErrPermissionDenied, "sign in to edit posts")
	}

	var p updatePostParams
	if err := json.Unmarshal(params, &p); err != nil || p.ID == "" {
		return nil, NewError(ErrInvalidParams, "id is required")
	}

	patch := posts.PostPatch{
		Title:       p.Title,
		Tags:        p.Tags,
		Description: p.Description,
		Abstract:    p.Abstract,
		Body:        p.Body,
	}
	if p.ImageURL.set {
		patch.ImageURL = &posts.NullString{Value: p.ImageURL.value}
	}
	if p.VideoURL.set {
		patch.VideoURL = &posts.NullString{Value: p.VideoURL.value}
	}

	if err := a.svc.UpdatePost(ctx.Request.Context(), p.ID, actor, patch); err != nil {
		return nil, err
	}
	return gin.H{"ok": true}, nil
}

// Delete handles posts.delete
func (a *PostsAPI) Delete(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	actor, ok := CurrentIdentity(ctx)
	if !ok {
		return nil, NewError(ErrPermissionDenied, "sign in to delete posts")
	}

	var p idParams
	if err := json.Unmarshal(params, &p); err != nil || p.ID == "" {
		return nil, NewError(ErrInvalidParams, "id is required")
	}

	if err := a.svc.DeletePost(ctx.Request.Context(), p.ID, actor); err != nil {
		return nil, err
	}
	return gin.H{"ok": true}, nil
}

// DeleteQuestion handles posts.delete_question: removes a question together
// with its answers
func (a *PostsAPI) DeleteQuestion(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	actor, ok := CurrentIdentity(ctx)
	if !ok {
		return nil, NewError(ErrPermissionDenied, "sign in to delete posts")
	}

	var p idParams
	if err := json.Unmarshal(params, &p); err != nil || p.ID == "" {
		return nil, NewError(ErrInvalidParams, "id is required")
	}

	if err := a.svc.DeleteQuestionCascade(ctx.Request.Context(), p.ID, actor); err != nil {
		return nil, err
	}
	return gin.H{"ok": true}, nil
}

type latestParams struct {
	Kind  models.PostKind `json:"type"`
	Limit int             `json:"limit"`
}

// Latest handles posts.latest
func (a *PostsAPI) Latest(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p latestParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, NewError(ErrInvalidParams, "malformed params")
	}

	list, err := a.svc.FetchLatestByKind(ctx.Request.Context(), p.Kind, p.Limit)
	if err != nil {
		return nil, err
	}
	return list, nil
}

// UniqueTags handles tags.unique: the distinct tag set across the newest
// posts of one kind, for filter chips
func (a *PostsAPI) UniqueTags(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p latestParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, NewError(ErrInvalidParams, "malformed params")
	}

	list, err := a.svc.FetchLatestByKind(ctx.Request.Context(), p.Kind, p.Limit)
	if err != nil {
		return nil, err
	}
	return posts.UniqueTags(list), nil
}
