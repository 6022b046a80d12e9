package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/devshare/devshare/internal/posts"
	"github.com/devshare/devshare/internal/storage"
)

// AnswersAPI provides the answer JSON-RPC methods
type AnswersAPI struct {
	svc *posts.Service
}

// NewAnswersAPI creates a new answers API
func NewAnswersAPI(svc *posts.Service) *AnswersAPI {
	return &AnswersAPI{svc: svc}
}

type addAnswerParams struct {
	PostID string `json:"postId"`
	Body   string `json:"body"`
}

// Add handles answers.add
func (a *AnswersAPI) Add(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	actor, ok := CurrentIdentity(ctx)
	if !ok {
		return nil, NewError(ErrPermissionDenied, "sign in to answer")
	}

	var p addAnswerParams
	if err := json.Unmarshal(params, &p); err != nil || p.PostID == "" {
		return nil, NewError(ErrInvalidParams, "postId is required")
	}

	answer, err := a.svc.AddAnswer(ctx.Request.Context(), p.PostID, posts.AnswerInput{
		Body:   p.Body,
		Author: *actor,
	})
	if err != nil {
		return nil, err
	}
	return answer, nil
}

type updateAnswerParams struct {
	PostID   string `json:"postId"`
	AnswerID string `json:"answerId"`
	Body     string `json:"body"`
}

// Update handles answers.update
func (a *AnswersAPI) Update(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	actor, ok := CurrentIdentity(ctx)
	if !ok {
		return nil, NewError(ErrPermissionDenied, "sign in to edit answers")
	}

	var p updateAnswerParams
	if err := json.Unmarshal(params, &p); err != nil || p.PostID == "" || p.AnswerID == "" {
		return nil, NewError(ErrInvalidParams, "postId and answerId are required")
	}

	if err := a.svc.UpdateAnswer(ctx.Request.Context(), p.PostID, p.AnswerID, actor, p.Body); err != nil {
		return nil, err
	}
	return gin.H{"ok": true}, nil
}

// Delete handles answers.delete
func (a *AnswersAPI) Delete(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	actor, ok := CurrentIdentity(ctx)
	if !ok {
		return nil, NewError(ErrPermissionDenied, "sign in to delete answers")
	}

	var p updateAnswerParams
	if err := json.Unmarshal(params, &p); err != nil || p.PostID == "" || p.AnswerID == "" {
		return nil, NewError(ErrInvalidParams, "postId and answerId are required")
	}

	if err := a.svc.DeleteAnswer(ctx.Request.Context(), p.PostID, p.AnswerID, actor); err != nil {
		return nil, err
	}
	return gin.H{"ok": true}, nil
}

type listAnswersParams struct {
	PostID string `json:"postId"`
	Order  string `json:"order"`
	Limit  int    `json:"limit"`
}

// List handles answers.list
func (a *AnswersAPI) List(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p listAnswersParams
	if err := json.Unmarshal(params, &p); err != nil || p.PostID == "" {
		return nil, NewError(ErrInvalidParams, "postId is required")
	}

	order := storage.OrderAsc
	if p.Order == string(storage.OrderDesc) {
		order = storage.OrderDesc
	}

	list, err := a.svc.ListAnswers(ctx.Request.Context(), p.PostID, order, p.Limit)
	if err != nil {
		return nil, err
	}
	return list, nil
}
