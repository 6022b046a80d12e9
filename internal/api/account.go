package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/devshare/devshare/internal/account"
)

// AccountAPI provides the account JSON-RPC methods
type AccountAPI struct {
	svc *account.Service
}

// NewAccountAPI creates a new account API
func NewAccountAPI(svc *account.Service) *AccountAPI {
	return &AccountAPI{svc: svc}
}

// Delete handles account.delete: removes everything the caller authored,
// then their uploads. Only the signed-in user may delete their own account.
func (a *AccountAPI) Delete(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	actor, ok := CurrentIdentity(ctx)
	if !ok {
		return nil, NewError(ErrPermissionDenied, "sign in to delete your account")
	}

	if err := a.svc.DeleteAccount(ctx.Request.Context(), actor.UID); err != nil {
		return nil, err
	}
	return gin.H{"ok": true}, nil
}
