package handler

import (
	"net/http"
	"strconv"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
)

type ContextKey string

var (
	RequestIDCtxKey ContextKey = "requestID"
	RoleCtxKey      ContextKey = "role"
	SubCtxKey       ContextKey = "sub"
	MyInfoCtx       ContextKey = "myInfo"
	UserInfoCtx     ContextKey = "userInfo"
)

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(RequestIDCtxKey).(string)
	return id
}

func currentRole(r *http.Request) domain.Role {
	role, _ := r.Context().Value(RoleCtxKey).(string)
	return domain.Role(role)
}

// currentUserID 返回令牌中的用户 ID，auth 中间件已经保证其合法
func currentUserID(r *http.Request) int64 {
	sub, _ := r.Context().Value(SubCtxKey).(string)
	id, _ := strconv.ParseInt(sub, 10, 64)
	return id
}
