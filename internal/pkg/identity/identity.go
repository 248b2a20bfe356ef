// internal/pkg/identity/identity.go
package identity

import "net/http"

// 网关约定的身份头。网关完成认证后把用户信息放进请求头，
// 服务间调用则带上 X-Internal-Service 标识自己。
const (
	HeaderUserID          = "X-User-Id"
	HeaderUserRole        = "X-User-Role"
	HeaderInternalService = "X-Internal-Service"

	RoleAdmin = "admin"
	RoleUser  = "user"

	// ActorSystem 用于没有用户上下文的变更（服务间补偿等）。
	ActorSystem = "system"
)

// Identity 描述一次请求的调用方。
type Identity struct {
	UserID  string
	Role    string
	Service string // 非空表示服务间调用
}

// FromRequest 从请求头提取调用方身份。
func FromRequest(r *http.Request) Identity {
	return Identity{
		UserID:  r.Header.Get(HeaderUserID),
		Role:    r.Header.Get(HeaderUserRole),
		Service: r.Header.Get(HeaderInternalService),
	}
}

func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

// IsInternal 判断是否为服务间调用。内部专用接口必须拒绝终端用户请求。
func (id Identity) IsInternal() bool {
	return id.Service != ""
}

func (id Identity) IsAuthenticated() bool {
	return id.UserID != "" || id.IsInternal()
}

// Actor 返回写入审计日志的操作者标识。
func (id Identity) Actor() string {
	if id.UserID != "" {
		return id.UserID
	}
	if id.Service != "" {
		return id.Service
	}
	return ActorSystem
}

// Service 构造一个服务身份，用于出站的服务间调用。
func Service(name string) Identity {
	return Identity{Service: name}
}

// SetHeaders 把身份写入出站请求头。
func (id Identity) SetHeaders(h http.Header) {
	if id.UserID != "" {
		h.Set(HeaderUserID, id.UserID)
	}
	if id.Role != "" {
		h.Set(HeaderUserRole, id.Role)
	}
	if id.Service != "" {
		h.Set(HeaderInternalService, id.Service)
	}
}
