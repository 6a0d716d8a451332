package ez

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ons-backend/internal/domain"
	resp "ons-backend/internal/transport/http/response"
)

// EZ 路由分组的轻封装，动作统一走信封响应和错误映射
type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func NewEZ(g *gin.RouterGroup, log *zap.Logger) EZ {
	RegisterValidators()
	return EZ{g: g, log: log}
}

func (e EZ) Group(path string, mw ...gin.HandlerFunc) EZ {
	return EZ{g: e.g.Group(path, mw...), log: e.log}
}

// Raw 直接挂 gin handler，用于重定向这类不走 JSON 信封的接口
func (e EZ) Raw(method, path string, h ...gin.HandlerFunc) {
	e.g.Handle(method, path, h...)
}

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param / c.FormFile 取
)

// Paginated 列表结果；响应里 data 为条目数组并附 pagination
type Paginated interface {
	Meta() (domain.Page, int64)
	Rows() any
}

// Action 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string            // "GET" | "POST" | "PUT" | "DELETE"
	Path    string            // 例："/auth/login"、"/events/:id/register"
	Binder  Binder            // 绑定方式
	Use     []gin.HandlerFunc // 该路由独有的中间件（限流、可选鉴权）
	Auth    bool              // 是否要求登录
	Roles   []string          // 限定角色（可选）
	Status  int               // 成功状态码，默认 200
	Message string            // 成功时附带的提示
	Handler func(c *gin.Context, in *I) (O, error)
}

// RegisterAction 在当前 EZ 下注册动作接口
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		// 1) 鉴权/角色
		if a.Auth || len(a.Roles) > 0 {
			u := CurrentUser(c)
			if u == nil {
				e.fail(c, Unauthorized("Authentication required"))
				return
			}
			if len(a.Roles) > 0 && !HasRole(u, a.Roles...) {
				e.fail(c, Forbidden("Insufficient permissions"))
				return
			}
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		default: // BindNone: 不绑定
		}
		if bindErr != nil {
			e.fail(c, bindError(bindErr))
			return
		}

		// 3) 执行
		out, err := a.Handler(c, &in)
		if err != nil {
			e.fail(c, err)
			return
		}

		// 4) 统一响应
		status := a.Status
		if status == 0 {
			status = http.StatusOK
		}
		var body resp.Resp
		if p, ok := any(out).(Paginated); ok {
			page, total := p.Meta()
			body = resp.Paged(p.Rows(), page, total)
		} else {
			body = resp.OK(out)
		}
		body.Message = a.Message
		c.JSON(status, body)
	}

	handlers := append(append([]gin.HandlerFunc{}, a.Use...), h)
	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, handlers...)
	case http.MethodPut:
		e.g.PUT(a.Path, handlers...)
	case http.MethodDelete:
		e.g.DELETE(a.Path, handlers...)
	default: // 默认 POST
		e.g.POST(a.Path, handlers...)
	}
}

// fail 错误映射后写响应；5xx 记录原始错误
func (e EZ) fail(c *gin.Context, err error) {
	ae := FromDomain(err)
	if ae.Status >= http.StatusInternalServerError && e.log != nil {
		e.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("code", ae.Code),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(ae.Status, ae.Body())
}

// Abort 中间件里直接以 AErr 结束请求
func Abort(c *gin.Context, err error) {
	ae := FromDomain(err)
	c.AbortWithStatusJSON(ae.Status, ae.Body())
}
