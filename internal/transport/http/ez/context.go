package ez

import (
	"github.com/gin-gonic/gin"

	"ons-backend/internal/domain"
)

const keyUser = "ez.user"

// SetUser 鉴权中间件写入当前用户
func SetUser(c *gin.Context, u *domain.User) { c.Set(keyUser, u) }

// CurrentUser 未登录返回 nil
func CurrentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(keyUser)
	if !ok {
		return nil
	}
	u, _ := v.(*domain.User)
	return u
}

func UserID(c *gin.Context) *string {
	if u := CurrentUser(c); u != nil {
		id := u.ID
		return &id
	}
	return nil
}

func HasRole(u *domain.User, roles ...string) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
