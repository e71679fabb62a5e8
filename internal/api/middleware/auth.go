package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"nautica/backend/internal/model"
	"nautica/backend/pkg/jwt"
	"nautica/backend/pkg/response"
)

// 上下文键
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token，
// 将 user_id 与 role 注入上下文
func JWTAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}

		if claims.TokenType != jwt.TokenTypeAccess || claims.UserID == "" {
			response.Unauthorized(c, 10002, "Token 类型无效")
			c.Abort()
			return
		}

		role := claims.Role
		if role == "" {
			role = model.RoleMember
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, role)

		c.Next()
	}
}

// RequireAdmin 仅管理员可访问
// 服务层同样校验角色，这里提前拒绝以减少无效请求
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(CtxRole)
		if !exists {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		if r, ok := role.(string); ok && model.IsElevated(r) {
			c.Next()
			return
		}

		response.Forbidden(c, 10003, "仅管理员可执行此操作")
		c.Abort()
	}
}
