// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"edu-archive-go/internal/service"
	"edu-archive-go/pkg/log"
	"edu-archive-go/pkg/token"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// 它会从请求头中提取 token，验证其有效性，并将 claims 存入 Gin 的上下文中。
func AuthMiddleware(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "请求未包含授权头"})
			return
		}

		// Token 通常以 "Bearer <token>" 的形式提供，我们需要提取出 token 本身
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效的授权头格式"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil {
			log.Debugf("[Auth] token 校验失败, clientIP: %s, Error: %v", c.ClientIP(), err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效或已过期的 token"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// Claims 返回 AuthMiddleware 解析出的 claims，未认证时返回 nil。
func Claims(c *gin.Context) *token.CustomClaims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*token.CustomClaims)
	return claims
}

// CurrentActor 由 claims 与请求信息构造本次操作的 Actor。
func CurrentActor(c *gin.Context) service.Actor {
	actor := service.Actor{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if claims := Claims(c); claims != nil {
		actor.UserID = claims.UserID
		actor.Username = claims.Username
	}
	return actor
}
