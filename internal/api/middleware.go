package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// jwtMiddleware проверяет JWT токен в заголовке Authorization
func (rs *RestServer) jwtMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rs.tokens == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, GenericResponse{
				Message: "Авторизация не настроена",
			})
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{
				Message: "Отсутствует токен авторизации",
			})
			return
		}

		// Формат "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{
				Message: "Неверный формат токена",
			})
			return
		}

		claims, err := rs.tokens.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{
				Message: "Недействительный токен",
			})
			return
		}

		c.Set("user", claims.Name)
		c.Set("is_admin", claims.IsAdmin)
		c.Next()
	}
}

// adminMiddleware пропускает только администраторов. Ставится после jwtMiddleware.
func (rs *RestServer) adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool("is_admin") {
			c.AbortWithStatusJSON(http.StatusForbidden, GenericResponse{
				Message: "Недостаточно прав доступа",
			})
			return
		}
		c.Next()
	}
}
