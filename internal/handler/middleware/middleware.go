package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

const (
	authorizationHeader = "Authorization"
	SubjectCtx          = "subject"
)

// AuthMiddleware accepts requests carrying an HS256 bearer token signed with jwtSecret.
func AuthMiddleware(jwtSecret string, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(authorizationHeader)
		if header == "" {
			log.Warn("auth middleware: auth header is empty")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "auth header is empty",
			})
			return
		}

		headerParts := strings.Split(header, " ")
		if len(headerParts) != 2 || headerParts[0] != "Bearer" {
			log.Warn("auth middleware: invalid auth header format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid auth header format",
			})
			return
		}

		if len(headerParts[1]) == 0 {
			log.Warn("auth middleware: token is empty")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "token is empty",
			})
			return
		}

		token, err := jwt.Parse(headerParts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(jwtSecret), nil
		})
		if err != nil {
			log.Warn("auth middleware: failed to parse token", slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token",
			})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			log.Warn("auth middleware: token is not valid or claims are corrupted")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "token is not valid",
			})
			return
		}

		if subject, ok := claims["sub"].(string); ok {
			c.Set(SubjectCtx, subject)
		}
		c.Next()
	}
}

// RequestLogger logs every request once it has been served.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration", time.Since(start),
		}
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request served", attrs...)
		case status >= http.StatusBadRequest:
			log.Warn("request served", attrs...)
		default:
			log.Debug("request served", attrs...)
		}
	}
}
