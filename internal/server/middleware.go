package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const orgIDKey = "orgID"

// CronAuthMiddleware guards the scheduler endpoint with a shared bearer
// secret. An unset secret means the deployment is misconfigured, so the
// endpoint answers 500 rather than silently accepting anyone.
func CronAuthMiddleware(cronSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cronSecret == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cron secret is not configured"})
			c.Abort()
			return
		}

		token, ok := bearerToken(c)
		if !ok || token != cronSecret {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing cron secret"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// JWTAuthMiddleware validates an admin JWT and stores its org claim on the
// request context
func JWTAuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSecret == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "jwt secret is not configured"})
			c.Abort()
			return
		}

		tokenString, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		orgID, _ := claims["org_id"].(string)
		if orgID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token is missing org claim"})
			c.Abort()
			return
		}

		role, _ := claims["role"].(string)
		if role != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			c.Abort()
			return
		}

		c.Set(orgIDKey, orgID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}
