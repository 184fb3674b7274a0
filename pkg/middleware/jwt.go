package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// tokenIssuer は発行するトークンのissuer。
const tokenIssuer = "neurobreak-backend"

// contextKeyClientID はGinコンテキストにクライアントIDを格納するキー。
const contextKeyClientID = "client_id"

// Claims はAPIトークンのクレーム。
type Claims struct {
	jwt.RegisteredClaims
	// ClientID はAPIを呼び出すクライアント（フロントエンド等）の識別子。
	ClientID string `json:"client_id"`
}

// GenerateJWT はクライアントIDからHS256署名のトークンを生成する。
// ttlが0以下の場合は24時間とする。
func GenerateJWT(secret, clientID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   clientID,
		},
		ClientID: clientID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// JWTAuth はBearerトークンを検証するGinミドルウェアを返す。
// 検証に失敗した場合は401と {"detail": "..."} を返す。
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithDetail(c, http.StatusUnauthorized, "Not authenticated")
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || tokenString == "" {
			abortWithDetail(c, http.StatusUnauthorized, "Invalid authentication scheme")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
		if err != nil || !token.Valid {
			abortWithDetail(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(contextKeyClientID, claims.ClientID)
		c.Next()
	}
}

// GetClientID はGinコンテキストからクライアントIDを取得する。
// JWTAuthが適用されていない場合は空文字列を返す。
func GetClientID(c *gin.Context) string {
	v, _ := c.Get(contextKeyClientID)
	if id, ok := v.(string); ok {
		return id
	}
	return ""
}

// abortWithDetail はリクエストを中断し、detail形式のエラーを返す。
func abortWithDetail(c *gin.Context, status int, detail any) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
