package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const userIDKey = "userID"

// DemoUserID is the single local identity used when no remote sync backend
// is configured.
const DemoUserID = "demo-user"

// userID returns the identity attached by the auth middleware.
func userID(c *gin.Context) string {
	if id, ok := c.Get(userIDKey); ok {
		return id.(string)
	}
	return DemoUserID
}

// Authenticator selects between demo mode (fixed local identity, no
// credentials) and remote mode (HS256 bearer tokens) once at startup.
type Authenticator struct {
	remote bool
	secret []byte
	expiry time.Duration
}

func NewAuthenticator(remote bool, secret string, expiry time.Duration) *Authenticator {
	return &Authenticator{remote: remote, secret: []byte(secret), expiry: expiry}
}

// Middleware attaches the caller identity to the request context. In remote
// mode a missing or invalid bearer token is a 401.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.remote {
			c.Set(userIDKey, DemoUserID)
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing bearer token"})
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			return a.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			return
		}

		c.Set(userIDKey, claims.Subject)
		c.Next()
	}
}

// MintToken handles POST /api/auth/token. The subject is the caller's device
// identity; a fresh one is generated when the client has none yet. There are
// no passwords: possession of the token is the account.
func (a *Authenticator) MintToken(c *gin.Context) {
	if !a.remote {
		c.JSON(http.StatusOK, gin.H{"userId": DemoUserID})
		return
	}

	var req TokenRequest
	_ = c.ShouldBindJSON(&req)
	subject := req.DeviceID
	if subject == "" {
		subject = uuid.New().String()
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.expiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to sign token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": signed, "userId": subject})
}
