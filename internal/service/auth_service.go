package service

import (
	"errors"
	"time"

	"github.com/dujiao-next/promoengine/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid 令牌无效
var ErrTokenInvalid = errors.New("invalid token")

// AuthService 访问令牌服务（登录在外部完成，这里只签发与校验）
type AuthService struct {
	adminJWT config.JWTConfig
	userJWT  config.JWTConfig
}

// NewAuthService 创建令牌服务
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{adminJWT: cfg.JWT, userJWT: cfg.UserJWT}
}

// JWTClaims 管理员 JWT 声明
type JWTClaims struct {
	AdminID  uint   `json:"admin_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserJWTClaims 用户 JWT 声明
type UserJWTClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// GenerateJWT 生成管理员 Token
func (s *AuthService) GenerateJWT(adminID uint, username string) (string, time.Time, error) {
	expiresAt := time.Now().Add(expireDuration(s.adminJWT))
	claims := JWTClaims{
		AdminID:          adminID,
		Username:         username,
		RegisteredClaims: registeredClaims(expiresAt),
	}
	return sign(claims, s.adminJWT.SecretKey, expiresAt)
}

// ParseJWT 解析管理员 Token
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	if err := parse(tokenString, claims, s.adminJWT.SecretKey); err != nil {
		return nil, err
	}
	if claims.AdminID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// GenerateUserJWT 生成用户 Token
func (s *AuthService) GenerateUserJWT(userID uint) (string, time.Time, error) {
	expiresAt := time.Now().Add(expireDuration(s.userJWT))
	claims := UserJWTClaims{
		UserID:           userID,
		RegisteredClaims: registeredClaims(expiresAt),
	}
	return sign(claims, s.userJWT.SecretKey, expiresAt)
}

// ParseUserJWT 解析用户 Token
func (s *AuthService) ParseUserJWT(tokenString string) (*UserJWTClaims, error) {
	claims := &UserJWTClaims{}
	if err := parse(tokenString, claims, s.userJWT.SecretKey); err != nil {
		return nil, err
	}
	if claims.UserID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func expireDuration(cfg config.JWTConfig) time.Duration {
	hours := cfg.ExpireHours
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

func registeredClaims(expiresAt time.Time) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
}

func sign(claims jwt.Claims, secret string, expiresAt time.Time) (string, time.Time, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

func parse(tokenString string, claims jwt.Claims, secret string) error {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}
