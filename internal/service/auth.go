package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"banking-ledger/internal/model"
)

// TokenService проверяет bearer токены. Выпуск токенов нужен для сервисных
// клиентов и тестов, регистрация и вход пользователей в этот сервис не входят.
type TokenService struct {
	jwtSecret   string
	tokenExpiry time.Duration
	logger      *logrus.Logger
}

func NewTokenService(jwtSecret string, tokenExpiry time.Duration, logger *logrus.Logger) *TokenService {
	return &TokenService{
		jwtSecret:   jwtSecret,
		tokenExpiry: tokenExpiry,
		logger:      logger,
	}
}

// tokenClaims - claims токена: субъект - ID пользователя, роль - отдельное поле
type tokenClaims struct {
	Role model.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// GenerateJWTToken Генерация JWT токена
func (s *TokenService) GenerateJWTToken(userID uuid.UUID, role model.Role) (string, error) {
	claims := tokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// ParseToken Разбор и валидация JWT токена. Токен без роли принадлежит обычному пользователю.
func (s *TokenService) ParseToken(tokenString string) (model.Principal, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		s.logger.WithError(err).Warn("Невалидный JWT токен")
		return model.Principal{}, fmt.Errorf("невалидный токен: %w", err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		s.logger.WithField("subject", claims.Subject).Error("Не удалось извлечь идентификатор пользователя из токена")
		return model.Principal{}, fmt.Errorf("некорректные claims токена: %w", err)
	}

	role := claims.Role
	if role == "" {
		role = model.RoleUser
	}
	if !role.Valid() {
		s.logger.WithFields(logrus.Fields{"user_id": userID, "role": role}).Warn("Неизвестная роль в JWT токене")
		return model.Principal{}, fmt.Errorf("неизвестная роль %q", role)
	}

	s.logger.WithFields(logrus.Fields{"user_id": userID, "role": role}).Debug("JWT токен успешно распознан")
	return model.Principal{UserID: userID, Role: role}, nil
}
