package httpapi

import (
	"context"
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"wumikay/pos/internal/domain"
	"wumikay/pos/internal/state"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	repo     *state.Repo
}

type posClaims struct {
	jwtlib.RegisteredClaims
	Role   string `json:"role"`
	UserID string `json:"uid"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, repo *state.Repo) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		repo:     repo,
	}
}

// Login checks the credentials against the user list and issues a token.
// Legacy plain-text passwords are upgraded to bcrypt hashes on the first
// successful match.
func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || strings.TrimSpace(req.Password) == "" {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}

	users, err := a.repo.Users(ctx)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	// Usernames match exactly; creation blocks case-insensitive duplicates
	// so case variants never denote different accounts.
	var user *domain.User
	for i := range users {
		if users[i].Username == username {
			user = &users[i]
			break
		}
	}
	if user == nil {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}

	if isPasswordHash(user.Password) {
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
			return domain.LoginResponse{}, ErrInvalidCredentials
		}
	} else {
		if user.Password != req.Password {
			return domain.LoginResponse{}, ErrInvalidCredentials
		}
		a.upgradePassword(ctx, user.Username, req.Password)
	}

	if !user.IsActive {
		return domain.LoginResponse{}, errors.New("account is inactive")
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(user, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		Username:    user.Username,
		FullName:    user.FullName,
		Role:        user.Role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &posClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{UserID: claims.UserID, Username: sub, Role: claims.Role}, nil
}

func (a *AuthManager) sign(user *domain.User, expiresAt time.Time) (string, error) {
	claims := posClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "wumikay-pos",
		},
		Role:   user.Role,
		UserID: user.ID,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *AuthManager) upgradePassword(ctx context.Context, username string, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return
	}
	// Best effort: login already succeeded against the plain-text value.
	_, _ = a.repo.MutateUsers(ctx, func(users []domain.User) ([]domain.User, error) {
		for i := range users {
			if users[i].Username == username && !isPasswordHash(users[i].Password) {
				users[i].Password = string(hash)
				break
			}
		}
		return users, nil
	})
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
