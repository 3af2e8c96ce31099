package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-tracker/internal/models"
	"github.com/adanyl0v/go-tracker/internal/repository"
)

// dummyHashes caches one throwaway hash per parameter set.
var dummyHashes sync.Map

type authServiceImpl struct {
	logger            zerolog.Logger
	users             repository.UserRepository
	jwtIssuer         string
	jwtSigningKey     []byte
	jwtAccessTokenTTL time.Duration
	adminUsernames    []string
	passwordParams    *argon2id.Params
	now               func() time.Time
}

func NewAuthService(
	logger zerolog.Logger,
	users repository.UserRepository,
	opts Options,
) AuthService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PasswordParams == nil {
		opts.PasswordParams = argon2id.DefaultParams
	}
	return &authServiceImpl{
		logger:            logger,
		users:             users,
		jwtIssuer:         opts.JWTIssuer,
		jwtSigningKey:     opts.JWTSigningKey,
		jwtAccessTokenTTL: opts.JWTAccessTokenTTL,
		adminUsernames:    opts.AdminUsernames,
		passwordParams:    opts.PasswordParams,
		now:               opts.Now,
	}
}

func (s *authServiceImpl) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	now := s.now().UTC().Truncate(time.Microsecond)
	user := &models.User{
		Username:  params.Username,
		Email:     params.Email,
		IsActive:  true,
		IsAdmin:   slices.Contains(s.adminUsernames, params.Username),
		CreatedAt: now,
		UpdatedAt: now,
	}

	userUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate user uuid")
		return nil, err
	}
	user.ID = userUUID.String()

	passwordHash, err := argon2id.CreateHash(params.Password, s.passwordParams)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to hash password")
		return nil, err
	}
	user.Password = passwordHash

	err = s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			s.logger.Error().
				Str("username", user.Username).
				Msg("user with this username already exists")
			return nil, ErrUserAlreadyExists
		}

		s.logger.Error().
			Err(err).
			Msg("failed to insert user")
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Bool("is_admin", user.IsAdmin).
		Msg("registered user")
	return user, nil
}

func (s *authServiceImpl) Login(ctx context.Context, params LoginParams) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, params.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Error().
				Str("username", params.Username).
				Msg("user not found")
			// Unknown users still pay for one hash comparison.
			_, _ = argon2id.ComparePasswordAndHash(params.Password, s.dummyHash())
			return nil, ErrInvalidCredentials
		}

		s.logger.Error().
			Err(err).
			Str("username", params.Username).
			Msg("failed to select user by username")
		return nil, err
	}
	s.logger.Debug().
		Str("user_id", user.ID).
		Msg("selected user")

	match, err := argon2id.ComparePasswordAndHash(params.Password, user.Password)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to compare password")
		return nil, err
	} else if !match {
		s.logger.Error().
			Str("user_id", user.ID).
			Msg("passwords do not match")
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		s.logger.Error().
			Str("user_id", user.ID).
			Msg("user is inactive")
		return nil, ErrInvalidCredentials
	}

	accessToken, expiresAt, err := s.generateAccessToken(user.ID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate access token")
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Msg("logged in")
	return &LoginResult{
		User:                 user,
		AccessToken:          accessToken,
		AccessTokenExpiresAt: expiresAt,
	}, nil
}

func (s *authServiceImpl) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.ParseJWTToken(token)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to parse token")
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn().
				Str("user_id", claims.Subject).
				Msg("token subject not found")
			return nil, ErrInvalidToken
		}

		s.logger.Error().
			Err(err).
			Str("user_id", claims.Subject).
			Msg("failed to select user by id")
		return nil, err
	}

	if !user.IsActive {
		s.logger.Warn().
			Str("user_id", user.ID).
			Msg("token issued to inactive user")
		return nil, ErrInvalidToken
	}
	return user, nil
}

func (s *authServiceImpl) ParseJWTToken(token string) (*jwt.RegisteredClaims, error) {
	t, err := jwt.ParseWithClaims(
		token,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.jwtSigningKey, nil
		},
		jwt.WithIssuer(s.jwtIssuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token is expired: %w", err)
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := t.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return nil, fmt.Errorf("failed to parse token: missing subject")
	}
	return claims, nil
}

func (s *authServiceImpl) generateAccessToken(userID string) (string, time.Time, error) {
	tokenUUID, err := uuid.NewRandom()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate id: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.jwtAccessTokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        tokenUUID.String(),
		Issuer:    s.jwtIssuer,
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		NotBefore: jwt.NewNumericDate(now),
		IssuedAt:  jwt.NewNumericDate(now),
	})

	signed, err := token.SignedString(s.jwtSigningKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *authServiceImpl) dummyHash() string {
	if hash, ok := dummyHashes.Load(*s.passwordParams); ok {
		return hash.(string)
	}

	hash, err := argon2id.CreateHash("", s.passwordParams)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to create dummy password hash")
		return ""
	}
	dummyHashes.Store(*s.passwordParams, hash)
	return hash
}
