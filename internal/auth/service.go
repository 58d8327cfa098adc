package auth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/circdesk/backend/internal/domain/staff"
)

const RoleAdmin = "admin"

var ErrInvalidCredentials = errors.New("invalid_credentials")

type Service struct {
	creds     staff.CredentialsRepository
	jwt       *JWTManager
	accessTTL time.Duration
}

type LoginResult struct {
	AccessToken string
	ExpiresIn   time.Duration
	Staff       *staff.Entity
}

func NewService(creds staff.CredentialsRepository, jwt *JWTManager, accessTTL time.Duration) *Service {
	return &Service{creds: creds, jwt: jwt, accessTTL: accessTTL}
}

// Login checks a staff passcode against its bcrypt hash. Unknown staff and
// wrong passcodes are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, staffID int64, passcode string) (*LoginResult, error) {
	if staffID <= 0 || passcode == "" {
		return nil, ErrInvalidCredentials
	}

	hash, err := s.creds.GetPasscodeHash(ctx, staffID)
	if err != nil {
		if errors.Is(err, staff.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(passcode)) != nil {
		return nil, ErrInvalidCredentials
	}

	st, err := s.creds.GetByID(ctx, staffID)
	if err != nil {
		return nil, err
	}

	token, err := s.jwt.Mint(st.ID, strings.ToLower(st.Role), TokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: token, ExpiresIn: s.accessTTL, Staff: st}, nil
}

func (s *Service) Me(ctx context.Context, staffID int64) (*staff.Entity, error) {
	return s.creds.GetByID(ctx, staffID)
}

func HashPasscode(passcode string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func ClientIP(r *http.Request) string {
	xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
