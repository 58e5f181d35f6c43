package jwt

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var (
	ErrInvalidToken          = errors.New("invalid or missing access token")
	ErrCompanyIDRequired     = errors.New("token carries no company")
	ErrManagerAccessRequired = errors.New("manager or owner role required")
)

type Role string

const (
	RoleOwner    Role = "owner"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// CanManagePayroll reports whether the role may run payroll actions.
func (r Role) CanManagePayroll() bool {
	return r == RoleOwner || r == RoleManager
}

// Claims is the tenant context extracted from an access token.
type Claims struct {
	UserID    string
	CompanyID string
	Role      Role
}

// Service verifies access tokens issued by the HR system. GenerateAccessToken
// exists for operators and tests; the engine never authenticates users.
type Service interface {
	GenerateAccessToken(claims Claims) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpirationTime string
	tokenAuth                 *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) Service {
	return &JWTService{
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) GenerateAccessToken(claims Claims) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(j.accessTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = time.Now().Add(expDuration).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":    claims.UserID,
		"company_id": claims.CompanyID,
		"role":       string(claims.Role),
		"type":       "access",
		"exp":        expiresAt,
	})
	return tokenString, expiresAt, err
}

// ClaimsFromMap reads the tenant claims of a verified access token.
func ClaimsFromMap(m map[string]interface{}) (Claims, error) {
	if tokenType, ok := m["type"].(string); !ok || tokenType != "access" {
		return Claims{}, ErrInvalidToken
	}
	userID, _ := m["user_id"].(string)
	companyID, _ := m["company_id"].(string)
	role, _ := m["role"].(string)
	if userID == "" {
		return Claims{}, ErrInvalidToken
	}
	if companyID == "" {
		return Claims{}, ErrCompanyIDRequired
	}
	return Claims{UserID: userID, CompanyID: companyID, Role: Role(role)}, nil
}
