package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/access"
	"github.com/shulehq/shule/core/user"
)

var (
	// appJWTConfig is the default JWT auth middleware config.
	appJWTConfig = middleware.JWTConfig{
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "userToken",
		Claims:        new(Claims),
	}
	contextUserKey = "user"

	jwtExpirationDelta        time.Duration
	jwtRefreshExpirationDelta time.Duration
	appName                   string
)

// ConfigureAuth wires the JWT middleware to the application config. It must
// be called before NewServer.
func ConfigureAuth(conf *core.Config) {
	appJWTConfig.SigningKey = conf.SecretKey
	jwtExpirationDelta = conf.Server.JWTExpirationDelta
	jwtRefreshExpirationDelta = conf.Server.JWTRefreshExpirationDelta
	appName = conf.AppName
}

// Claims represents the authorization claims transmitted via a JWT. The
// active membership is flattened in so that permission checks never need a
// DB round trip.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64        `json:"oriat,omitempty"`
	Email        string       `json:"email,omitempty"`
	Role         access.Role  `json:"role,omitempty"`
	Scope        access.Scope `json:"scope,omitempty"`
	MembershipID string       `json:"membership_id,omitempty"`
	DistrictID   string       `json:"district_id,omitempty"`
	SchoolID     string       `json:"school_id,omitempty"`
	CampusID     string       `json:"campus_id,omitempty"`
	PodID        string       `json:"pod_id,omitempty"`
}

func GetUserClaims(usr user.User, m user.Membership, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    appName,
			Subject:   usr.ID,
			Audience:  "shule",
			ExpiresAt: now.Add(jwtExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        usr.Email,
		Role:         m.Role,
		Scope:        m.Scope,
		MembershipID: m.ID,
		DistrictID:   m.DistrictID,
		SchoolID:     m.SchoolID,
		CampusID:     m.CampusID,
		PodID:        m.PodID,
	}
}

func authenticate(ctx echo.Context, email, pwd string, svc user.ServiceInterface) (*Claims, user.User, error) {
	rctx := ctx.Request().Context()

	usr, err := svc.GetByEmail(rctx, email)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return nil, user.User{}, errAuthenticationFailed
		}
		return nil, user.User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return nil, user.User{}, errAuthenticationFailed
	}
	if !usr.IsActive {
		return nil, user.User{}, errAccountDeactivated
	}

	m, err := svc.PrimaryMembership(rctx, usr.ID)
	if err != nil {
		if errors.Cause(err) == user.ErrNoMembership {
			return nil, user.User{}, errNoActiveMembership
		}
		return nil, user.User{}, errors.Wrap(err, "resolving membership")
	}

	usr, err = svc.SetLastLogin(rctx, usr)
	if err != nil {
		return nil, user.User{}, errors.Wrap(err, "setting lastLogin")
	}
	return GetUserClaims(usr, m), usr, nil
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// contextIdentity resolves the caller's identity from JWT claims.
func contextIdentity(ctx echo.Context) (access.Identity, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return access.Identity{}, err
	}
	return access.Identity{
		UserID:       claims.Subject,
		Email:        claims.Email,
		Role:         claims.Role,
		Scope:        claims.Scope,
		MembershipID: claims.MembershipID,
		DistrictID:   claims.DistrictID,
		SchoolID:     claims.SchoolID,
		CampusID:     claims.CampusID,
		PodID:        claims.PodID,
	}, nil
}

func getContextUser(ctx echo.Context, svc user.ServiceInterface, clms ...Claims) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return user.User{}, errors.Wrap(err, "getting context claims")
		}
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

func refreshToken(ctx echo.Context, svc user.ServiceInterface) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	usr, err := getContextUser(ctx, svc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if user is still active
	if !usr.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(jwtRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	// membership may have changed since the original token was issued
	m, err := svc.PrimaryMembership(ctx.Request().Context(), usr.ID)
	if err != nil {
		return "", errNoActiveMembership
	}

	newClaims := GetUserClaims(usr, m, claims.OrigIssuedAt)
	token, err := GenerateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}
