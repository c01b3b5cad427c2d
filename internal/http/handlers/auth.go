package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/storefront/internal/domain/user"
	"github.com/geocoder89/storefront/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, u user.User) (user.User, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) (bool, error)
}

type TokenIssuer interface {
	Issue(u user.Identity) (string, error)
}

// AuthAttempts counts register/login outcomes; *observability.Prom satisfies it.
type AuthAttempts interface {
	AuthAttempt(op, result string)
}

type AuthHandler struct {
	users      UserReader
	userWriter UserWriter
	hasher     PasswordHasher
	jwt        TokenIssuer
	attempts   AuthAttempts
}

func NewAuthHandler(users UserReader, userWriter UserWriter, hasher PasswordHasher, jwt TokenIssuer, attempts AuthAttempts) *AuthHandler {
	return &AuthHandler{
		users:      users,
		userWriter: userWriter,
		hasher:     hasher,
		jwt:        jwt,
		attempts:   attempts,
	}
}

func (h *AuthHandler) count(op, result string) {
	if h.attempts != nil {
		h.attempts.AuthAttempt(op, result)
	}
}

const invalidCredentialsMessage = "Invalid Email or Password"

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if fe := req.Validate(); !fe.Empty() {
		h.count("register", "invalid")
		RespondValidation(ctx, fe)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	// cheap pre-check so a taken address does not pay for a bcrypt hash;
	// the store's unique index still decides races
	_, err := h.users.GetByEmail(cctx, req.Email)
	if err == nil {
		h.count("register", "email_taken")
		RespondConflict(ctx, "email_taken", "User with this email already exists")
		return
	}
	if !errors.Is(err, user.ErrNotFound) {
		RespondInternal(ctx, "Encountered errors registering users, please try again later", err)
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		RespondInternal(ctx, "Encountered errors registering users, please try again later", err)
		return
	}

	u, err := user.New(req.Name, req.Email, hash)
	if err != nil {
		RespondInternal(ctx, "Encountered errors registering users, please try again later", err)
		return
	}

	u, err = h.userWriter.Create(cctx, u)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			h.count("register", "email_taken")
			RespondConflict(ctx, "email_taken", "User with this email already exists")
			return
		}

		RespondInternal(ctx, "Encountered errors registering users, please try again later", err)
		return
	}

	token, err := h.jwt.Issue(u.Identity())
	if err != nil {
		RespondInternal(ctx, "Could not generate access token", err)
		return
	}

	h.count("register", "success")

	ctx.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User created successfully",
		"token":   token,
		"user":    u.Identity(),
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if fe := req.Validate(); !fe.Empty() {
		h.count("login", "invalid")
		RespondValidation(ctx, fe)
		return
	}

	// short timeout for DB lookup
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			h.count("login", "invalid_credentials")
			RespondError(ctx, http.StatusBadRequest, "invalid_credentials", invalidCredentialsMessage, nil)
			return
		}
		RespondInternal(ctx, "Error logging in", err)
		return
	}

	ok, err := h.hasher.Verify(foundUser.PasswordHash, req.Password)
	if err != nil {
		RespondInternal(ctx, "Error logging in", err)
		return
	}

	// same body as an unknown email so callers cannot enumerate accounts
	if !ok {
		h.count("login", "invalid_credentials")
		RespondError(ctx, http.StatusBadRequest, "invalid_credentials", invalidCredentialsMessage, nil)
		return
	}

	token, err := h.jwt.Issue(foundUser.Identity())
	if err != nil {
		RespondInternal(ctx, "Could not generate access token", err)
		return
	}

	h.count("login", "success")

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login Successful",
		"token":   token,
		"user":    foundUser.Identity(),
	})
}

// Profile echoes the identity the auth gate attached; it does not hit the store.
func (h *AuthHandler) Profile(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Access denied. No token provided")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    identity,
	})
}
