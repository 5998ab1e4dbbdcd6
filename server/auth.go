package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

const (
	tokenTTL       = 7 * 24 * time.Hour
	tokenIssuer    = "aetlis"
	bcryptCost     = 12
	minPasswordLen = 4
	minUsernameLen = 2
	maxUsernameLen = 16
	// One login attempt every six seconds per IP, bursts of ten
	loginRate  = rate.Limit(1.0 / 6)
	loginBurst = 10

	secretSetting = "jwt_secret"
)

var (
	ErrBadUsername    = errors.New("bad username")
	ErrShortPassword  = errors.New("password too short")
	ErrUsernameTaken  = errors.New("username already taken")
	ErrBadCredentials = errors.New("invalid username or password")
	ErrLoginThrottled = errors.New("too many login attempts, try again later")
	ErrBadToken       = errors.New("invalid token")
)

// Account is a signed-in identity. Lifetime stats are kept per account,
// independent of the arena player ids a connection goes through.
type Account struct {
	ID   int64
	Name string
}

// accountClaims is the token payload
type accountClaims struct {
	Account int64  `json:"acc"`
	Name    string `json:"name"`
	jwt.RegisteredClaims
}

// Auth registers accounts, checks passwords and issues account tokens
type Auth struct {
	db     *DB
	secret []byte

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewAuth creates an Auth over db, reusing the token secret stored there
func NewAuth(db *DB) *Auth {
	return &Auth{
		db:       db,
		secret:   loadOrCreateSecret(db),
		limiters: make(map[string]*rate.Limiter),
	}
}

// loadOrCreateSecret reads the signing secret from the settings table, or
// generates and stores one. Tokens stay valid across restarts.
func loadOrCreateSecret(db *DB) []byte {
	if h := db.GetSetting(secretSetting); h != "" {
		if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
			return b
		}
		Log.Warnw("stored token secret is malformed, generating a new one")
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("generate token secret: " + err.Error())
	}
	if err := db.SetSetting(secretSetting, hex.EncodeToString(secret)); err != nil {
		Log.Warnw("could not persist token secret", "error", err)
	}
	return secret
}

func validateUsername(name string) error {
	if n := utf8.RuneCountInString(name); n < minUsernameLen || n > maxUsernameLen {
		return fmt.Errorf("%w: must be %d-%d characters", ErrBadUsername, minUsernameLen, maxUsernameLen)
	}
	return nil
}

// Register creates an account and returns it with a fresh token
func (a *Auth) Register(username, password string) (Account, string, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return Account{}, "", err
	}
	if len(password) < minPasswordLen {
		return Account{}, "", fmt.Errorf("%w: need at least %d characters", ErrShortPassword, minPasswordLen)
	}

	exists, err := a.db.UsernameExists(username)
	if err != nil {
		return Account{}, "", fmt.Errorf("register %q: %w", username, err)
	}
	if exists {
		return Account{}, "", ErrUsernameTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return Account{}, "", fmt.Errorf("hash password: %w", err)
	}
	id, err := a.db.CreatePlayer(username, string(hash))
	if err != nil {
		return Account{}, "", fmt.Errorf("register %q: %w", username, err)
	}

	acc := Account{ID: id, Name: username}
	token, err := a.issue(acc)
	if err != nil {
		return Account{}, "", err
	}
	Log.Infow("account registered", "account", id, "username", username)
	return acc, token, nil
}

// Login checks a password. Attempts are throttled per remote address.
func (a *Auth) Login(username, password, ip string) (Account, string, error) {
	if !a.allow(ip) {
		return Account{}, "", ErrLoginThrottled
	}

	rec, err := a.db.GetPlayerByUsername(strings.TrimSpace(username))
	if err != nil {
		return Account{}, "", fmt.Errorf("login: %w", err)
	}
	if rec == nil || rec.PassHash == "" {
		return Account{}, "", ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.PassHash), []byte(password)) != nil {
		Log.Debugw("login rejected", "account", rec.ID, "addr", ip)
		return Account{}, "", ErrBadCredentials
	}

	acc := Account{ID: rec.ID, Name: rec.Username}
	token, err := a.issue(acc)
	if err != nil {
		return Account{}, "", err
	}
	return acc, token, nil
}

// Resume turns a token from an earlier session back into its account
func (a *Auth) Resume(token string) (Account, error) {
	var claims accountClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return Account{}, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	if claims.Account == 0 || claims.Name == "" {
		return Account{}, ErrBadToken
	}
	return Account{ID: claims.Account, Name: claims.Name}, nil
}

func (a *Auth) issue(acc Account) (string, error) {
	now := time.Now()
	claims := accountClaims{
		Account: acc.ID,
		Name:    acc.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (a *Auth) allow(ip string) bool {
	a.limMu.Lock()
	defer a.limMu.Unlock()
	l, ok := a.limiters[ip]
	if !ok {
		l = rate.NewLimiter(loginRate, loginBurst)
		a.limiters[ip] = l
	}
	return l.Allow()
}
