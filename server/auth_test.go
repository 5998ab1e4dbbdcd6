package main

import (
	"errors"
	"strings"
	"testing"
)

func TestRegisterLoginResume(t *testing.T) {
	db := openTestDB(t)
	a := NewAuth(db)

	acc, token, err := a.Register("  carol ", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if acc.Name != "carol" {
		t.Errorf("username not trimmed: %q", acc.Name)
	}
	resumed, err := a.Resume(token)
	if err != nil || resumed != acc {
		t.Fatalf("resume: %+v %v", resumed, err)
	}

	login, _, err := a.Login("carol", "secret", "1.2.3.4")
	if err != nil || login != acc {
		t.Fatalf("login: %+v %v", login, err)
	}
	if _, _, err := a.Login("carol", "wrong", "1.2.3.4"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, _, err := a.Login("nobody", "secret", "1.2.3.4"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("unknown account: got %v", err)
	}
	if _, _, err := a.Register("carol", "secret"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("duplicate registration: got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	a := NewAuth(openTestDB(t))
	if _, _, err := a.Register("x", "secret"); !errors.Is(err, ErrBadUsername) {
		t.Errorf("one-letter username: got %v", err)
	}
	if _, _, err := a.Register(strings.Repeat("n", maxUsernameLen+1), "secret"); !errors.Is(err, ErrBadUsername) {
		t.Errorf("overlong username: got %v", err)
	}
	if _, _, err := a.Register("dave", "abc"); !errors.Is(err, ErrShortPassword) {
		t.Errorf("short password: got %v", err)
	}
}

func TestSecretSurvivesRestart(t *testing.T) {
	db := openTestDB(t)
	first := NewAuth(db)
	_, token, err := first.Register("erin", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	second := NewAuth(db)
	if _, err := second.Resume(token); err != nil {
		t.Errorf("token from a previous process rejected: %v", err)
	}
	if _, err := second.Resume(token + "x"); !errors.Is(err, ErrBadToken) {
		t.Errorf("tampered token: got %v", err)
	}
}

func TestLoginRateLimitPerIP(t *testing.T) {
	a := NewAuth(openTestDB(t))
	for i := 0; i < loginBurst; i++ {
		if !a.allow("9.9.9.9") {
			t.Fatalf("attempt %d rejected inside the burst", i)
		}
	}
	if a.allow("9.9.9.9") {
		t.Error("attempt past the burst allowed")
	}
	if !a.allow("8.8.8.8") {
		t.Error("limit leaked to another address")
	}
	if _, _, err := a.Login("nobody", "pw", "9.9.9.9"); !errors.Is(err, ErrLoginThrottled) {
		t.Errorf("expected throttling, got %v", err)
	}
}
