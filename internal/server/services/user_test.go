package services

import (
	"context"
	"errors"
	"testing"

	"github.com/forkful/authcore/internal/common"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: newFakeUsersRepo()}
	s := NewUserService(db, rm)

	user, err := s.Register(context.Background(), "Ann@Example.com", "correct horse battery staple", "")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if user.Email != "ann@example.com" {
		t.Fatalf("email must be normalized, got %q", user.Email)
	}
	if user.Role != DefaultRole {
		t.Fatalf("empty role must default, got %q", user.Role)
	}
	if user.PasswordHash == "correct horse battery staple" {
		t.Fatal("password must not be stored in the clear")
	}

	got, err := s.Authenticate(context.Background(), "ann@example.com", "correct horse battery staple")
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: newFakeUsersRepo()}
	s := NewUserService(db, rm)

	if _, err := s.Register(context.Background(), "bob@example.com", "right password", "courier"); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	_, err := s.Authenticate(context.Background(), "bob@example.com", "wrong password")
	if !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("want ErrorUnauthorized, got %v", err)
	}
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: newFakeUsersRepo()}
	s := NewUserService(db, rm)

	_, err := s.Authenticate(context.Background(), "ghost@example.com", "whatever")
	if !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("want ErrorUnauthorized, got %v", err)
	}
}

func TestRegister_EmptyCredentials(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: newFakeUsersRepo()}
	s := NewUserService(db, rm)

	if _, err := s.Register(context.Background(), "", "pw", ""); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("want ErrorUnauthorized for empty email, got %v", err)
	}
	if _, err := s.Register(context.Background(), "a@b.c", "", ""); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("want ErrorUnauthorized for empty password, got %v", err)
	}
}
