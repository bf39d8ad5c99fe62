// Package session holds the advisory, device-local copy of the signed-in
// user. The authoritative session lives server side behind an opaque cookie;
// nothing here is trusted until the startup verification call confirms it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/shutterdeck/go-client-sdk/api"
)

const (
	KeyUser               = "user"
	KeyMustChangePassword = "mustChangePassword"
)

var ErrInvalidProfile = errors.New("invalid user profile")

var validate = validator.New()

// Store persists the cached profile and the must-change-password flag.
// Clear always removes both keys together.
type Store interface {
	Profile(ctx context.Context) (*api.UserProfile, error)
	SaveProfile(ctx context.Context, profile api.UserProfile) error
	MustChangePassword(ctx context.Context) (bool, error)
	SetMustChangePassword(ctx context.Context, required bool) error
	Clear(ctx context.Context) error
	Close() error
}

// kv is the raw key/value surface both stores are built on.
type kv interface {
	get(ctx context.Context, key string) ([]byte, bool, error)
	put(ctx context.Context, key string, value []byte) error
	deleteAll(ctx context.Context, keys ...string) error
}

func ValidateProfile(profile api.UserProfile) error {
	if err := validate.Struct(profile); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return nil
}

func loadProfile(ctx context.Context, s kv) (*api.UserProfile, error) {
	raw, ok, err := s.get(ctx, KeyUser)
	if err != nil || !ok {
		return nil, err
	}
	var profile api.UserProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		// A corrupt cache entry is treated as absent.
		return nil, nil
	}
	return &profile, nil
}

func saveProfile(ctx context.Context, s kv, profile api.UserProfile) error {
	if err := ValidateProfile(profile); err != nil {
		return err
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return s.put(ctx, KeyUser, raw)
}

func loadFlag(ctx context.Context, s kv) (bool, error) {
	raw, ok, err := s.get(ctx, KeyMustChangePassword)
	if err != nil || !ok {
		return false, err
	}
	return string(raw) == "true", nil
}

func saveFlag(ctx context.Context, s kv, required bool) error {
	if !required {
		return s.deleteAll(ctx, KeyMustChangePassword)
	}
	return s.put(ctx, KeyMustChangePassword, []byte("true"))
}
