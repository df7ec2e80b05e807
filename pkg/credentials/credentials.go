// Package credentials loads the bearer token used against the Miro API.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/ogulcanaydogan/miro-guardian/pkg/model"
	keyring "github.com/zalando/go-keyring"
)

// Source supplies an API token. Implementations return a PreconditionError
// when the token is missing or empty.
type Source interface {
	// Name returns the source identifier.
	Name() string

	// Token returns the bearer token.
	Token(ctx context.Context) (string, error)
}

// FileSource reads the token from a local text file.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file" }

func (s FileSource) Token(_ context.Context) (string, error) {
	if s.Path == "" {
		return "", &model.PreconditionError{Field: "token file", Reason: "is not configured"}
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &model.PreconditionError{Field: "token file", Reason: fmt.Sprintf("%s not found", s.Path)}
		}
		return "", fmt.Errorf("read token file %s: %w", s.Path, err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", &model.PreconditionError{Field: "token file", Reason: fmt.Sprintf("%s is empty", s.Path)}
	}
	return token, nil
}

// EnvSource reads the token from an environment variable. When DotenvFile
// is set and the variable is not present in the process environment, the
// file is consulted as well.
type EnvSource struct {
	Var        string
	DotenvFile string
}

func (s EnvSource) Name() string { return "env" }

func (s EnvSource) Token(_ context.Context) (string, error) {
	if s.Var == "" {
		return "", &model.PreconditionError{Field: "token variable", Reason: "is not configured"}
	}
	if token := strings.TrimSpace(os.Getenv(s.Var)); token != "" {
		return token, nil
	}
	if s.DotenvFile != "" {
		envs, err := godotenv.Read(s.DotenvFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("parse dotenv file %s: %w", s.DotenvFile, err)
		}
		if token := strings.TrimSpace(envs[s.Var]); token != "" {
			return token, nil
		}
	}
	return "", &model.PreconditionError{Field: s.Var, Reason: "is not set"}
}

// KeyringSource reads the token from the operating system keyring.
type KeyringSource struct {
	Service string
	User    string
}

func (s KeyringSource) Name() string { return "keyring" }

func (s KeyringSource) Token(_ context.Context) (string, error) {
	token, err := keyring.Get(s.Service, s.User)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", &model.PreconditionError{Field: "keyring token", Reason: fmt.Sprintf("no entry for %s/%s", s.Service, s.User)}
		}
		return "", fmt.Errorf("read keyring: %w", err)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", &model.PreconditionError{Field: "keyring token", Reason: "is empty"}
	}
	return token, nil
}

// Store saves a token in the keyring entry of this source.
func (s KeyringSource) Store(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return &model.PreconditionError{Field: "token", Reason: "is empty"}
	}
	if err := keyring.Set(s.Service, s.User, token); err != nil {
		return fmt.Errorf("write keyring: %w", err)
	}
	return nil
}

// Delete removes the keyring entry of this source. A missing entry is not an error.
func (s KeyringSource) Delete() error {
	if err := keyring.Delete(s.Service, s.User); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete keyring entry: %w", err)
	}
	return nil
}

var (
	_ Source = FileSource{}
	_ Source = EnvSource{}
	_ Source = KeyringSource{}
)
