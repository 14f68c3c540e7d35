// Package pass keeps store credentials in the user's password-store.
package pass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/bnema/activity-ledger/internal/domain"
	"github.com/bnema/activity-ledger/internal/ports"
)

var (
	ErrUnavailable = errors.New("pass command unavailable")
	errEmptyKey    = errors.New("secret key is required")
)

const (
	defaultBinary = "pass"
	storeDirEnv   = "PASSWORD_STORE_DIR"
)

// CommandError is a failed pass invocation. It matches
// domain.ErrSecretNotFound when pass reported the entry missing.
type CommandError struct {
	Op     string
	Key    string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("pass %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("pass %s %q: %v: %s", e.Op, e.Key, e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func (e *CommandError) Is(target error) bool {
	return target == domain.ErrSecretNotFound && strings.Contains(e.Stderr, "is not in the password store")
}

type invocation struct {
	binary string
	args   []string
	stdin  string
	env    []string
}

type runner func(ctx context.Context, inv invocation) (stdout string, stderr string, err error)

type Option func(*Store)

// WithStoreDir points pass at a password-store other than ~/.password-store.
func WithStoreDir(dir string) Option {
	return func(s *Store) {
		if dir != "" {
			s.env = append(s.env, storeDirEnv+"="+dir)
		}
	}
}

func WithBinary(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.binary = name
		}
	}
}

type Store struct {
	binary string
	env    []string
	run    runner
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(opts ...Option) *Store {
	s := &Store{binary: defaultBinary, run: execPass}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	_, err := s.invoke(ctx, "put", key, value+"\n", "insert", "--multiline", "--force", key)
	return err
}

// Get returns the first line of the entry. Lines after it are pass metadata.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	out, err := s.invoke(ctx, "get", key, "", "show", key)
	if err != nil {
		return "", err
	}

	password, _, _ := strings.Cut(out, "\n")
	return strings.TrimRight(password, "\r"), nil
}

// Delete of a missing entry succeeds.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.invoke(ctx, "delete", key, "", "rm", "--force", key)
	if errors.Is(err, domain.ErrSecretNotFound) {
		return nil
	}
	return err
}

func (s *Store) invoke(ctx context.Context, op string, key string, stdin string, args ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("pass %s: %w", op, errEmptyKey)
	}

	stdout, stderr, err := s.run(ctx, invocation{binary: s.binary, args: args, stdin: stdin, env: s.env})
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return "", err
		}
		return "", &CommandError{Op: op, Key: key, Stderr: stderr, Err: err}
	}

	return stdout, nil
}

func execPass(ctx context.Context, inv invocation) (string, string, error) {
	path, err := exec.LookPath(inv.binary)
	if errors.Is(err, exec.ErrNotFound) {
		return "", "", ErrUnavailable
	}
	if err != nil {
		return "", "", fmt.Errorf("locate %s: %w", inv.binary, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, inv.args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if inv.stdin != "" {
		cmd.Stdin = strings.NewReader(inv.stdin)
	}
	if len(inv.env) > 0 {
		cmd.Env = append(os.Environ(), inv.env...)
	}

	err = cmd.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}
