package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/timehacker/api/pkg/pool"
	"golang.org/x/crypto/bcrypt"
)

// Hasher is the one-way transform used for passwords and for the secret
// half of refresh and reset tokens.
type Hasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	// Verify reports whether plaintext produced hash. A malformed hash or a
	// cancelled context yields false.
	Verify(ctx context.Context, plaintext, hash string) bool
}

type BcryptHasher struct {
	cost    int
	workers *pool.WorkerPool
}

// NewBcryptHasher runs every bcrypt call through workers. A nil pool runs
// the work inline.
func NewBcryptHasher(cost int, workers *pool.WorkerPool) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost, workers: workers}
}

func (h *BcryptHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	var hashed []byte
	err := h.run(ctx, func() error {
		var err error
		hashed, err = bcrypt.GenerateFromPassword(bcryptInput(plaintext), h.cost)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Verify(ctx context.Context, plaintext, hash string) bool {
	if hash == "" {
		return false
	}
	err := h.run(ctx, func() error {
		return bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(plaintext))
	})
	return err == nil
}

func (h *BcryptHasher) run(ctx context.Context, fn func() error) error {
	if h.workers == nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn()
	}
	return h.workers.Do(ctx, fn)
}

// bcryptMaxInput is the longest input bcrypt accepts
const bcryptMaxInput = 72

// bcryptInput pre-hashes inputs longer than bcrypt accepts so that a
// 128 character password keeps all of its entropy.
func bcryptInput(plaintext string) []byte {
	if len(plaintext) <= bcryptMaxInput {
		return []byte(plaintext)
	}
	sum := sha256.Sum256([]byte(plaintext))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
