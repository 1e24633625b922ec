package service

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const dummyPassword = "hikari-timing-equaliser"

// passwordHasher hashes and checks passwords at one bcrypt cost. Its dummy
// hash uses the same cost, so a miss costs the same work as a wrong password.
type passwordHasher struct {
	cost int

	once  sync.Once
	dummy []byte
}

func newPasswordHasher(cost int) *passwordHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &passwordHasher{cost: cost}
}

func (h *passwordHasher) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h *passwordHasher) dummyHash() []byte {
	h.once.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte(dummyPassword), h.cost)
	})
	return h.dummy
}

// check reports whether password matches hash. An empty hash is checked
// against the dummy hash and always fails.
func (h *passwordHasher) check(hash, password string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(h.dummyHash(), []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
