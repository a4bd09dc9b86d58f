package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// Discard runs a bcrypt comparison against a throwaway hash so that a login
// for an unknown user costs about as much as one with a wrong password.
func (h *Hasher) Discard(plain string) {
	dummyOnce.Do(func() {
		cost := h.Cost
		if cost == 0 {
			cost = DefaultCost
		}
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("cinebrowse-placeholder"), cost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}
