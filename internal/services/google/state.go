// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package google

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

const (
	stateName   = "google_oauth_state"
	stateMaxAge = 10 * 60 // seconds
)

type stateCodec struct {
	sc *securecookie.SecureCookie
}

func newStateCodec(key string) (*stateCodec, error) {
	var hashKey []byte
	switch {
	case key == "":
		hashKey = securecookie.GenerateRandomKey(32)
	default:
		decoded, err := hex.DecodeString(key)
		if err != nil {
			decoded = []byte(key)
		}
		if len(decoded) < 32 {
			return nil, fmt.Errorf("google state key must be at least 32 bytes, got %d", len(decoded))
		}
		hashKey = decoded
	}

	sc := securecookie.New(hashKey, nil)
	sc.MaxAge(stateMaxAge)
	return &stateCodec{sc: sc}, nil
}

// NewState returns a signed, timestamped nonce for the state parameter.
func (v *Verifier) NewState() (string, error) {
	return v.state.sc.Encode(stateName, uuid.NewString())
}

// CheckState verifies a state value produced by NewState.
func (v *Verifier) CheckState(state string) error {
	var nonce string
	if err := v.state.sc.Decode(stateName, state, &nonce); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	return nil
}
