package wallet

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/pbkdf2"
)

// Key derivation scheme of the standard TON clients. Only the wordlist is
// shared with BIP-39, the math is different and BIP-39 phrases will not
// validate here.
const (
	_Iterations = 100000
	_Salt       = "TON default seed"

	_BasicSalt   = "TON seed version"
	_BasicRounds = _Iterations / 256

	_PasswordSalt   = "TON fast seed version"
	_PasswordRounds = 1
)

const _SeedWords = 24

var ErrInvalidSeed = errors.New("invalid seed")

var (
	seedWords    = bip39.GetWordList()
	seedWordsMap = func() map[string]struct{} {
		m := make(map[string]struct{}, len(seedWords))
		for _, w := range seedWords {
			m[w] = struct{}{}
		}
		return m
	}()
)

// NewSeed generates a random seed phrase usable without a password.
func NewSeed() []string {
	return NewSeedWithPassword("")
}

// NewSeedWithPassword generates a random seed phrase bound to the given
// password: with a non-empty password the phrase validates only together
// with it.
func NewSeedWithPassword(password string) []string {
	for {
		seed := make([]string, 0, _SeedWords)
		for i := 0; i < _SeedWords; i++ {
			idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(seedWords))))
			if err != nil {
				panic(fmt.Errorf("failed to generate random word index: %w", err))
			}
			seed = append(seed, seedWords[idx.Int64()])
		}

		if validateSeed(seed, password) == nil {
			return seed
		}
	}
}

// FromSeed is FromSeedWithPassword with an empty password.
func FromSeed(api Provider, seed []string, version Version, options ...Option) (*Wallet, error) {
	return FromSeedWithPassword(api, seed, "", version, options...)
}

// FromSeedWithPassword validates the phrase against the password and
// builds a wallet from the derived key.
func FromSeedWithPassword(api Provider, seed []string, password string, version Version, options ...Option) (*Wallet, error) {
	key, err := SeedKey(seed, password)
	if err != nil {
		return nil, err
	}
	return FromPrivateKey(api, key, version, options...)
}

// SeedKey derives the ed25519 private key from a seed phrase. The phrase
// must pass scheme validation for the given password.
func SeedKey(seed []string, password string) (ed25519.PrivateKey, error) {
	if err := validateSeed(seed, password); err != nil {
		return nil, err
	}

	mac := hmac.New(sha512.New, []byte(strings.Join(seed, " ")))
	mac.Write([]byte(password))
	hash := mac.Sum(nil)

	k := pbkdf2.Key(hash, []byte(_Salt), _Iterations, 32, sha512.New)

	return ed25519.NewKeyFromSeed(k), nil
}

func validateSeed(seed []string, password string) error {
	if len(seed) != _SeedWords {
		return fmt.Errorf("invalid seed length %d, should be %d words: %w", len(seed), _SeedWords, ErrInvalidSeed)
	}

	for _, word := range seed {
		if _, ok := seedWordsMap[word]; !ok {
			return fmt.Errorf("unknown word '%s': %w", word, ErrInvalidSeed)
		}
	}

	mac := hmac.New(sha512.New, []byte(strings.Join(seed, " ")))
	mac.Write([]byte(password))
	hash := mac.Sum(nil)

	if len(password) > 0 {
		p := pbkdf2.Key(hash, []byte(_PasswordSalt), _PasswordRounds, 64, sha512.New)
		if p[0] != 1 {
			return fmt.Errorf("seed is not bound to this password: %w", ErrInvalidSeed)
		}
		return nil
	}

	p := pbkdf2.Key(hash, []byte(_BasicSalt), _BasicRounds, 64, sha512.New)
	if p[0] != 0 {
		return fmt.Errorf("seed requires a password: %w", ErrInvalidSeed)
	}

	return nil
}
