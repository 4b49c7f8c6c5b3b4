// Package keystore stores wallet keys as encrypted JSON files on disk.
// Key material is sealed with AES-256-GCM under a key derived from the
// user password via scrypt. Address and creation time stay in plaintext
// so entries can be listed without a password.
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/scrypt"
)

const (
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 32
	nonceLen     = 12

	fileExt = ".json"
)

// scrypt cost, ~256MB RAM and around a second of work.
// Variable so tests can lower it.
var scryptN = 1 << 18

var (
	ErrNotExist        = errors.New("wallet does not exist")
	ErrAlreadyExists   = errors.New("wallet already exists")
	ErrInvalidPassword = errors.New("invalid password")
)

// Key is the decrypted content of a keystore entry.
type Key struct {
	PrivateKey ed25519.PrivateKey `json:"privateKey"`
	Seed       []string           `json:"seed,omitempty"`
}

// Info is the plaintext metadata of a keystore entry. The public key and
// derivation parameters are not secret, keeping them open lets read
// operations run without a password.
type Info struct {
	Name        string `json:"-"`
	Network     string `json:"network"`
	Address     string `json:"address"`
	PublicKey   []byte `json:"publicKey"`
	Version     int    `json:"version"`
	SubwalletID uint32 `json:"subwalletId"`
	CreatedAt   string `json:"createdAt"`
}

type walletFile struct {
	Info
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"cipherText"`
}

type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create keystore dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+fileExt)
}

func validateName(name string) error {
	if name == "" {
		return errors.New("wallet name is empty")
	}
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return errors.New("wallet name must not contain path separators")
	}
	return nil
}

// Save encrypts key under password and writes it as a new entry.
// password should be zeroed by the caller after use.
func (s *Store) Save(name string, key *Key, info Info, password []byte) error {
	if err := validateName(name); err != nil {
		return err
	}

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	aesGCM, err := newGCM(password, salt)
	if err != nil {
		return err
	}

	plaintext, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("failed to marshal key: %w", err)
	}
	defer clear(plaintext)

	ciphertext := aesGCM.Seal(nil, nonce, plaintext, nil)

	info.Name = name
	if info.CreatedAt == "" {
		info.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	fileData, err := json.MarshalIndent(walletFile{
		Info:       info,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		CipherText: base64.StdEncoding.EncodeToString(ciphertext),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal wallet file: %w", err)
	}

	// exclusive create, concurrent saves of the same name race to it
	// and the loser fails instead of overwriting the entry
	f, err := os.OpenFile(s.path(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create wallet file: %w", err)
	}

	if _, err = f.Write(fileData); err != nil {
		f.Close()
		os.Remove(s.path(name))
		return fmt.Errorf("failed to write wallet file: %w", err)
	}
	if err = f.Close(); err != nil {
		os.Remove(s.path(name))
		return fmt.Errorf("failed to write wallet file: %w", err)
	}
	return nil
}

// Load reads and decrypts an entry.
// password should be zeroed by the caller after use.
func (s *Store) Load(name string, password []byte) (*Key, error) {
	wf, err := s.readFile(name)
	if err != nil {
		return nil, err
	}

	salt, err := base64.StdEncoding.DecodeString(wf.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}

	nonce, err := base64.StdEncoding.DecodeString(wf.Nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to decode nonce: %w", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(wf.CipherText)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	aesGCM, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidPassword
	}
	defer clear(plaintext)

	var key Key
	if err = json.Unmarshal(plaintext, &key); err != nil {
		return nil, fmt.Errorf("failed to unmarshal key: %w", err)
	}
	return &key, nil
}

// GetInfo reads the plaintext metadata of an entry without decryption.
func (s *Store) GetInfo(name string) (*Info, error) {
	wf, err := s.readFile(name)
	if err != nil {
		return nil, err
	}
	return &wf.Info, nil
}

// List returns the metadata of all entries, sorted by name.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore dir: %w", err)
	}

	var list []Info
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}

		name := strings.TrimSuffix(e.Name(), fileExt)
		info, err := s.GetInfo(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		list = append(list, *info)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list, nil
}

func (s *Store) Exists(name string) bool {
	if validateName(name) != nil {
		return false
	}
	_, err := os.Stat(s.path(name))
	return err == nil
}

func (s *Store) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := os.Remove(s.path(name)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotExist
		}
		return fmt.Errorf("failed to delete wallet file: %w", err)
	}
	return nil
}

func (s *Store) readFile(name string) (*walletFile, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	fileData, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to read wallet file: %w", err)
	}

	var wf walletFile
	if err = json.Unmarshal(fileData, &wf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet file: %w", err)
	}
	wf.Name = name
	return &wf, nil
}

func newGCM(password, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(password, salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
