package keystore

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"os"
	"testing"
)

func TestStore(t *testing.T) {
	// lower scrypt cost, full strength takes seconds per call
	scryptN = 1 << 12

	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	pkey := ed25519.NewKeyFromSeed([]byte("12345678901234567890123456789012"))
	key := &Key{
		PrivateKey: pkey,
		Seed:       []string{"apple", "banana"},
	}
	info := Info{
		Network:     "mainnet",
		Address:     "EQCvoBT5Keb46oUhI_DpX0WXFDdX9ZyxXBfX3FC9cZa90nQP",
		PublicKey:   pkey.Public().(ed25519.PublicKey),
		Version:     32,
		SubwalletID: 698983191,
	}

	if s.Exists("main") {
		t.Fatal("should not exist yet")
	}

	if err = s.Save("main", key, info, []byte("pass123")); err != nil {
		t.Fatal(err)
	}

	if !s.Exists("main") {
		t.Fatal("should exist")
	}

	fi, err := os.Stat(s.path("main"))
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0600 {
		t.Fatal("key file should be 0600, got", fi.Mode().Perm())
	}

	if err = s.Save("main", key, info, []byte("pass123")); !errors.Is(err, ErrAlreadyExists) {
		t.Fatal("duplicate save should fail, got", err)
	}

	got, err := s.Load("main", []byte("pass123"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.PrivateKey, key.PrivateKey) {
		t.Fatal("private key not match")
	}
	if len(got.Seed) != 2 || got.Seed[0] != "apple" {
		t.Fatal("seed not match")
	}

	if _, err = s.Load("main", []byte("wrong")); !errors.Is(err, ErrInvalidPassword) {
		t.Fatal("wrong password should fail, got", err)
	}

	if _, err = s.Load("other", []byte("pass123")); !errors.Is(err, ErrNotExist) {
		t.Fatal("missing wallet should fail, got", err)
	}

	ri, err := s.GetInfo("main")
	if err != nil {
		t.Fatal(err)
	}
	if ri.Address != info.Address || ri.Network != "mainnet" || ri.Name != "main" {
		t.Fatal("info not match")
	}
	if !bytes.Equal(ri.PublicKey, info.PublicKey) {
		t.Fatal("public key not match")
	}
	if ri.Version != 32 || ri.SubwalletID != 698983191 {
		t.Fatal("derivation params not match")
	}
	if ri.CreatedAt == "" {
		t.Fatal("created at not set")
	}

	if err = s.Save("alpha", key, info, []byte("x")); err != nil {
		t.Fatal(err)
	}

	list, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "alpha" || list[1].Name != "main" {
		t.Fatal("list incorrect", list)
	}

	if err = s.Delete("main"); err != nil {
		t.Fatal(err)
	}
	if s.Exists("main") {
		t.Fatal("should be deleted")
	}
	if err = s.Delete("main"); !errors.Is(err, ErrNotExist) {
		t.Fatal("double delete should fail, got", err)
	}

	// a file that appeared on disk outside Save is never clobbered
	if err = os.WriteFile(s.path("imported"), []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	if err = s.Save("imported", key, info, []byte("x")); !errors.Is(err, ErrAlreadyExists) {
		t.Fatal("save over an existing file should fail, got", err)
	}
	raw, err := os.ReadFile(s.path("imported"))
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "{}" {
		t.Fatal("existing file should be left intact")
	}

	if err = s.Save("../evil", key, info, []byte("x")); err == nil {
		t.Fatal("path traversal name should be rejected")
	}
	if err = s.Save("", key, info, []byte("x")); err == nil {
		t.Fatal("empty name should be rejected")
	}
}
