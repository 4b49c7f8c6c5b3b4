package wallet

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/xssnick/tonutils-go/address"
)

func TestCreateCommentCell(t *testing.T) {
	text := "hello tonsafe, this is a long comment which does not fit into a single cell and continues in the snake format 1234567890 1234567890 1234567890 1234567890"

	c, err := CreateCommentCell(text)
	if err != nil {
		t.Fatal(err)
	}

	s := c.BeginParse()
	if op, err := s.LoadUInt(32); err != nil || op != 0 {
		t.Fatal("comment op incorrect", op, err)
	}

	got, err := s.LoadStringSnake()
	if err != nil {
		t.Fatal(err)
	}
	if got != text {
		t.Fatal("comment not match")
	}
}

func TestEncryptedCommentRoundtrip(t *testing.T) {
	_, senderKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	receiverPub, receiverKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	senderAddr, err := AddressFromPubKey(senderKey.Public().(ed25519.PublicKey), V3, DefaultSubwallet)
	if err != nil {
		t.Fatal(err)
	}
	senderAddr = senderAddr.Bounce(false)

	text := "secret note"

	c, err := CreateEncryptedCommentCell(text, senderAddr, senderKey, receiverPub)
	if err != nil {
		t.Fatal(err)
	}

	s := c.BeginParse()
	if op, err := s.LoadUInt(32); err != nil || op != EncryptedCommentOpcode {
		t.Fatal("encrypted comment op incorrect", op, err)
	}

	full, err := DecryptCommentCell(c, senderAddr, receiverKey, senderKey.Public().(ed25519.PublicKey))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(full, []byte(text)) {
		t.Fatal("decrypted cell not match")
	}

	_, wrongKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = DecryptCommentCell(c, senderAddr, wrongKey, senderKey.Public().(ed25519.PublicKey)); err == nil {
		t.Fatal("wrong key should not decrypt")
	}

	wrongSender := address.MustParseAddr("EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2N")
	if _, err = DecryptCommentCell(c, wrongSender, receiverKey, senderKey.Public().(ed25519.PublicKey)); err == nil {
		t.Fatal("wrong sender should not decrypt")
	}
}
