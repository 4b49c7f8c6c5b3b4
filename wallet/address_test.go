package wallet

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

func TestAddressFromPubKey(t *testing.T) {
	pkey, _ := hex.DecodeString("dcc39550bb494f4b493e7efe1aa18ea31470f33a2553c568cb74a17ed56790c1")

	a, err := AddressFromPubKey(pkey, V3, DefaultSubwallet)
	if err != nil {
		t.Fatal(err)
	}

	if a.String() != "EQCvoBT5Keb46oUhI_DpX0WXFDdX9ZyxXBfX3FC9cZa90nQP" {
		t.Fatal("v3 not match")
	}

	again, err := AddressFromPubKey(pkey, V3, DefaultSubwallet)
	if err != nil {
		t.Fatal(err)
	}
	if a.String() != again.String() {
		t.Fatal("derivation is not deterministic")
	}

	other, err := AddressFromPubKey(pkey, V3, DefaultSubwallet+1)
	if err != nil {
		t.Fatal(err)
	}
	if a.String() == other.String() {
		t.Fatal("subwallet id should change the address")
	}

	r1, err := AddressFromPubKey(pkey, V3R1, DefaultSubwallet)
	if err != nil {
		t.Fatal(err)
	}
	if a.String() == r1.String() {
		t.Fatal("revision should change the address")
	}

	if _, err = AddressFromPubKey(pkey, 777, DefaultSubwallet); !errors.Is(err, ErrUnsupportedWalletVersion) {
		t.Fatal("unknown version should not derive, got", err)
	}
}

func TestGetStateInit(t *testing.T) {
	pkey, _ := hex.DecodeString("dcc39550bb494f4b493e7efe1aa18ea31470f33a2553c568cb74a17ed56790c1")

	state, err := GetStateInit(pkey, V3R2, DefaultSubwallet)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(state.Code.Hash(), walletCode[V3R2].Hash()) {
		t.Fatal("code not match")
	}

	d := state.Data.BeginParse()
	if d.MustLoadUInt(32) != 0 {
		t.Fatal("initial seqno not 0")
	}
	if d.MustLoadUInt(32) != DefaultSubwallet {
		t.Fatal("subwallet id not match")
	}
	if !bytes.Equal(d.MustLoadSlice(256), pkey) {
		t.Fatal("pub key not match")
	}
}
