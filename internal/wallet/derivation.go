package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"

	"github.com/mrz1836/uccwallet/internal/keycrypto"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

// Coin type and derivation path of the account the wallet uses.
const (
	CoinType       = 60
	DerivationPath = "m/44'/60'/0'/0/0"
)

// Account is one secp256k1 key and its address.
type Account struct {
	Address    common.Address
	Path       string
	privateKey *ecdsa.PrivateKey
}

// PrivateKeyHex returns the 0x-prefixed private key.
func (a *Account) PrivateKeyHex() string {
	return hexutil.Encode(crypto.FromECDSA(a.privateKey))
}

// PrivateKey returns the key for signing.
func (a *Account) PrivateKey() *ecdsa.PrivateKey {
	return a.privateKey
}

// DerivationPathFor returns m/44'/60'/account'/0/index.
func DerivationPathFor(account, index uint32) string {
	return fmt.Sprintf("m/44'/%d'/%d'/0/%d", CoinType, account, index)
}

// DeriveAccount derives the BIP44 key at m/44'/60'/account'/0/index.
func DeriveAccount(seed []byte, account, index uint32) (*Account, error) {
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("creating master key: %w", err)
	}

	key := master
	for _, step := range []struct {
		name  string
		index uint32
	}{
		{"purpose", bip32.FirstHardenedChild + 44},
		{"coin type", bip32.FirstHardenedChild + CoinType},
		{"account", bip32.FirstHardenedChild + account},
		{"change", 0},
		{"index", index},
	} {
		if key, err = key.NewChildKey(step.index); err != nil {
			return nil, fmt.Errorf("deriving %s key: %w", step.name, err)
		}
	}

	raw := common.LeftPadBytes(key.Key, 32)
	defer keycrypto.Zero(raw)

	priv, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("loading derived key: %w", err)
	}
	return &Account{
		Address:    crypto.PubkeyToAddress(priv.PublicKey),
		Path:       DerivationPathFor(account, index),
		privateKey: priv,
	}, nil
}

// FromMnemonic derives the default account of a mnemonic.
func FromMnemonic(mnemonic, passphrase string) (*Account, error) {
	seed, err := MnemonicToSeed(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	defer seed.Destroy()

	return DeriveAccount(seed.Bytes(), 0, 0)
}

// FromPrivateKey imports a 32-byte hex private key, with or without 0x.
func FromPrivateKey(hexKey string) (*Account, error) {
	raw, err := ParseHexKey(hexKey)
	if err != nil {
		return nil, err
	}
	defer keycrypto.Zero(raw)

	priv, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, walleterr.WithCause(walleterr.ErrInvalidPrivateKey, err)
	}
	return &Account{
		Address:    crypto.PubkeyToAddress(priv.PublicKey),
		privateKey: priv,
	}, nil
}

// Generate creates a new mnemonic and its default account.
func Generate() (string, *Account, error) {
	mnemonic, err := GenerateMnemonic()
	if err != nil {
		return "", nil, err
	}
	acct, err := FromMnemonic(mnemonic, "")
	if err != nil {
		return "", nil, err
	}
	return mnemonic, acct, nil
}

// ParseHexKey decodes a hex private key of exactly 64 digits.
func ParseHexKey(hexKey string) ([]byte, error) {
	hexKey = strings.TrimSpace(hexKey)
	if strings.HasPrefix(hexKey, "0x") || strings.HasPrefix(hexKey, "0X") {
		hexKey = hexKey[2:]
	}
	if len(hexKey) != 64 {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidPrivateKey, map[string]string{
			"reason": "expected 64 hex characters",
		})
	}

	key, err := hexutil.Decode("0x" + hexKey)
	if err != nil {
		return nil, walleterr.WithCause(walleterr.ErrInvalidPrivateKey, err)
	}
	return key, nil
}
