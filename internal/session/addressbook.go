package session

import (
	"encoding/json"
	"time"

	"github.com/mrz1836/uccwallet/internal/kvstore"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

// WalletStoreKey is the store key of the remembered wallet.
const WalletStoreKey = "UCC_WALLET_DETAILS"

// StoredWallet is the remembered wallet. It never carries key material.
type StoredWallet struct {
	HexAddress  string `json:"hexAddress"`
	BechAddress string `json:"bechAddress"`
	Timestamp   int64  `json:"timestamp"`
}

// SavedAt returns when the wallet was remembered.
func (w StoredWallet) SavedAt() time.Time {
	return time.UnixMilli(w.Timestamp)
}

// AddressBook remembers the last wallet used.
type AddressBook struct {
	store kvstore.Store
	now   func() time.Time
}

// NewAddressBook creates an address book on store.
func NewAddressBook(store kvstore.Store) *AddressBook {
	return &AddressBook{store: store, now: time.Now}
}

// SaveWallet remembers the addresses of info.
func (b *AddressBook) SaveWallet(info *WalletInfo) error {
	data, err := json.Marshal(StoredWallet{
		HexAddress:  info.HexAddress,
		BechAddress: info.BechAddress,
		Timestamp:   b.now().UnixMilli(),
	})
	if err != nil {
		return walleterr.Wrap(err, "encoding wallet")
	}
	return b.store.Set(WalletStoreKey, string(data))
}

// LoadWallet returns the remembered wallet, or ErrWalletNotFound when there
// is none or it cannot be read.
func (b *AddressBook) LoadWallet() (*StoredWallet, error) {
	raw, ok, err := b.store.Get(WalletStoreKey)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, walleterr.ErrWalletNotFound
	}

	var w StoredWallet
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, walleterr.WithCause(walleterr.ErrWalletNotFound, err)
	}
	return &w, nil
}

// ClearWallet forgets the remembered wallet.
func (b *AddressBook) ClearWallet() error {
	return b.store.Remove(WalletStoreKey)
}

// HasWallet reports whether a wallet is remembered.
func (b *AddressBook) HasWallet() bool {
	raw, ok, err := b.store.Get(WalletStoreKey)
	return err == nil && ok && raw != ""
}
