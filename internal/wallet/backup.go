package wallet

import (
	"os"
	"strings"

	"github.com/mrz1836/uccwallet/internal/fileutil"
	"github.com/mrz1836/uccwallet/internal/keycrypto"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

const backupPermissions = 0o600

// WriteBackup validates mnemonic, encrypts it with passphrase and writes it
// atomically to path.
func WriteBackup(path, mnemonic, passphrase string) error {
	if err := ValidateMnemonic(mnemonic); err != nil {
		return err
	}

	ciphertext, err := keycrypto.Encrypt([]byte(NormalizeMnemonicInput(mnemonic)), passphrase)
	if err != nil {
		return err
	}
	if err := fileutil.WriteAtomic(path, ciphertext, backupPermissions); err != nil {
		return walleterr.Wrap(err, "writing backup %s", path)
	}
	return nil
}

// ReadBackup decrypts the mnemonic stored at path.
func ReadBackup(path, passphrase string) (string, error) {
	// #nosec G304 -- backup path is chosen by the user
	ciphertext, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", walleterr.WithDetails(walleterr.ErrWalletNotFound, map[string]string{"path": path})
		}
		return "", walleterr.Wrap(err, "reading backup %s", path)
	}

	plaintext, err := keycrypto.DecryptSecure(ciphertext, passphrase)
	if err != nil {
		return "", err
	}
	defer plaintext.Destroy()

	mnemonic := strings.TrimSpace(plaintext.String())
	if err := ValidateMnemonic(mnemonic); err != nil {
		return "", err
	}
	return mnemonic, nil
}
