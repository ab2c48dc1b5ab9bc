package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/uccwallet/internal/keycrypto"
	"github.com/mrz1836/uccwallet/internal/session"
	"github.com/mrz1836/uccwallet/internal/wallet"
	walleterr "github.com/mrz1836/uccwallet/pkg/errors"
)

// out is a helper for CLI output that ignores write errors (standard pattern for CLI tools).
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func out(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

// outln is a helper for CLI output with newline.
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func outln(w io.Writer, args ...any) {
	fmt.Fprintln(w, args...)
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// generateBackup is the file an encrypted copy of the new phrase is written to.
	generateBackup string
	// importBackup is an encrypted backup to import from.
	importBackup string
	// forgetKeepCache keeps cached balances when forgetting the wallet.
	forgetKeepCache bool
)

// walletCmd is the parent command for wallet operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Generate, import and inspect wallets",
	Long: `Manage the locally remembered wallet.

Only the addresses are remembered. Key material is printed once on generate
and never written to disk except into an encrypted backup you ask for.`,
}

// walletGenerateCmd creates a new wallet offline.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new wallet",
	Long: `Generate a 24-word recovery phrase and derive its first account on the
m/44'/60'/0'/0/0 path.

The phrase and private key are printed once. With --backup the phrase is also
written to an age-encrypted file protected by a passphrase you choose.`,
	Example: `  uccwallet wallet generate
  uccwallet wallet generate --backup ~/ucc-backup.age
  uccwallet wallet generate -o json`,
	Args: cobra.NoArgs,
	RunE: runWalletGenerate,
}

// walletImportCmd imports an existing wallet offline.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a wallet from a phrase, key or backup",
	Long: `Import a wallet from a BIP39 recovery phrase, a 64 digit hex private key,
or an encrypted backup written by "wallet generate --backup".

The phrase or key is read from the terminal with hidden input, or from stdin
when it is not a terminal. Numbered lists and commas in pasted phrases are
ignored, and likely typos are pointed out.`,
	Example: `  uccwallet wallet import
  echo "$PHRASE" | uccwallet wallet import
  uccwallet wallet import --backup ~/ucc-backup.age`,
	Args: cobra.NoArgs,
	RunE: runWalletImport,
}

// walletShowCmd shows the remembered wallet.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the remembered wallet",
	Long: `Show the addresses of the last generated, imported or connected wallet,
with its last known balance from the local cache.`,
	Example: `  uccwallet wallet show
  uccwallet wallet show -o json`,
	Args: cobra.NoArgs,
	RunE: runWalletShow,
}

// walletForgetCmd forgets the remembered wallet.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletForgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Forget the remembered wallet",
	Long: `Remove the remembered addresses and their cached balance. Keys held by
the wallet provider or in backups are not touched.`,
	Example: `  uccwallet wallet forget
  uccwallet wallet forget --keep-cache`,
	Args: cobra.NoArgs,
	RunE: runWalletForget,
}

// StoredWalletView is the output of wallet show.
type StoredWalletView struct {
	HexAddress  string `json:"hexAddress"`
	BechAddress string `json:"bechAddress"`
	SavedAt     string `json:"savedAt"`
	Balance     string `json:"balance,omitempty"`
	Symbol      string `json:"symbol,omitempty"`
	CacheAge    string `json:"cacheAge,omitempty"`
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	walletCmd.GroupID = "wallet"
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletGenerateCmd, walletImportCmd, walletShowCmd, walletForgetCmd)

	walletGenerateCmd.Flags().StringVar(&generateBackup, "backup", "", "write an encrypted copy of the phrase to this file")
	walletImportCmd.Flags().StringVar(&importBackup, "backup", "", "import from an encrypted backup file")
	walletForgetCmd.Flags().BoolVar(&forgetKeepCache, "keep-cache", false, "keep the cached balance")
}

// offlineSession is a session without a provider, used for generate and import.
func (c *CommandContext) offlineSession() *session.Session {
	return session.New(nil,
		session.WithCodec(c.codec()),
		session.WithAddressBook(c.addressBook()),
		session.WithLogger(c.Logger),
		session.WithMetrics(c.Metrics),
	)
}

func runWalletGenerate(cmd *cobra.Command, _ []string) error {
	cc := commandContext(cmd)
	f := cc.formatterFor(cmd)

	info, err := cc.offlineSession().Generate()
	if err != nil {
		return err
	}

	if generateBackup != "" {
		if err := writeBackup(generateBackup, info.Mnemonic); err != nil {
			return err
		}
		f.Successf("Encrypted backup written to %s", generateBackup)
	}

	return f.Emit(info, func(w io.Writer) error {
		writeWalletInfo(w, info)
		outln(w)
		out(w, "Recovery phrase:\n  %s\n", info.Mnemonic)
		out(w, "Private key:\n  %s\n", info.PrivateKey)
		outln(w)
		outln(w, "Write the recovery phrase down and keep it offline. It is not stored anywhere.")
		return nil
	})
}

func writeBackup(path, mnemonic string) error {
	pass, err := promptNewPasswordFn()
	if err != nil {
		return err
	}
	defer keycrypto.Zero(pass)

	return wallet.WriteBackup(path, mnemonic, string(pass))
}

func runWalletImport(cmd *cobra.Command, _ []string) error {
	cc := commandContext(cmd)

	secret, err := readImportSecret()
	if err != nil {
		return err
	}

	s := cc.offlineSession()
	var info *session.WalletInfo
	switch wallet.DetectInputFormat(secret) {
	case wallet.FormatHex:
		info, err = s.ImportFromPrivateKey(secret)
	case wallet.FormatMnemonic:
		info, err = s.ImportFromMnemonic(secret)
	default:
		return walleterr.WithSuggestion(errInvalidInput,
			"expected a 12-24 word recovery phrase or a 64 digit hex private key")
	}
	if err != nil {
		return err
	}

	public := info.Public()
	f := cc.formatterFor(cmd)
	f.Successf("Wallet imported")
	return f.Emit(public, func(w io.Writer) error {
		writeWalletInfo(w, public)
		return nil
	})
}

func readImportSecret() (string, error) {
	if importBackup == "" {
		return promptSecretFn()
	}

	pass, err := promptPasswordFn("Backup passphrase: ")
	if err != nil {
		return "", err
	}
	defer keycrypto.Zero(pass)

	return wallet.ReadBackup(importBackup, string(pass))
}

func runWalletShow(cmd *cobra.Command, _ []string) error {
	cc := commandContext(cmd)

	stored, err := cc.addressBook().LoadWallet()
	if err != nil {
		return walleterr.WithSuggestion(err, "Run 'uccwallet wallet generate', 'wallet import' or 'connect' first")
	}

	view := &StoredWalletView{
		HexAddress:  stored.HexAddress,
		BechAddress: stored.BechAddress,
		SavedAt:     stored.SavedAt().UTC().Format(time.RFC3339),
	}

	bc := cc.loadCache()
	if entry, ok, age := bc.Get(stored.BechAddress, cc.Config.Network.NativeDenom); ok {
		if display, derr := formatNative(cc, entry.Amount); derr == nil {
			view.Balance = display
			view.Symbol = cc.Config.Network.NativeSymbol
			view.CacheAge = age.Round(time.Second).String()
		}
	}

	return cc.formatterFor(cmd).Emit(view, func(w io.Writer) error {
		out(w, "Hex:    %s\n", view.HexAddress)
		out(w, "Bech32: %s\n", view.BechAddress)
		out(w, "Saved:  %s\n", view.SavedAt)
		if view.Balance != "" {
			out(w, "Balance: %s %s (cached %s ago)\n", view.Balance, view.Symbol, view.CacheAge)
		}
		return nil
	})
}

func runWalletForget(cmd *cobra.Command, _ []string) error {
	cc := commandContext(cmd)
	book := cc.addressBook()

	stored, err := book.LoadWallet()
	if err != nil && !walleterr.Is(err, walleterr.ErrWalletNotFound) {
		return err
	}
	if err := book.ClearWallet(); err != nil {
		return err
	}

	if stored != nil && !forgetKeepCache {
		bc := cc.loadCache()
		bc.Delete(stored.BechAddress)
		cc.saveCache(bc)
	}

	cc.formatterFor(cmd).Successf("Wallet forgotten")
	return nil
}

func writeWalletInfo(w io.Writer, info *session.WalletInfo) {
	out(w, "Hex:    %s\n", info.HexAddress)
	out(w, "Bech32: %s\n", info.BechAddress)
}
