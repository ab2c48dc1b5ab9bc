package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mrz1836/uccwallet/internal/address"
	"github.com/mrz1836/uccwallet/internal/balance"
	"github.com/mrz1836/uccwallet/internal/cache"
	"github.com/mrz1836/uccwallet/internal/chain"
	"github.com/mrz1836/uccwallet/internal/chain/eth"
	"github.com/mrz1836/uccwallet/internal/config"
	"github.com/mrz1836/uccwallet/internal/kvstore"
	"github.com/mrz1836/uccwallet/internal/metrics"
	"github.com/mrz1836/uccwallet/internal/output"
	"github.com/mrz1836/uccwallet/internal/provider"
	"github.com/mrz1836/uccwallet/internal/session"
	"github.com/mrz1836/uccwallet/internal/token"
)

// ReaderFactory opens a chain reader for an RPC URL.
type ReaderFactory func(url string) (chain.Reader, error)

// ProviderFactory opens a wallet provider for an RPC URL.
type ProviderFactory func(url string) (provider.Provider, error)

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Config       *config.Config
	Logger       *config.Logger
	Formatter    *output.Formatter
	Store        kvstore.Store
	Cache        *cache.FileStorage
	Metrics      *metrics.Metrics
	OpenReader   ReaderFactory
	OpenProvider ProviderFactory
}

// NewCommandContext creates a context with the given dependencies and the
// JSON-RPC backed reader and provider.
func NewCommandContext(
	cfg *config.Config,
	logger *config.Logger,
	formatter *output.Formatter,
) *CommandContext {
	if logger == nil {
		logger = config.NullLogger()
	}
	c := &CommandContext{
		Config:    cfg,
		Logger:    logger,
		Formatter: formatter,
		Store:     kvstore.NewMemoryStore(),
		Metrics:   metrics.Global,
	}
	c.OpenReader = func(url string) (chain.Reader, error) {
		return eth.NewReader(url, &eth.Options{Metrics: c.Metrics})
	}
	c.OpenProvider = func(url string) (provider.Provider, error) {
		return provider.Dial(url, provider.WithMetrics(c.Metrics))
	}
	if cfg != nil {
		c.Cache = cache.NewFileStorage(config.CachePath(cfg.Home), c.Metrics)
	}
	return c
}

// WithStore sets the key-value store for wallet and token state.
func (c *CommandContext) WithStore(s kvstore.Store) *CommandContext {
	c.Store = s
	return c
}

// WithCache sets the balance cache storage.
func (c *CommandContext) WithCache(s *cache.FileStorage) *CommandContext {
	c.Cache = s
	return c
}

// WithReaderFactory sets how chain readers are opened.
func (c *CommandContext) WithReaderFactory(f ReaderFactory) *CommandContext {
	c.OpenReader = f
	return c
}

// WithProviderFactory sets how wallet providers are opened.
func (c *CommandContext) WithProviderFactory(f ProviderFactory) *CommandContext {
	c.OpenProvider = f
	return c
}

// WithMetrics sets the metrics sink.
func (c *CommandContext) WithMetrics(m *metrics.Metrics) *CommandContext {
	c.Metrics = m
	return c
}

type cmdContextKey struct{}

// SetCmdContext attaches c to the command's context.
func SetCmdContext(cmd *cobra.Command, c *CommandContext) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	cmd.SetContext(context.WithValue(base, cmdContextKey{}, c))
}

// GetCmdContext returns the context attached by SetCmdContext, or nil.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(cmdContextKey{}).(*CommandContext)
	return c
}

// commandContext returns the attached context, building one from the
// globals when a command runs outside the root command.
func commandContext(cmd *cobra.Command) *CommandContext {
	if c := GetCmdContext(cmd); c != nil {
		return c
	}
	c := defaultCommandContext()
	SetCmdContext(cmd, c)
	return c
}

// formatterFor returns a formatter writing results to the command's output.
func (c *CommandContext) formatterFor(cmd *cobra.Command) *output.Formatter {
	var p FormatProvider
	if c.Formatter != nil {
		p = c.Formatter
	}
	return output.NewFormatter(formatOf(p), cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func (c *CommandContext) codec() address.Codec {
	return address.NewCodec(c.Config.Network.Bech32Prefix)
}

func (c *CommandContext) addressBook() *session.AddressBook {
	return session.NewAddressBook(c.Store)
}

func (c *CommandContext) reader() (chain.Reader, error) {
	return c.OpenReader(c.Config.Network.RPC)
}

// reconciler builds a reconciler whose writes also land in bc when set.
func (c *CommandContext) reconciler(r chain.BalanceReader, bc *cache.BalanceCache) *balance.Reconciler {
	var sink balance.Sink
	if bc != nil {
		sink = bc.Sink()
	}
	return balance.NewReconciler(r,
		balance.WithCodec(c.codec()),
		balance.WithDenom(c.Config.Network.NativeDenom),
		balance.WithTracker(balance.NewTracker(sink)),
		balance.WithLogger(c.Logger),
		balance.WithMetrics(c.Metrics),
	)
}

// registry builds the token registry. r may be nil for offline use.
func (c *CommandContext) registry(r chain.Reader) *token.Registry {
	var (
		resolver token.MetadataResolver
		caller   chain.Caller
	)
	if r != nil {
		resolver = token.NewResolver(r,
			token.WithCallTimeout(c.Config.Polling.CallTimeout),
			token.WithLogger(c.Logger),
			token.WithResolverMetrics(c.Metrics),
		)
		caller = r
	}
	return token.NewRegistry(c.Store, resolver, caller,
		token.WithCodec(c.codec()),
		token.WithRegistryLogger(c.Logger),
	)
}

// loadCache reads the balance cache, starting empty when it is missing or
// had to be quarantined.
func (c *CommandContext) loadCache() *cache.BalanceCache {
	if c.Cache == nil {
		return cache.NewBalanceCache(c.Metrics)
	}
	bc, err := c.Cache.Load()
	if err != nil {
		c.Logger.Error("loading balance cache: %v", err)
		return cache.NewBalanceCache(c.Metrics)
	}
	return bc
}

func (c *CommandContext) saveCache(bc *cache.BalanceCache) {
	if c.Cache == nil || bc == nil {
		return
	}
	if err := c.Cache.Save(bc); err != nil {
		c.Logger.Error("saving balance cache: %v", err)
	}
}

// closeReader releases the reader's connection when it holds one.
func closeReader(r chain.Reader) {
	if cl, ok := r.(interface{ Close() }); ok {
		cl.Close()
	}
}

// sessionParts is a session with the pieces commands inspect directly.
type sessionParts struct {
	session    *session.Session
	reader     chain.Reader
	reconciler *balance.Reconciler
	registry   *token.Registry
	cache      *cache.BalanceCache
	events     *provider.EventSource
	watcher    *balance.Watcher
}

func (p *sessionParts) close() {
	p.session.Disconnect()
	closeReader(p.reader)
}

// openSession dials the provider and chain reader and wires a session.
// watch adds the balance watcher and provider event source.
func (c *CommandContext) openSession(watch bool) (*sessionParts, error) {
	p, err := c.OpenProvider(c.Config.Network.ProviderRPC)
	if err != nil {
		return nil, err
	}
	r, err := c.reader()
	if err != nil {
		return nil, err
	}

	parts := &sessionParts{reader: r, cache: c.loadCache()}
	parts.reconciler = c.reconciler(r, parts.cache)
	parts.registry = c.registry(r)

	polling := c.Config.Polling
	opts := []session.Option{
		session.WithNetwork(provider.NetworkFromConfig(c.Config.Network)),
		session.WithCodec(c.codec()),
		session.WithReconciler(parts.reconciler),
		session.WithRegistry(parts.registry),
		session.WithAddressBook(c.addressBook()),
		session.WithLogger(c.Logger),
		session.WithMetrics(c.Metrics),
		session.WithPolling(polling.MaxAttempts, polling.Interval),
	}
	if watch {
		parts.watcher = balance.NewWatcher(parts.reconciler, r, polling.RefreshInterval, polling.AccountPollInterval)
		parts.events = provider.NewEventSource(p, polling.AccountPollInterval, c.Logger)
		opts = append(opts, session.WithWatcher(parts.watcher), session.WithEventSource(parts.events))
	}

	parts.session = session.New(p, opts...)
	return parts, nil
}
