package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ShayBox/VRC-BAN/internal/audit"
	"github.com/ShayBox/VRC-BAN/internal/config"
	"github.com/ShayBox/VRC-BAN/internal/core"
	"github.com/ShayBox/VRC-BAN/internal/credstore"
	"github.com/ShayBox/VRC-BAN/internal/ingest"
	"github.com/ShayBox/VRC-BAN/internal/leaderboard"
	"github.com/ShayBox/VRC-BAN/internal/service"
	"github.com/ShayBox/VRC-BAN/internal/session"
	"github.com/ShayBox/VRC-BAN/internal/store"
	"github.com/ShayBox/VRC-BAN/internal/vrchat"
	"github.com/ShayBox/VRC-BAN/pkg/client"
)

type Factory struct {
	// RemoteAddr is the address of the vrcban server to connect to.
	RemoteAddr string

	// ConfigPath contains the service configuration (store, ingest, leaderboard, api).
	ConfigPath string

	// CredentialsPath is the credential file of the service account.
	CredentialsPath string
}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) bindGlobalFlags(flags *pflag.FlagSet) {
	flags.StringVar(&f.RemoteAddr, "server", "", "Address of a remote vrcban server")
	_ = viper.BindPFlag(ServerAddrKey, flags.Lookup("server"))

	flags.StringVarP(&f.ConfigPath, "config", "c", "", "The vrcban service config file to use")
	flags.StringVar(&f.CredentialsPath, "credentials", "", "Credential file (default is $HOME/.vrcban/credentials.json)")
}

func (f *Factory) serverAddr() string {
	if f.RemoteAddr != "" { // prio 1: command-line flag
		return f.RemoteAddr
	}
	return viper.GetString(ServerAddrKey) // prio 2: config/env
}

// Remote reports whether commands should go through a vrcban server instead of running locally.
func (f *Factory) Remote() bool {
	return f.serverAddr() != ""
}

// GetClient returns a client of the vrcban server, authenticated with VRCBAN_TOKEN if set.
func (f *Factory) GetClient() (*client.Client, error) {
	server := f.serverAddr()
	if server == "" {
		return nil, fmt.Errorf("server address not configured (use --server or set VRCBAN_SERVER)")
	}
	return client.New(server, client.WithAuthToken(f.token())), nil
}

func (f *Factory) token() string {
	return viper.GetString(TokenKey)
}

// LoadConfig loads the service config, or the defaults if no config file was given.
func (f *Factory) LoadConfig() (*config.Config, error) {
	if f.ConfigPath == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(f.ConfigPath)
}

// OpenCredentials opens the credential file and applies the environment overrides.
func (f *Factory) OpenCredentials() (*credstore.FileStore, error) {
	path := f.CredentialsPath
	if path == "" {
		var err error
		if path, err = credstore.DefaultPath(); err != nil {
			return nil, err
		}
	}
	fs, err := credstore.Open(path)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", fs.Path()).Msg("opened credential file")
	return fs, nil
}

// credentials merges the credential document with VRCBAN_* overrides.
func credentials(doc credstore.Document) (core.Credentials, string, error) {
	if v := viper.GetString(UsernameKey); v != "" {
		doc.Username = v
	}
	if v := viper.GetString(PasswordKey); v != "" {
		doc.Password = v
	}
	if v := viper.GetString(TOTPSecretKey); v != "" {
		doc.TOTPSecret = v
	}
	if v := viper.GetString(GroupIDKey); v != "" {
		doc.GroupID = v
	}
	creds, err := doc.Credentials()
	if err != nil {
		return core.Credentials{}, "", err
	}
	return creds, doc.GroupID, nil
}

// Backend is everything a local command needs to talk to the platform and the log store.
type Backend struct {
	Config  *config.Config
	GroupID string

	Credentials *credstore.FileStore
	Sessions    *session.Manager
	Remote      *vrchat.Client
	Store       core.LogStore
	Auditor     core.Auditor
}

// Backend wires the local components. The session is not acquired yet, see Backend.Login.
func (f *Factory) Backend(ctx context.Context) (*Backend, error) {
	cfg, err := f.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	fs, err := f.OpenCredentials()
	if err != nil {
		return nil, err
	}
	doc := fs.Document()
	creds, groupID, err := credentials(doc)
	if err != nil {
		return nil, fmt.Errorf("%w (set them in %s or via VRCBAN_USERNAME / VRCBAN_PASSWORD)", err, fs.Path())
	}
	if groupID == "" {
		return nil, errors.New("group id not configured (set group_id in the credential file or VRCBAN_GROUP_ID)")
	}

	userAgent := cfg.Remote.UserAgent
	if userAgent == "" {
		userAgent = doc.UserAgent
	}
	if userAgent == "" {
		userAgent = vrchat.DefaultUserAgent()
	}

	base := vrchat.New(cfg.Remote.BaseURL,
		vrchat.WithHTTPClient(&http.Client{Timeout: cfg.Remote.Timeout}),
		vrchat.WithUserAgent(userAgent))
	mgr := session.NewManager(base, fs, creds, session.WithUserAgent(userAgent))

	logStore, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening log store: %w", err)
	}
	auditor, err := audit.New(cfg.Audit)
	if err != nil {
		_ = logStore.Close()
		return nil, fmt.Errorf("opening operator audit: %w", err)
	}

	return &Backend{
		Config:      cfg,
		GroupID:     groupID,
		Credentials: fs,
		Sessions:    mgr,
		Remote:      base.Bind(mgr),
		Store:       logStore,
		Auditor:     auditor,
	}, nil
}

// Login acquires the platform session. Failures here are never retried.
func (b *Backend) Login(ctx context.Context) error {
	if _, err := b.Sessions.Acquire(ctx); err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}
	log.Debug().Str("state", b.Sessions.State().String()).Msg("session acquired")
	return nil
}

func (b *Backend) Close() {
	if err := b.Store.Close(); err != nil {
		log.Warn().Err(err).Msg("closing log store")
	}
	if err := b.Auditor.Close(); err != nil {
		log.Warn().Err(err).Msg("closing operator audit")
	}
}

func (b *Backend) Ingestor() *ingest.Ingestor {
	return ingest.NewIngestor(b.Remote, b.GroupID, ingest.WithPageSize(b.Config.Ingest.PageSize))
}

func (b *Backend) Loop() *ingest.Loop {
	return ingest.NewLoop(b.Ingestor(), b.Store, b.Sessions, b.Config.Ingest.Interval)
}

func (b *Backend) Moderation() *service.Moderation {
	return service.NewModeration(b.Remote, b.Store, b.Sessions, b.Auditor, b.GroupID)
}

func (b *Backend) LeaderboardOptions() (leaderboard.Options, error) {
	policy, err := leaderboard.ParsePercentPolicy(b.Config.Leaderboard.Percent)
	if err != nil {
		return leaderboard.Options{}, err
	}
	return leaderboard.Options{
		Aliases: leaderboard.DefaultAliases().Merge(b.Config.Leaderboard.Aliases),
		Window:  b.Config.Leaderboard.Window,
		Policy:  policy,
	}, nil
}

// Leaderboards builds the leaderboard service. ttl overrides the configured cache TTL if not negative.
func (b *Backend) Leaderboards(ttl time.Duration) (*service.Leaderboards, error) {
	opts, err := b.LeaderboardOptions()
	if err != nil {
		return nil, err
	}
	if ttl < 0 {
		ttl = b.Config.Leaderboard.CacheTTL
	}
	return service.NewLeaderboards(b.Store, opts,
		service.WithRemoteSource(b.Ingestor(), ingest.NewAccumulator()),
		service.WithNameResolver(b.Remote),
		service.WithRenewer(b.Sessions),
		service.WithCacheTTL(ttl),
	), nil
}
