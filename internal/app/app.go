package app

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/aptly-dev/aptly/pgp"
	"github.com/dionysius/venvpack/debext"
	"github.com/dionysius/venvpack/internal/common"
	"github.com/dionysius/venvpack/internal/config"
	"github.com/dionysius/venvpack/internal/store"
	"github.com/dionysius/venvpack/internal/versioner"
	"github.com/dionysius/venvpack/version"
	"github.com/google/go-github/v80/github"
)

// Application holds the initialized runtime components and configuration
type Application struct {
	Config          *config.Config
	Registry        *version.Registry
	MainPool        pond.Pool
	DownloadPool    pond.ResultPool[common.Result]
	CompressionPool pond.ResultPool[common.Result]
	Downloader      *common.Downloader
	DeCompressor    *common.DeCompressor
	Storage         *common.Storage
	GitHubClient    *github.Client
	HTTPClient      *http.Client
}

// New creates and initializes a new Application from configuration
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	registry, err := version.NewDefaultRegistry(cfg.Formats.RegistryOptions())
	if err != nil {
		return nil, err
	}

	// Create worker pools with context (sizes already defaulted in config)
	mainPool := pond.NewPool(int(cfg.Workers.Main), pond.WithContext(ctx), pond.WithoutPanicRecovery())
	downloadPool := pond.NewResultPool[common.Result](int(cfg.Workers.Download), pond.WithContext(ctx), pond.WithoutPanicRecovery())
	compressionPool := pond.NewResultPool[common.Result](int(cfg.Workers.Compression), pond.WithContext(ctx), pond.WithoutPanicRecovery())

	httpClient := common.NewHTTPClient(common.HTTPOptions{
		UserAgent:       cfg.HTTP.UserAgent,
		Timeout:         time.Duration(cfg.HTTP.Timeout) * time.Second,
		MaxIdleConns:    cfg.HTTP.MaxIdleConns,
		MaxConnsPerHost: cfg.HTTP.MaxConnsPerHost,
	})

	decompressor := common.NewDeCompressor(compressionPool)
	downloader := common.NewDownloader(downloadPool, httpClient, decompressor)
	storage := common.NewStorage(downloader, cfg.Directories.GetCachePath(cfg.ConfigDir))

	githubClient := github.NewClient(httpClient)
	if cfg.GitHub.Token != "" {
		githubClient = githubClient.WithAuthToken(cfg.GitHub.Token)
	}

	return &Application{
		Config:          cfg,
		Registry:        registry,
		MainPool:        mainPool,
		DownloadPool:    downloadPool,
		CompressionPool: compressionPool,
		Downloader:      downloader,
		DeCompressor:    decompressor,
		Storage:         storage,
		GitHubClient:    githubClient,
		HTTPClient:      httpClient,
	}, nil
}

// Shutdown gracefully stops all application components
func (a *Application) Shutdown() {
	if a.MainPool != nil {
		a.MainPool.StopAndWait()
	}
	if a.DownloadPool != nil {
		a.DownloadPool.StopAndWait()
	}
	if a.CompressionPool != nil {
		a.CompressionPool.StopAndWait()
	}
}

// Versioner creates the configured versioner stage
func (a *Application) Versioner() (*versioner.Versioner, error) {
	options := a.Config.Versioner
	if options.Source.Type == "" {
		return nil, fmt.Errorf("%w: no versioner source configured", versioner.ErrUnknownSource)
	}

	// Signatures of clearsigned control files such as .dsc are not checked
	controlVerifier := &debext.Verifier{
		Verifier:         &pgp.GoVerifier{},
		AcceptUnsigned:   true,
		IgnoreSignatures: true,
	}

	source, err := versioner.NewSource(options.Source, a.GitHubClient, controlVerifier)
	if err != nil {
		return nil, err
	}
	return versioner.New(a.Registry, source, options), nil
}

// Store creates the configured APT store
func (a *Application) Store() (*store.Apt, error) {
	storeCfg := a.Config.Store
	if storeCfg.URL == "" {
		return nil, fmt.Errorf("no store url configured")
	}

	u, err := url.Parse(storeCfg.URL)
	if err != nil {
		return nil, err
	}

	verifier, err := debext.NewVerifier(
		storeCfg.GetKeyringPath(a.Config.ConfigDir),
		storeCfg.GetKeyPaths(a.Config.ConfigDir),
		storeCfg.AcceptUnsigned,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load store keys: %w", err)
	}

	return store.NewApt(a.Storage, verifier, store.Options{
		URL:           u,
		Distribution:  storeCfg.Distribution,
		Components:    storeCfg.Components,
		Architectures: storeCfg.Architectures,
		Packages:      storeCfg.GetPackages(),
		Debug:         storeCfg.Debug,
		Retention:     storeCfg.Retention,
	}, a.MainPool)
}
