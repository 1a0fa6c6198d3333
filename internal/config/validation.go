package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/dionysius/venvpack/internal/common"
	"github.com/dionysius/venvpack/internal/versioner"
	"github.com/dionysius/venvpack/version"
)

// Validation errors
var (
	ErrHTTPTimeoutInvalid      = errors.New("http timeout must not be negative")
	ErrStoreURLInvalid         = errors.New("store url is invalid")
	ErrStoreURLScheme          = errors.New("store url must use http or https scheme")
	ErrStoreDistributionEmpty  = errors.New("store distribution not specified")
	ErrStoreRetentionInvalid   = errors.New("store retention is invalid")
	ErrStorePackagesInvalid    = errors.New("store package pattern is invalid")
	ErrVersionerSourceInvalid  = errors.New("invalid versioner source type")
	ErrVersionerFormatEmpty    = errors.New("versioner format not specified")
	ErrVersionerFormatUnknown  = errors.New("versioner format is unknown")
	ErrVersionerRepositoryForm = errors.New("versioner repository must be in format 'owner/repo'")
)

// validate performs validation on the loaded configuration
func validate(cfg *Config) error {
	if cfg.HTTP.Timeout < 0 {
		return fmt.Errorf("%w: %d", ErrHTTPTimeoutInvalid, cfg.HTTP.Timeout)
	}

	registry, err := version.NewDefaultRegistry(cfg.Formats.RegistryOptions())
	if err != nil {
		return fmt.Errorf("formats: %w", err)
	}

	if err := validateStore(&cfg.Store); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	if err := validateVersioner(&cfg.Versioner, registry); err != nil {
		return fmt.Errorf("versioner: %w", err)
	}

	return nil
}

// validateStore validates the store section when a URL is configured
func validateStore(store *StoreConfig) error {
	if store.URL == "" {
		return nil
	}

	u, err := url.Parse(store.URL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreURLInvalid, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("%w, got: %q", ErrStoreURLScheme, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrStoreURLInvalid)
	}

	if store.Distribution == "" {
		return ErrStoreDistributionEmpty
	}

	if _, err := common.NewPackageFilter(store.GetPackages()); err != nil {
		return fmt.Errorf("%w: %w", ErrStorePackagesInvalid, err)
	}

	for _, policy := range store.Retention {
		if err := common.ValidateRetentionRule(policy.RetentionRule); err != nil {
			return fmt.Errorf("%w: %w", ErrStoreRetentionInvalid, err)
		}
		if _, err := common.NewPackageFilter(policy.Packages); err != nil {
			return fmt.Errorf("%w: %w", ErrStoreRetentionInvalid, err)
		}
	}

	return nil
}

// validateVersioner validates the versioner section when a source is configured
func validateVersioner(options *versioner.Options, registry *version.Registry) error {
	source := options.Source
	switch source.Type {
	case "":
		return nil
	case versioner.SourceStatic, versioner.SourceFile, versioner.SourceCommand, versioner.SourceControl:
	case versioner.SourceGitHub:
		if _, err := versioner.NewSource(source, nil, nil); err != nil {
			return fmt.Errorf("%w, got: %q", ErrVersionerRepositoryForm, source.Repository)
		}
	default:
		return fmt.Errorf("%w: %q", ErrVersionerSourceInvalid, source.Type)
	}

	if options.Format == "" {
		return ErrVersionerFormatEmpty
	}
	for _, f := range []version.Format{options.Format, options.Target} {
		if f == "" {
			continue
		}
		if _, err := registry.Parser(f); err != nil {
			return fmt.Errorf("%w: %q", ErrVersionerFormatUnknown, f)
		}
	}

	return nil
}
