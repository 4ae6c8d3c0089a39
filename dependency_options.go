package fetchqueue

import (
	"github.com/DoNewsCode/core/contract"
	"github.com/go-kit/kit/log"
)

type providersOption struct {
	fetcher            Fetcher
	fetcherConstructor func(args FetcherConstructorArgs) (Fetcher, error)
}

// ProvidersOptionFunc customizes Providers.
type ProvidersOptionFunc func(options *providersOption)

// WithFetcher makes every dispatcher use fetcher. It wins over
// WithFetcherConstructor and over a Fetcher in the container.
func WithFetcher(fetcher Fetcher) ProvidersOptionFunc {
	return func(options *providersOption) {
		options.fetcher = fetcher
	}
}

// WithFetcherConstructor replaces the per-dispatcher fetcher constructor, which
// by default builds an HTTPFetcher and optionally wraps it in a CacheFetcher.
func WithFetcherConstructor(f func(args FetcherConstructorArgs) (Fetcher, error)) ProvidersOptionFunc {
	return func(options *providersOption) {
		options.fetcherConstructor = f
	}
}

// FetcherConstructorArgs is what a fetcher constructor receives for one named
// dispatcher.
type FetcherConstructorArgs struct {
	Name      string
	Conf      Configuration
	Logger    log.Logger
	AppName   contract.AppName
	Env       contract.Env
	Populator contract.DIPopulator
}
