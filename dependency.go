package fetchqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/DoNewsCode/core/config"
	"github.com/DoNewsCode/core/contract"
	"github.com/DoNewsCode/core/di"
	"github.com/DoNewsCode/core/otredis"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-kit/kit/metrics"
	"github.com/oklog/run"
	"github.com/pkg/errors"
)

/*
Providers returns a set of dependencies related to fetchqueue. It includes the
DispatcherMaker, the DispatcherFactory, the default *Dispatcher and the exported configs.
	Depends On:
		contract.ConfigUnmarshaler
		log.Logger
		contract.AppName
		contract.Env
		Fetcher              `optional:"true"`
		Gauge                `optional:"true"`
		Histogram            `optional:"true"`
		contract.DIPopulator `optional:"true"`
	Provides:
		DispatcherMaker
		DispatcherFactory
		*Dispatcher
*/
func Providers(optionFunc ...ProvidersOptionFunc) di.Deps {
	option := &providersOption{}
	for _, f := range optionFunc {
		f(option)
	}
	return []interface{}{
		provideDispatcherFactory(option),
		provideConfig,
		provideDispatcher,
		di.Bind(new(DispatcherFactory), new(DispatcherMaker)),
	}
}

// Gauge is an alias used for dependency injection
type Gauge metrics.Gauge

// Histogram is an alias used for dependency injection
type Histogram metrics.Histogram

// Configuration is the struct for fetchqueue configs.
type Configuration struct {
	// Concurrency bounds the expedited workers. Negative is unbounded, zero
	// fetches everything on the dispatcher loop.
	Concurrency                    int    `yaml:"concurrency" json:"concurrency"`
	HandleMin                      int    `yaml:"handleMin" json:"handleMin"`
	HandleMax                      int    `yaml:"handleMax" json:"handleMax"`
	BaseURL                        string `yaml:"baseURL" json:"baseURL"`
	RedisName                      string `yaml:"redisName" json:"redisName"`
	CacheTTLSecond                 int    `yaml:"cacheTTLSecond" json:"cacheTTLSecond"`
	FetchTimeoutSecond             int    `yaml:"fetchTimeoutSecond" json:"fetchTimeoutSecond"`
	CheckQueueLengthIntervalSecond int    `yaml:"checkQueueLengthIntervalSecond" json:"checkQueueLengthIntervalSecond"`
}

func defaultConfiguration() Configuration {
	return Configuration{
		Concurrency:                    -1,
		HandleMin:                      int(defaultHandleMin),
		HandleMax:                      int(defaultHandleMax),
		BaseURL:                        DefaultBaseURL,
		CacheTTLSecond:                 3600,
		FetchTimeoutSecond:             60,
		CheckQueueLengthIntervalSecond: 15,
	}
}

// makerIn is the injection parameters for provideDispatcherFactory
type makerIn struct {
	di.In

	Conf      contract.ConfigUnmarshaler
	Logger    log.Logger
	AppName   contract.AppName
	Env       contract.Env
	Fetcher   Fetcher              `optional:"true"`
	Gauge     Gauge                `optional:"true"`
	Histogram Histogram            `optional:"true"`
	Populator contract.DIPopulator `optional:"true"`
}

// makerOut is the di output of provideDispatcherFactory
type makerOut struct {
	di.Out

	DispatcherFactory DispatcherFactory
}

func (m makerOut) Module() interface{} { return m }

// provideDispatcherFactory is a provider for DispatcherFactory.
func provideDispatcherFactory(option *providersOption) func(p makerIn) (makerOut, error) {
	if option.fetcherConstructor == nil {
		option.fetcherConstructor = newDefaultFetcher
	}
	return func(p makerIn) (makerOut, error) {
		var (
			err   error
			confs map[string]Configuration
		)
		err = p.Conf.Unmarshal("fetchqueue", &confs)
		if err != nil {
			_ = level.Warn(p.Logger).Log("err", err)
		}
		factory := di.NewFactory(func(name string) (di.Pair, error) {
			var (
				ok   bool
				conf Configuration
			)
			if conf, ok = confs[name]; !ok {
				if name != "default" {
					return di.Pair{}, fmt.Errorf("fetchqueue configuration %s not found", name)
				}
				conf = defaultConfiguration()
			}
			if conf.HandleMin == 0 && conf.HandleMax == 0 {
				conf.HandleMin, conf.HandleMax = int(defaultHandleMin), int(defaultHandleMax)
			}
			if conf.HandleMax < conf.HandleMin {
				return di.Pair{}, fmt.Errorf("fetchqueue configuration %s: invalid handle range [%d, %d]", name, conf.HandleMin, conf.HandleMax)
			}

			fetcher := option.fetcher
			if fetcher == nil {
				fetcher = p.Fetcher
			}
			if fetcher == nil {
				fetcher, err = option.fetcherConstructor(FetcherConstructorArgs{
					Name:      name,
					Conf:      conf,
					Logger:    p.Logger,
					AppName:   p.AppName,
					Env:       p.Env,
					Populator: p.Populator,
				})
				if err != nil {
					return di.Pair{}, err
				}
			}

			opts := []func(*Dispatcher){
				UseLogger(p.Logger),
				UseConcurrency(conf.Concurrency),
				UseHandleRange(Handle(conf.HandleMin), Handle(conf.HandleMax)),
				UseFetchTimeout(time.Duration(conf.FetchTimeoutSecond) * time.Second),
			}
			if p.Gauge != nil {
				opts = append(opts, UseGauge(p.Gauge.With("queue", name), time.Duration(conf.CheckQueueLengthIntervalSecond)*time.Second))
			}
			if p.Histogram != nil {
				opts = append(opts, UseHistogram(p.Histogram.With("queue", name)))
			}
			dispatcher := NewDispatcher(fetcher, opts...)
			return di.Pair{
				Closer: func() { dispatcher.ForceStop() },
				Conn:   dispatcher,
			}, nil
		})

		// Dispatchers are created eagerly, so that their reporters can start on boot up.
		for name := range confs {
			if _, err := factory.Make(name); err != nil {
				_ = level.Warn(p.Logger).Log("err", err)
			}
		}

		return makerOut{
			DispatcherFactory: DispatcherFactory{Factory: factory},
		}, nil
	}
}

// ProvideRunGroup implements container.RunProvider.
func (m makerOut) ProvideRunGroup(group *run.Group) {
	for name := range m.DispatcherFactory.List() {
		queueName := name
		ctx, cancel := context.WithCancel(context.Background())
		group.Add(func() error {
			dispatcher, err := m.DispatcherFactory.Make(queueName)
			if err != nil {
				return err
			}
			return dispatcher.Serve(ctx)
		}, func(err error) {
			cancel()
		})
	}
}

func newDefaultFetcher(args FetcherConstructorArgs) (Fetcher, error) {
	base := &HTTPFetcher{
		BaseURL: args.Conf.BaseURL,
		Logger:  args.Logger,
	}
	if args.Conf.RedisName == "" {
		return base, nil
	}

	var maker otredis.Maker
	if args.Populator == nil {
		return nil, errors.New("the response cache requires setting the populator in DI container")
	}
	if err := args.Populator.Populate(&maker); err != nil {
		return nil, fmt.Errorf("the response cache requires an otredis.Maker in DI container: %w", err)
	}
	client, err := maker.Make(args.Conf.RedisName)
	if err != nil {
		return nil, fmt.Errorf("the response cache requires the redis client called %s: %w", args.Conf.RedisName, err)
	}
	return &CacheFetcher{
		Fetcher:     base,
		RedisClient: client,
		Logger:      args.Logger,
		Prefix:      fmt.Sprintf("{%s:%s:%s}:fetchqueue", args.AppName.String(), args.Env.String(), args.Name),
		TTL:         time.Duration(args.Conf.CacheTTLSecond) * time.Second,
		Timeout:     time.Duration(args.Conf.FetchTimeoutSecond) * time.Second,
	}, nil
}

type dispatcherOut struct {
	di.Out

	Dispatcher *Dispatcher
}

func provideDispatcher(maker DispatcherMaker) (dispatcherOut, error) {
	dispatcher, err := maker.Make("default")
	return dispatcherOut{
		Dispatcher: dispatcher,
	}, err
}

type configOut struct {
	di.Out

	Config []config.ExportedConfig `group:"config,flatten"`
}

func provideConfig() configOut {
	configs := []config.ExportedConfig{{
		Owner: "fetchqueue",
		Data: map[string]interface{}{
			"fetchqueue": map[string]Configuration{
				"default": defaultConfiguration(),
			},
		},
	}}
	return configOut{Config: configs}
}
