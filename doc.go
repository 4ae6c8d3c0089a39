// Package fetchqueue provides an in-process dispatcher for asynchronous catalog
// fetches, with an expedited lane and a bounded number of concurrent workers.
//
// Introduction
//
// Some remote catalogs are slow, and callers often want to fire many requests
// and collect the answers later rather than block on each one. The dispatcher
// accepts fetch jobs, hands back a small integer handle for each, and runs the
// jobs in the background. Callers poll the handle until the result is ready and
// then consume it. A result can be consumed exactly once; afterwards the handle
// is forgotten and may be handed out again.
//
// Simple Usage
//
// Create a dispatcher around a Fetcher. The bundled HTTPFetcher talks to the
// catalog over HTTP, but any Fetcher will do.
//
//  dispatcher := fetchqueue.NewDispatcher(&fetchqueue.HTTPFetcher{}, fetchqueue.UseConcurrency(4))
//  handle, err := dispatcher.Submit(fetchqueue.Endpoint{Collection: fetchqueue.Spells, Key: "fireball"}, true)
//
// Poll reports whether the job is queued (and where), being fetched, done, or
// unknown. Consume does the same, but removes and returns the result once it is
// done.
//
//  status := dispatcher.Consume(handle)
//  if status.State == fetchqueue.StateDone {
//    fmt.Println(status.Result.Payload.Count)
//  }
//
// Callers that would rather block can use Wait, which returns as soon as the
// result is ready without consuming it.
//
// Scheduling
//
// Jobs submitted with priority go to the expedited queue, the others to the
// normal queue. Both queues are strictly first in, first out. The dispatcher
// always looks at the expedited queue first. Expedited jobs run on their own
// goroutines, at most UseConcurrency of them at a time; a negative limit lifts
// the bound, and a limit of zero runs everything on the dispatcher itself.
// Normal jobs are never parallelized: they run one at a time on the
// dispatcher, which keeps a long backlog of low priority work from fanning out.
//
// The dispatcher goes idle by itself once both queues and all workers are
// empty, and the next Submit wakes it up again. ForceStop halts it at once;
// queued jobs stay where they are until the next Submit.
//
// Integrate
//
// The fetchqueue package exports configuration in this format:
//
//  fetchqueue:
//    default:
//      concurrency: -1
//      handleMin: 1000
//      handleMax: 9998
//      baseURL: https://www.dnd5eapi.co/api
//      redisName: ""
//      cacheTTLSecond: 3600
//      fetchTimeoutSecond: 60
//      checkQueueLengthIntervalSecond: 15
//
// Using the bundled dependency provider, the dispatchers are built from the
// configuration and their metric reporters are managed by the core.
//
//  var c *core.C
//  c.Provide(otredis.Providers()) // only required when redisName is set
//  c.Provide(fetchqueue.Providers())
//
// Setting redisName wraps the HTTPFetcher in a CacheFetcher, which keeps
// successful catalog responses in redis for cacheTTLSecond.
//
// A module is also bundled, providing the fetchqueue command.
//
//  c.AddModuleFunc(fetchqueue.New)
//
// Events
//
// When a job's result has been stored, "fetchqueue.AfterComplete" or
// "fetchqueue.AfterFail" is fired to the listeners subscribed on the dispatcher.
//
// Metrics
//
// To gain visibility on the length of the queues, inject a gauge into the core
// and alias it to fetchqueue.Gauge. Likewise, a fetchqueue.Histogram receives
// the duration of every fetch.
//
//  c.Provide(di.Deps{func(appName contract.AppName, env contract.Env) fetchqueue.Gauge {
//    return prometheus.NewGaugeFrom(
//      stdprometheus.GaugeOpts{
//        Namespace: appName.String(),
//        Subsystem: env.String(),
//        Name:      "fetch_queue_length",
//        Help:      "The gauge of fetch queue length",
//      }, []string{"queue", "channel"},
//    )
//  }})
package fetchqueue
