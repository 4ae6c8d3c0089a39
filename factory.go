package fetchqueue

import "github.com/DoNewsCode/core/di"

// DispatcherFactory hands out named dispatchers. It wraps a di.Factory whose
// constructor decides how each dispatcher is built, so callers can supply their
// own, as below with a stub fetcher.
//
//		factory := di.NewFactory(func(name string) (di.Pair, error) {
//			dispatcher := fetchqueue.NewDispatcher(
//				fetchqueue.FetcherFunc(stub),
//				fetchqueue.UseConcurrency(4),
//			)
//			return di.Pair{Conn: dispatcher}, nil
//		})
//		dispatcherFactory := DispatcherFactory{Factory: factory}
//
type DispatcherFactory struct {
	*di.Factory
}

// Make returns the dispatcher configured under name, creating it on first use.
// Later calls with the same name share the instance.
func (s DispatcherFactory) Make(name string) (*Dispatcher, error) {
	client, err := s.Factory.Make(name)
	if err != nil {
		return nil, err
	}
	return client.(*Dispatcher), nil
}

// DispatcherMaker is what consumers inject to obtain named dispatchers.
type DispatcherMaker interface {
	Make(string) (*Dispatcher, error)
}
