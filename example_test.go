package fetchqueue_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	fetchqueue "github.com/DoNewsCode/core-fetchqueue"
)

func stubCatalog(ctx context.Context, endpoint fetchqueue.Endpoint) (*fetchqueue.FetchResult, error) {
	if endpoint.Collection != fetchqueue.Spells {
		return nil, errors.New("no such collection")
	}
	return &fetchqueue.FetchResult{StatusCode: 200, Count: 1, Results: json.RawMessage(`"` + endpoint.Key + `"`)}, nil
}

func Example() {
	dispatcher := fetchqueue.NewDispatcher(fetchqueue.FetcherFunc(stubCatalog), fetchqueue.UseConcurrency(0))

	normal, _ := dispatcher.Submit(fetchqueue.Endpoint{Collection: fetchqueue.Spells, Key: "light"}, false)
	priority, _ := dispatcher.Submit(fetchqueue.Endpoint{Collection: fetchqueue.Spells, Key: "fireball"}, true)

	for _, handle := range []fetchqueue.Handle{normal, priority} {
		_, _ = dispatcher.Wait(context.Background(), handle)
		status := dispatcher.Consume(handle)
		fmt.Println(status, string(status.Result.Payload.Results))
	}
	fmt.Println(dispatcher.Poll(normal))

	// Output:
	// Done "light"
	// Done "fireball"
	// Not Found
}

func Example_listener() {
	dispatcher := fetchqueue.NewDispatcher(fetchqueue.FetcherFunc(stubCatalog))

	done := make(chan struct{})
	dispatcher.Subscribe(fetchqueue.Listen(fetchqueue.AfterFail, func(ctx context.Context, evt fetchqueue.Event) error {
		fmt.Println(evt.Topic, evt.Job.Endpoint, evt.Result.Err)
		close(done)
		return nil
	}))
	_, _ = dispatcher.Submit(fetchqueue.Endpoint{Collection: "nowhere"}, true)
	<-done

	// Output:
	// afterFail /nowhere/ no such collection
}
