package fetchqueue

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Module exports the fetchqueue command.
type Module struct {
	maker DispatcherMaker
}

// New creates the fetchqueue module. Register it with core's AddModuleFunc.
func New(maker DispatcherMaker) Module {
	return Module{maker: maker}
}

// ProvideCommand implements container.CommandProvider.
func (m Module) ProvideCommand(command *cobra.Command) {
	command.AddCommand(newFetchCommand(m.maker))
}

// summary is one entry of the JSON report printed by the get command.
type summary struct {
	Endpoint   string          `json:"endpoint"`
	Status     string          `json:"status"`
	StatusCode int             `json:"statusCode,omitempty"`
	Count      int             `json:"count"`
	Pages      int             `json:"pages"`
	Error      string          `json:"error,omitempty"`
	Elapsed    string          `json:"elapsed"`
	Results    json.RawMessage `json:"results,omitempty"`
}

func newFetchCommand(maker DispatcherMaker) *cobra.Command {
	var (
		queueName   string
		priority    bool
		pageSize    int
		timeout     time.Duration
		withResults bool
	)

	getCmd := &cobra.Command{
		Use:   "get <collection[/key]>...",
		Short: "Fetch catalog endpoints and print a JSON summary",
		Long:  `Submit every endpoint to the dispatcher, wait until all of them are done, then print a summary keyed by handle. Use "/" for the catalog index.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dispatcher, err := maker.Make(queueName)
			if err != nil {
				return errors.Wrap(err, "cannot get dispatcher")
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			handles := make([]Handle, len(args))
			for i, arg := range args {
				handles[i], err = dispatcher.Submit(ParseEndpoint(arg, pageSize), priority)
				if err != nil {
					return errors.Wrapf(err, "cannot submit %s", arg)
				}
			}

			var (
				mu        sync.Mutex
				start     = time.Now()
				summaries = make(map[Handle]summary, len(handles))
			)
			g, ctx := errgroup.WithContext(ctx)
			for i := range handles {
				handle, arg := handles[i], args[i]
				g.Go(func() error {
					if _, err := dispatcher.Wait(ctx, handle); err != nil {
						return errors.Wrapf(err, "waiting for %s", arg)
					}
					s := summarize(arg, dispatcher.Consume(handle), time.Since(start), withResults)
					mu.Lock()
					summaries[handle] = s
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(summaries)
		},
	}
	getCmd.Flags().StringVarP(&queueName, "queue", "q", "default", "the dispatcher to submit to")
	getCmd.Flags().BoolVarP(&priority, "priority", "p", false, "submit to the expedited queue")
	getCmd.Flags().IntVar(&pageSize, "page-size", 0, "split results into pages of this size")
	getCmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "give up waiting after this duration")
	getCmd.Flags().BoolVar(&withResults, "results", false, "include the fetched results in the summary")

	fetchCmd := &cobra.Command{
		Use:   "fetchqueue",
		Short: "manage the catalog fetch queue",
		Long:  "manage the catalog fetch queue, such as fetching endpoints through it.",
	}
	fetchCmd.AddCommand(getCmd)
	return fetchCmd
}

// ParseEndpoint parses "collection" or "collection/key" into an Endpoint. An
// empty string or "/" denotes the catalog index.
func ParseEndpoint(s string, pageSize int) Endpoint {
	parts := strings.SplitN(strings.Trim(s, "/"), "/", 2)
	endpoint := Endpoint{Collection: parts[0], PageSize: pageSize}
	if len(parts) == 2 {
		endpoint.Key = parts[1]
	}
	return endpoint
}

func summarize(arg string, status Status, elapsed time.Duration, withResults bool) summary {
	s := summary{
		Endpoint: arg,
		Status:   status.String(),
		Elapsed:  elapsed.Round(time.Millisecond).String(),
	}
	if status.Result == nil {
		return s
	}
	if status.Result.Err != nil {
		s.Error = status.Result.Err.Error()
	}
	if payload := status.Result.Payload; payload != nil {
		s.StatusCode = payload.StatusCode
		s.Count = payload.Count
		s.Pages = len(payload.Pages)
		if withResults {
			s.Results = payload.Results
		}
	}
	return s
}
