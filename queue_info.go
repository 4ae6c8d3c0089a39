package fetchqueue

// QueueInfo describes the state of the dispatcher.
type QueueInfo struct {
	// Expedited is the length of the expedited queue.
	Expedited int64
	// Normal is the length of the normal queue.
	Normal int64
	// Working is the number of jobs being fetched, inline or by a worker.
	Working int64
	// Done is the number of results waiting to be consumed.
	Done int64
}
