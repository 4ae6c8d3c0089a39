package fetchqueue

import (
	"container/list"
	"fmt"
)

// Handle is the opaque identifier returned by Submit. It is used to poll and
// consume the outcome of a Job.
type Handle int

// Endpoint describes one catalog resource to fetch.
type Endpoint struct {
	// Collection is the top level resource, such as "spells". An empty
	// Collection addresses the catalog index.
	Collection string
	// Key selects a single item from the Collection. An empty Key addresses the
	// listing of the whole Collection.
	Key string
	// PageSize splits the fetched items into pages of at most PageSize items.
	// Zero or negative disables pagination.
	PageSize int
}

// Path returns the relative path of the endpoint, without the leading slash.
func (e Endpoint) Path() string {
	if e.Collection == "" {
		return ""
	}
	return e.Collection + "/" + e.Key
}

func (e Endpoint) String() string {
	if e.PageSize > 0 {
		return fmt.Sprintf("/%s?per_page=%d", e.Path(), e.PageSize)
	}
	return "/" + e.Path()
}

// Job is a submitted fetch request. A Job is immutable once submitted.
type Job struct {
	Handle   Handle
	Endpoint Endpoint
	Priority bool
}

// jobList is an insertion ordered mapping from handle to Job.
type jobList struct {
	order *list.List
	index map[Handle]*list.Element
}

func newJobList() *jobList {
	return &jobList{
		order: list.New(),
		index: make(map[Handle]*list.Element),
	}
}

func (l *jobList) push(job Job) {
	l.index[job.Handle] = l.order.PushBack(job)
}

// popFront removes and returns the oldest Job.
func (l *jobList) popFront() (Job, bool) {
	front := l.order.Front()
	if front == nil {
		return Job{}, false
	}
	job := l.order.Remove(front).(Job)
	delete(l.index, job.Handle)
	return job, true
}

func (l *jobList) contains(handle Handle) bool {
	_, ok := l.index[handle]
	return ok
}

// position returns the zero-based index of handle, or -1 if it is absent.
func (l *jobList) position(handle Handle) int {
	if !l.contains(handle) {
		return -1
	}
	i := 0
	for e := l.order.Front(); e != nil; e = e.Next() {
		if e.Value.(Job).Handle == handle {
			return i
		}
		i++
	}
	return -1
}

func (l *jobList) len() int {
	return l.order.Len()
}
