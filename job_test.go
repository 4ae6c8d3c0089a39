package fetchqueue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobList(t *testing.T) {
	l := newJobList()
	for _, h := range []Handle{42, 7, 1000} {
		l.push(Job{Handle: h})
	}

	assert.Equal(t, 3, l.len())
	assert.Equal(t, 0, l.position(42))
	assert.Equal(t, 2, l.position(1000))
	assert.Equal(t, -1, l.position(8))

	job, ok := l.popFront()
	assert.True(t, ok)
	assert.Equal(t, Handle(42), job.Handle)
	assert.False(t, l.contains(42))
	assert.Equal(t, 0, l.position(7))

	l.popFront()
	l.popFront()
	_, ok = l.popFront()
	assert.False(t, ok)
	assert.Equal(t, 0, l.len())
}

func TestEndpoint_String(t *testing.T) {
	assert.Equal(t, "/", Endpoint{}.String())
	assert.Equal(t, "/spells/", Endpoint{Collection: Spells}.String())
	assert.Equal(t, "/spells/fireball", Endpoint{Collection: Spells, Key: "fireball"}.String())
	assert.Equal(t, "/monsters/?per_page=5", Endpoint{Collection: Monsters, PageSize: 5}.String())
}

func TestParseEndpoint(t *testing.T) {
	assert.Equal(t, Endpoint{}, ParseEndpoint("/", 0))
	assert.Equal(t, Endpoint{Collection: "spells", PageSize: 3}, ParseEndpoint("spells", 3))
	assert.Equal(t, Endpoint{Collection: "spells", Key: "fireball"}, ParseEndpoint("/spells/fireball/", 0))
}

func TestPaginate(t *testing.T) {
	items := []json.RawMessage{
		json.RawMessage(`1`), json.RawMessage(`2`), json.RawMessage(`3`), json.RawMessage(`4`), json.RawMessage(`5`),
	}

	cases := []struct {
		name  string
		size  int
		pages []int
	}{
		{"no pagination", 0, []int{5}},
		{"partial last page", 2, []int{2, 2, 1}},
		{"exact", 5, []int{5}},
		{"larger than items", 10, []int{5}},
		{"one per page", 1, []int{1, 1, 1, 1, 1}},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			pages := Paginate(items, c.size)
			var sizes []int
			for _, page := range pages {
				sizes = append(sizes, len(page))
			}
			assert.Equal(t, c.pages, sizes)
			result := FetchResult{Pages: pages}
			assert.Equal(t, items, result.Items())
		})
	}

	assert.Nil(t, Paginate(nil, 3))
}
