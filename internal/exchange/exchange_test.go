package exchange

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHappyPath(t *testing.T) {
	var seen []string
	r := NewRequest("id-1", "GET", "/pets/1", func(_ *Request, from, to Phase) {
		seen = append(seen, from.String()+">"+to.String())
	})

	assert.Equal(t, Received, r.Phase())
	for _, p := range []Phase{Resolved, Validated, Handled, Serialized, Sent} {
		require.NoError(t, r.Advance(p))
	}
	assert.Equal(t, Sent, r.Phase())
	assert.True(t, r.Phase().Terminal())
	assert.Equal(t, []string{
		"RECEIVED>RESOLVED",
		"RESOLVED>VALIDATED",
		"VALIDATED>HANDLED",
		"HANDLED>SERIALIZED",
		"SERIALIZED>SENT",
	}, seen)
}

func TestRejectFromEveryActivePhase(t *testing.T) {
	path := []Phase{Received, Resolved, Validated, Handled}
	for i, stop := range path {
		t.Run(stop.String(), func(t *testing.T) {
			r := NewRequest("", "GET", "/", nil)
			for _, p := range path[1 : i+1] {
				require.NoError(t, r.Advance(p))
			}
			assert.True(t, r.Reject())
			assert.Equal(t, Rejected, r.Phase())
		})
	}
}

func TestIllegalTransitions(t *testing.T) {
	r := NewRequest("", "GET", "/", nil)

	err := r.Advance(Handled)
	var transition *TransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, Received, transition.From)
	assert.Equal(t, Handled, transition.To)

	for _, p := range []Phase{Resolved, Validated, Handled, Serialized} {
		require.NoError(t, r.Advance(p))
	}
	assert.False(t, r.Reject(), "serialized responses are committed")

	require.NoError(t, r.Advance(Sent))
	assert.False(t, r.Reject())
	assert.Error(t, r.Advance(Sent))
}

func TestRejectedIsTerminal(t *testing.T) {
	r := NewRequest("", "GET", "/", nil)
	require.True(t, r.Reject())
	for _, p := range []Phase{Received, Resolved, Validated, Handled, Serialized, Sent, Rejected} {
		assert.Error(t, r.Advance(p), p.String())
	}
}

func TestConcurrentRejectWinsOnce(t *testing.T) {
	r := NewRequest("", "GET", "/", nil)
	require.NoError(t, r.Advance(Resolved))
	require.NoError(t, r.Advance(Validated))

	var wg sync.WaitGroup
	results := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- r.Reject()
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

func TestResponseHelpers(t *testing.T) {
	res := NewResponse(201, map[string]any{"id": 1}).SetHeader("Location", "/pets/1")
	assert.Equal(t, 201, res.Status)
	assert.Equal(t, "/pets/1", res.Header.Get("Location"))

	empty := NoContent(204)
	assert.Nil(t, empty.Body)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "REJECTED", Rejected.String())
	assert.Equal(t, "Phase(42)", Phase(42).String())
}
