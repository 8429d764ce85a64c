package protocol

import (
	"testing"
	"time"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollUntilCompleteReturnsCompletedOn200(t *testing.T) {
	calls := 0
	get := func(path string) (int, string, *apperr.Error) {
		calls++
		if calls < 3 {
			return 202, "", nil
		}
		return 200, "all done", nil
	}

	result, err := PollUntilComplete(get, "/loc", time.Second, time.Millisecond)
	require.Nil(t, err)
	assert.Equal(t, Completed, result.Status)
	assert.Equal(t, "all done", result.Body)
	assert.Equal(t, 3, calls)
}

func TestPollUntilCompleteReturnsRunningWhenDeadlinePasses(t *testing.T) {
	get := func(path string) (int, string, *apperr.Error) {
		return 202, "still going", nil
	}

	result, err := PollUntilComplete(get, "/loc", 0, time.Millisecond)
	require.Nil(t, err)
	assert.Equal(t, Running, result.Status)
}

func TestPollUntilCompleteReturnsFailedOnUnexpectedStatus(t *testing.T) {
	get := func(path string) (int, string, *apperr.Error) {
		return 500, "kaboom", nil
	}

	result, err := PollUntilComplete(get, "/loc", time.Second, time.Millisecond)
	require.Nil(t, err)
	assert.Equal(t, Failed, result.Status)
	assert.Equal(t, "kaboom", result.Body)
}

func TestPollUntilCompletePropagatesGetError(t *testing.T) {
	wantErr := apperr.New("Poll", apperr.KindConnection, "connection reset")
	get := func(path string) (int, string, *apperr.Error) {
		return 0, "", wantErr
	}

	result, err := PollUntilComplete(get, "/loc", time.Second, time.Millisecond)
	assert.Nil(t, result)
	assert.Same(t, wantErr, err)
}
