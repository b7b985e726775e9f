package courier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoster_Work(t *testing.T) {
	var got []Message
	p := NewPoster(TransportFunc(func(_ context.Context, m Message) error {
		got = append(got, m)
		return nil
	}))

	evt := []byte(`{"v":"KERI10JSON000000_"}`)
	require.NoError(t, p.Send("EA", "EB", "delegate", evt, []byte("-AAB")))
	require.NoError(t, p.Send("EA", "EC", "delegate", evt, nil))
	assert.Error(t, p.Send("EA", "", "delegate", evt, nil))
	evt[0] = 'X'
	assert.Equal(t, 2, p.Pending())

	require.NoError(t, p.Work(context.Background()))
	assert.Equal(t, 0, p.Pending())
	require.Len(t, got, 2)
	assert.Equal(t, "EB", got[0].Dest)
	assert.Equal(t, "delegate", got[0].Topic)
	assert.Equal(t, byte('{'), got[0].Event[0])
	assert.Equal(t, []byte("-AAB"), got[0].Attachment)
	assert.NotEmpty(t, got[0].ID)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestPoster_Work_retry(t *testing.T) {
	tries := 0
	p := NewPoster(TransportFunc(func(context.Context, Message) error {
		tries++
		return errors.New("peer down")
	}))
	require.NoError(t, p.Send("EA", "EB", "delegate", nil, nil))

	for i := 0; i < MaxTries; i++ {
		assert.Error(t, p.Work(context.Background()))
	}
	assert.Equal(t, MaxTries, tries)
	assert.Equal(t, 0, p.Pending())
}

func TestPoster_Work_canceled(t *testing.T) {
	p := NewPoster(LogTransport)
	require.NoError(t, p.Send("EA", "EB", "delegate", nil, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Work(ctx), context.Canceled)
	assert.Equal(t, 1, p.Pending())
}
