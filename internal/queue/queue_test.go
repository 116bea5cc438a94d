package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presensi/internal/attendance"
)

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("no message")
	}
	return Message{}
}

func TestInMemory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(4)
	msg, err := NewScanMessage(attendance.Scan{Code: "15012", Session: attendance.SessionMasuk}, time.Date(2026, 10, 14, 0, 15, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, msg))

	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	got := receive(t, ch)
	assert.Equal(t, TypeScan, got.Type)

	cancel()
	for range ch {
	}
}

func TestRedisQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	q := NewRedisQueue(client, "test:scans")
	q.wait = 100 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	at := time.Date(2026, 10, 14, 5, 5, 0, 0, time.UTC)
	first, err := NewScanMessage(attendance.Scan{Code: "15012", Session: attendance.SessionZuhur, Haid: true, Station: "gate-1"}, at)
	require.NoError(t, err)
	second, err := NewScanMessage(attendance.Scan{Code: "15013", Session: attendance.SessionZuhur}, at)
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, first))
	mr.Lpush("test:scans", "not json")
	require.NoError(t, q.Publish(ctx, second))

	ch, err := q.Consume(ctx)
	require.NoError(t, err)

	sm, err := DecodeScan(receive(t, ch))
	require.NoError(t, err)
	assert.Equal(t, "15012", sm.Scan.Code)
	assert.True(t, sm.Scan.Haid)
	assert.Equal(t, "gate-1", sm.Scan.Station)
	assert.True(t, at.Equal(sm.ScannedAt))

	sm, err = DecodeScan(receive(t, ch))
	require.NoError(t, err)
	assert.Equal(t, "15013", sm.Scan.Code, "malformed entries are skipped")
}

func TestPublishRequiresType(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	err := NewRedisQueue(client, "").Publish(context.Background(), Message{Body: []byte(`{}`)})
	assert.Error(t, err)
}

func TestDecodeScan(t *testing.T) {
	_, err := DecodeScan(Message{Type: "other", Body: []byte(`{}`)})
	assert.Error(t, err)
	_, err = DecodeScan(Message{Type: TypeScan, Body: []byte(`{"scan":{"code":"1"}}`)})
	assert.Error(t, err, "scan time is required")
	_, err = DecodeScan(Message{Type: TypeScan, Body: []byte(`nope`)})
	assert.Error(t, err)
}
