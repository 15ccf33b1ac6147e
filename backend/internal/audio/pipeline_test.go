package audio

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"brewbot/backend/pkg/errors"

	"github.com/stretchr/testify/assert"
)

type fakeSink struct {
	mu       sync.Mutex
	speaking []bool
	frames   chan []byte
	received int // total payload bytes consumed
	delay    time.Duration
}

func newFakeSink(delay time.Duration) *fakeSink {
	s := &fakeSink{
		frames: make(chan []byte),
		delay:  delay,
	}
	go func() {
		for pkt := range s.frames {
			if s.delay > 0 {
				time.Sleep(s.delay)
			}
			s.mu.Lock()
			s.received += len(pkt)
			s.mu.Unlock()
		}
	}()
	return s
}

func (s *fakeSink) Speaking(b bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speaking = append(s.speaking, b)
	return nil
}

func (s *fakeSink) Frames() chan<- []byte {
	return s.frames
}

func (s *fakeSink) receivedBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received
}

func (s *fakeSink) speakingCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.speaking)
}

// throttledWriter simulates a slow durable sink
type throttledWriter struct {
	buf   bytes.Buffer
	delay time.Duration
}

func (w *throttledWriter) Write(p []byte) (int, error) {
	time.Sleep(w.delay)
	return w.buf.Write(p)
}

func testStream(packetCount, packetSize int) ([]byte, int) {
	packets := make([][]byte, packetCount)
	payload := 0
	for i := range packets {
		pkt := bytes.Repeat([]byte{byte(i + 1)}, packetSize)
		packets[i] = pkt
		payload += len(pkt)
	}
	return makeOggOpusStream(packets), payload
}

func TestDeliver_TeeFeedsBothConsumers(t *testing.T) {
	stream, payload := testStream(40, 100)
	sink := &throttledWriter{delay: time.Millisecond}
	vs := newFakeSink(0)

	p := NewPipeline(t.TempDir())
	err := p.deliver(context.Background(), bytes.NewReader(stream), sink, vs)
	assert.NoError(t, err)

	// The slow durable sink still receives every byte of the source
	assert.Equal(t, stream, sink.buf.Bytes())

	// The voice player receives every data packet
	assert.Eventually(t, func() bool {
		return vs.receivedBytes() == payload
	}, time.Second, 5*time.Millisecond)

	// Speaking toggled on and back off
	assert.Equal(t, 2, vs.speakingCalls())
}

func TestDeliver_SlowPlayerStillGetsEverything(t *testing.T) {
	stream, payload := testStream(20, 120)
	sink := &throttledWriter{}
	vs := newFakeSink(2 * time.Millisecond)

	p := NewPipeline(t.TempDir())
	err := p.deliver(context.Background(), bytes.NewReader(stream), sink, vs)
	assert.NoError(t, err)

	assert.Equal(t, stream, sink.buf.Bytes())
	assert.Eventually(t, func() bool {
		return vs.receivedBytes() == payload
	}, time.Second, 5*time.Millisecond)
}

func TestDeliver_WritesDurableCopy(t *testing.T) {
	stream, _ := testStream(5, 50)
	dir := t.TempDir()
	p := NewPipeline(dir)
	vs := newFakeSink(0)

	err := p.Deliver(context.Background(), bytes.NewReader(stream), vs)
	assert.NoError(t, err)

	saved, err := os.ReadFile(filepath.Join(dir, "last_reply.ogg"))
	assert.NoError(t, err)
	assert.Equal(t, stream, saved)
}

func TestDeliver_InvalidStreamIsPlaybackError(t *testing.T) {
	p := NewPipeline(t.TempDir())
	vs := newFakeSink(0)

	err := p.deliver(context.Background(), bytes.NewReader([]byte("not an ogg stream at all, sorry")), &throttledWriter{}, vs)
	assert.True(t, errors.Is(err, errors.KindPlaybackFailed), "expected PlaybackFailed, got %v", err)
}

func TestReplay_NotFoundWithoutRecording(t *testing.T) {
	p := NewPipeline(t.TempDir())
	vs := newFakeSink(0)

	err := p.Replay(context.Background(), vs)
	assert.True(t, errors.Is(err, errors.KindNotFound), "expected NotFound, got %v", err)

	// No voice-connection side effects
	assert.Equal(t, 0, vs.speakingCalls())
}

func TestReplay_PlaysStoredClip(t *testing.T) {
	stream, payload := testStream(8, 60)
	dir := t.TempDir()
	p := NewPipeline(dir)

	assert.NoError(t, os.WriteFile(p.ClipPath(), stream, 0o644))

	vs := newFakeSink(0)
	err := p.Replay(context.Background(), vs)
	assert.NoError(t, err)
	assert.Eventually(t, func() bool {
		return vs.receivedBytes() == payload
	}, time.Second, 5*time.Millisecond)
}
