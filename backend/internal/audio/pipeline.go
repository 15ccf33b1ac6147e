package audio

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"brewbot/backend/pkg/errors"
	"brewbot/backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// VoiceSink is the playback side of a live voice connection. The
// discord layer wraps *discordgo.VoiceConnection; tests use fakes.
type VoiceSink interface {
	Speaking(bool) error
	Frames() chan<- []byte
}

// Pipeline delivers synthesized audio to a voice connection while
// keeping a durable copy of the most recent reply for replay.
type Pipeline struct {
	clipDir string
	logger  *zap.Logger
}

// NewPipeline creates a delivery pipeline storing clips under clipDir
func NewPipeline(clipDir string) *Pipeline {
	return &Pipeline{
		clipDir: clipDir,
		logger:  logger.Get(),
	}
}

// ClipPath returns the location of the durable copy of the last reply
func (p *Pipeline) ClipPath() string {
	return filepath.Join(p.clipDir, "last_reply.ogg")
}

// Deliver streams src to the voice connection and, best-effort, to the
// durable clip file. Playback completion is the success signal; a failed
// file write is logged and does not fail the delivery.
func (p *Pipeline) Deliver(ctx context.Context, src io.Reader, vs VoiceSink) error {
	if err := os.MkdirAll(p.clipDir, 0o755); err != nil {
		p.logger.Warn("Failed to create clip directory, skipping durable copy", zap.Error(err))
		return p.play(ctx, src, vs)
	}
	f, err := os.Create(p.ClipPath())
	if err != nil {
		p.logger.Warn("Failed to create clip file, skipping durable copy", zap.Error(err))
		return p.play(ctx, src, vs)
	}
	defer f.Close()
	return p.deliver(ctx, src, f, vs)
}

// deliver fans src out to the durable sink and the voice player. Both
// consumers are driven concurrently from bounded chunks; neither side
// buffers the full stream.
func (p *Pipeline) deliver(ctx context.Context, src io.Reader, sink io.Writer, vs VoiceSink) error {
	playPR, playPW := io.Pipe()
	sinkPR, sinkPW := io.Pipe()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer playPW.Close()
		defer sinkPW.Close()

		buf := make([]byte, 4096)
		sinkOpen := true
		for {
			n, err := src.Read(buf)
			if n > 0 {
				chunk := buf[:n]
				if sinkOpen {
					if _, werr := sinkPW.Write(chunk); werr != nil {
						sinkOpen = false
					}
				}
				if _, werr := playPW.Write(chunk); werr != nil {
					return werr
				}
			}
			if err == io.EOF {
				return nil
			}
			if err != nil {
				playPW.CloseWithError(err)
				sinkPW.CloseWithError(err)
				return err
			}
		}
	})

	// Durable copy is best-effort: log the failure, keep draining so the
	// fan-out never blocks on a dead consumer.
	g.Go(func() error {
		if _, err := io.Copy(sink, sinkPR); err != nil {
			p.logger.Warn("Durable audio copy failed", zap.Error(err))
			_, _ = io.Copy(io.Discard, sinkPR)
		}
		return nil
	})

	g.Go(func() error {
		err := p.play(gctx, playPR, vs)
		if err != nil {
			// Unblock the fan-out goroutine
			playPR.CloseWithError(err)
			return err
		}
		playPR.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		if errors.KindOf(err) != "" {
			return err
		}
		return errors.PlaybackFailed("audio delivery failed", err)
	}
	return nil
}

// Replay plays the durable copy of the last reply
func (p *Pipeline) Replay(ctx context.Context, vs VoiceSink) error {
	return p.PlayFile(ctx, p.ClipPath(), vs)
}

// PlayFile plays a stored Ogg Opus clip. Returns a NotFound error,
// without touching the voice connection, when the clip does not exist.
func (p *Pipeline) PlayFile(ctx context.Context, path string, vs VoiceSink) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NotFound("no recorded reply to play")
		}
		return errors.PlaybackFailed("failed to open audio clip", err)
	}
	defer f.Close()
	return p.play(ctx, f, vs)
}

// play feeds Opus packets from an Ogg stream to the voice transport and
// returns once the final packet has been handed over or the context is
// cancelled
func (p *Pipeline) play(ctx context.Context, r io.Reader, vs VoiceSink) error {
	if err := vs.Speaking(true); err != nil {
		return errors.PlaybackFailed("failed to signal speaking", err)
	}
	defer func() { _ = vs.Speaking(false) }()

	ogg := NewOggOpusReader(r)
	frames := 0
	for {
		packet, err := ogg.ReadPacket()
		if err == io.EOF {
			p.logger.Debug("Playback finished", zap.Int("frames", frames))
			return nil
		}
		if err != nil {
			return errors.PlaybackFailed("failed to read audio packet", err)
		}

		select {
		case vs.Frames() <- packet:
			frames++
		case <-ctx.Done():
			return errors.PlaybackFailed("playback cancelled", ctx.Err())
		}
	}
}
