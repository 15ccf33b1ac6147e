package discord

import (
	"context"
	"io"
	"os"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"brewbot/backend/internal/audio"
	"brewbot/backend/internal/observability"
	"brewbot/backend/internal/session"
	"brewbot/backend/pkg/errors"
	"brewbot/backend/pkg/logger"
)

// guildVoice adapts *discordgo.VoiceConnection to the session's
// VoiceHandle and the audio pipeline's VoiceSink
type guildVoice struct {
	vc      *discordgo.VoiceConnection
	metrics *observability.Metrics
}

func (g *guildVoice) Disconnect() error {
	g.metrics.VoiceConnected(-1)
	return g.vc.Disconnect()
}

func (g *guildVoice) Speaking(b bool) error {
	return g.vc.Speaking(b)
}

// Frames returns the opus packet channel; discordgo paces the frames
// onto the UDP connection itself
func (g *guildVoice) Frames() chan<- []byte {
	return g.vc.OpusSend
}

// Player feeds synthesized audio into the guild's live voice connection.
// It is the delivery collaborator of the turn orchestrator.
type Player struct {
	session  *session.Manager
	pipeline *audio.Pipeline
	logger   *zap.Logger
}

func NewPlayer(mgr *session.Manager, pipeline *audio.Pipeline) *Player {
	return &Player{
		session:  mgr,
		pipeline: pipeline,
		logger:   logger.Get(),
	}
}

// Deliver plays src in the guild's voice channel and reschedules the
// inactivity disconnect once playback goes idle
func (p *Player) Deliver(ctx context.Context, guildID string, src io.Reader) error {
	sink, err := p.sink(guildID)
	if err != nil {
		return err
	}
	if err := p.pipeline.Deliver(ctx, src, sink); err != nil {
		return err
	}
	p.session.ResetIdleTimer(guildID)
	return nil
}

// Replay re-plays the durable copy of the last reply
func (p *Player) Replay(ctx context.Context, guildID string) error {
	// No recording means no voice side effects, so the clip check runs
	// before the connection lookup
	if _, err := os.Stat(p.pipeline.ClipPath()); os.IsNotExist(err) {
		return errors.NotFound("no recorded reply to play")
	}
	sink, err := p.sink(guildID)
	if err != nil {
		return err
	}
	if err := p.pipeline.Replay(ctx, sink); err != nil {
		return err
	}
	p.session.ResetIdleTimer(guildID)
	return nil
}

// PlayClip plays a stored clip such as the join greeting
func (p *Player) PlayClip(ctx context.Context, guildID, path string) error {
	sink, err := p.sink(guildID)
	if err != nil {
		return err
	}
	if err := p.pipeline.PlayFile(ctx, path, sink); err != nil {
		return err
	}
	p.session.ResetIdleTimer(guildID)
	return nil
}

func (p *Player) sink(guildID string) (audio.VoiceSink, error) {
	conn, ok := p.session.Connection(guildID)
	if !ok {
		return nil, errors.PlaybackFailed("no live voice connection for guild", nil)
	}
	sink, ok := conn.(audio.VoiceSink)
	if !ok {
		return nil, errors.PlaybackFailed("voice connection does not support playback", nil)
	}
	return sink, nil
}
