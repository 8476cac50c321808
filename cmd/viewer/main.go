// Command viewer joins a room, runs the scene engine headless and logs every
// frame that differs from the previous one.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"showroom/internal/client"
	"showroom/internal/config"
	"showroom/internal/logging"
	"showroom/internal/scene"
	"showroom/internal/session"
)

func main() {
	cfg, err := config.LoadViewer()
	if err != nil {
		logging.New("info", "console", "showroom-viewer").Fatal("load config", zap.Error(err))
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, "showroom-viewer")
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		var rej *session.RejectedError
		if errors.As(err, &rej) {
			logger.Warn("returned to room list", zap.String("room_id", rej.RoomID), zap.String("reason", rej.Reason))
			os.Exit(2)
		}
		logger.Fatal("viewer stopped", zap.Error(err))
	}
}

// errSessionLost ends the viewer when the server reclaimed its slot.
var errSessionLost = errors.New("room session lost")

func run(ctx context.Context, cfg config.Viewer, logger *zap.Logger) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	api := client.New(client.Options{
		BaseURL: cfg.ServerURL,
		Timeout: cfg.RequestTimeout,
	}, logger.Named("client"))

	redirected := make(chan struct{})
	sessions := session.NewManager(api, session.Options{
		RedirectDelay: cfg.RedirectDelay,
		RenewInterval: cfg.RenewInterval,
		OnRejected: func(rej *session.RejectedError) {
			logger.Warn("cannot enter room", zap.String("room_id", rej.RoomID), zap.String("reason", rej.Reason))
		},
		OnRedirect: func(string) { close(redirected) },
		OnLost: func(s session.Session, err error) {
			cancel(fmt.Errorf("%w: %s: %w", errSessionLost, s.RoomID, err))
		},
	}, logger.Named("session"))

	err := sessions.Scope(ctx, cfg.RoomID, cfg.UserID, func(ctx context.Context, s session.Session) error {
		logger.Info("entered room",
			zap.String("room_id", s.RoomID),
			zap.String("session_id", s.ID),
			zap.Int("occupancy", s.Occupancy),
		)
		view, err := scene.NewView(scene.ViewConfig{
			RoomID:        cfg.RoomID,
			UserID:        cfg.UserID,
			Camera:        scene.DefaultCamera(),
			Entrance:      scene.DefaultEntrance(),
			FrameInterval: cfg.FrameInterval,
		}, api, newFrameLogger(logger.Named("frames")), logger.Named("scene"))
		if err != nil {
			return err
		}
		if err := view.Run(ctx); err != nil {
			return err
		}
		if cause := context.Cause(ctx); errors.Is(cause, errSessionLost) {
			return cause
		}
		return nil
	})

	var rej *session.RejectedError
	if errors.As(err, &rej) {
		// Stay on the rejection until the redirect fires.
		select {
		case <-redirected:
		case <-ctx.Done():
		}
	}
	return err
}

// frameLogger is a Renderer that logs a frame only when its visible state
// changes.
type frameLogger struct {
	logger *zap.Logger
	last   string
}

func newFrameLogger(logger *zap.Logger) *frameLogger {
	return &frameLogger{logger: logger}
}

func (l *frameLogger) Render(f scene.Frame) {
	summary := summarize(f)
	if summary == l.last {
		return
	}
	l.last = summary
	l.logger.Info("frame",
		zap.String("room_id", f.RoomID),
		zap.Int("occupancy", f.Occupancy),
		zap.Bool("shared", f.Shared()),
		zap.String("objects", summary),
	)
}

// summarize renders a frame as canonical positions, rounded so sub-unit
// animation steps do not count as changes until they settle.
func summarize(f scene.Frame) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d/%d", f.Occupancy, f.Capacity)
	for _, it := range f.Items {
		pos := scene.ToCanonicalSpace(it.Position).Round()
		state := "placed"
		switch {
		case it.Dragging:
			state = "dragging"
		case it.Entering:
			state = "entering"
		}
		fmt.Fprintf(&b, " %s@%.0f,%.0f:%s", it.Name, pos.X(), pos.Y(), state)
	}
	return b.String()
}
