package tray

import (
	"context"
	"fmt"
	"time"

	"lifelog/pulse-agent/internal/service"
	"lifelog/pulse-agent/internal/syncer"

	"github.com/getlantern/systray"
	"go.uber.org/zap"
)

// Tray is the system tray surface of the agent. It owns the process main
// loop while enabled: systray.Run blocks until Quit is chosen.
type Tray struct {
	collector *service.CollectorService
	engine    *syncer.Engine
	onQuit    func()
	logger    *zap.Logger
}

// New creates the tray controller. onQuit runs after the tray loop exits
// and is where the caller shuts the agent down.
func New(collector *service.CollectorService, engine *syncer.Engine, onQuit func(), logger *zap.Logger) *Tray {
	return &Tray{
		collector: collector,
		engine:    engine,
		onQuit:    onQuit,
		logger:    logger,
	}
}

// Run enters the tray main loop. Blocks until the user quits.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit asks the tray loop to exit, for shutdown paths that do not come
// from the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Pulse")
	systray.SetTooltip("Pulse telemetry agent")

	statusItem := systray.AddMenuItem("Tracking active", "Current tracking state")
	statusItem.Disable()
	systray.AddSeparator()

	pauseItem := systray.AddMenuItem("Pause tracking", "Suspend capture without quitting")
	syncItem := systray.AddMenuItem("Sync now", "Push queued activities immediately")
	systray.AddSeparator()
	quitItem := systray.AddMenuItem("Quit", "Stop the agent")

	go func() {
		refresh := time.NewTicker(5 * time.Second)
		defer refresh.Stop()

		for {
			select {
			case <-pauseItem.ClickedCh:
				if t.collector.Paused() {
					t.collector.Resume()
					pauseItem.SetTitle("Pause tracking")
				} else {
					t.collector.Pause()
					pauseItem.SetTitle("Resume tracking")
				}
				t.updateStatus(statusItem)

			case <-syncItem.ClickedCh:
				go t.syncNow()

			case <-refresh.C:
				t.updateStatus(statusItem)

			case <-quitItem.ClickedCh:
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	if t.onQuit != nil {
		t.onQuit()
	}
}

func (t *Tray) updateStatus(item *systray.MenuItem) {
	status := t.collector.Status()

	switch {
	case status.Paused:
		item.SetTitle("Tracking paused")
	case status.Unauthenticated:
		item.SetTitle("Sync suspended: sign in required")
	case status.Idle:
		item.SetTitle("Idle")
	case status.CurrentApp != "":
		item.SetTitle(fmt.Sprintf("Tracking: %s", status.CurrentApp))
	default:
		item.SetTitle("Tracking active")
	}
}

func (t *Tray) syncNow() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := t.engine.SyncNow(ctx)
	if err != nil {
		t.logger.Warn("Manual sync failed", zap.Error(err))
		return
	}
	t.logger.Info("Manual sync complete", zap.Int("count", count))
}
