package main

import (
	"context"

	"intentdeck/audio"
	"intentdeck/blob"
	"intentdeck/config"
	"intentdeck/display"
	"intentdeck/intent"
	"intentdeck/log"
	"intentdeck/recorder"
	"intentdeck/visualizer"
)

type appConfig struct {
	cfg        *config.Config
	audio      audio.Context
	device     *audio.DeviceInfo
	classifier intent.Classifier
	player     audio.Player // nil when muted
	onSnapshot func(recorder.Snapshot)
	onView     func(display.View)
}

// app wires the recorder, visualizer and intent display around one bus.
// The front end (TUI or headless) only sees snapshots and display views.
type app struct {
	cfg    *config.Config
	device *audio.DeviceInfo
	rec    *recorder.Recorder
	vis    *visualizer.Visualizer
	disp   *display.Display
	bus    *intent.Bus
	player audio.Player

	stop  context.CancelFunc
	unsub func()
}

func newApp(c appConfig) *app {
	blobs := blob.NewStore()
	bus := intent.NewBus()
	a := &app{
		cfg:    c.cfg,
		device: c.device,
		bus:    bus,
		player: c.player,
		vis:    visualizer.New(blobs, c.player),
		disp:   display.New(c.cfg.AnalyzeDelay, c.onView),
	}
	a.rec = recorder.New(recorder.Config{
		Audio:        c.audio,
		Device:       c.device,
		Blobs:        blobs,
		Classifier:   c.classifier,
		Bus:          bus,
		Sink:         newFeedback(c.onSnapshot),
		Format:       c.cfg.Format,
		Countdown:    c.cfg.Countdown,
		TickInterval: c.cfg.Tick,
		UploadLimit:  c.cfg.UploadLimit(),
	})

	ch, unsub := bus.Subscribe()
	ctx, stop := context.WithCancel(context.Background())
	a.stop, a.unsub = stop, unsub
	go a.disp.Run(ctx, ch)
	return a
}

func (a *app) uploadFile(path string) error {
	name, data, err := readUpload(path)
	if err != nil {
		log.Warnf("upload rejected: %v", err)
		return err
	}
	return a.rec.Upload(name, data)
}

func (a *app) close() {
	a.stop()
	a.unsub()
	a.disp.Close()
	a.vis.Close()
	a.rec.Close()
	if a.player != nil {
		a.player.Close()
	}
}
