package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"intentdeck/audio"
	"intentdeck/beep"
	"intentdeck/config"
	"intentdeck/display"
	"intentdeck/intent"
	"intentdeck/recorder"
	"intentdeck/visualizer"
)

func testConfig() *config.Config {
	return &config.Config{
		Endpoint:      "http://127.0.0.1:1/predict-intent/",
		Format:        "wav",
		Countdown:     3,
		Tick:          5 * time.Millisecond,
		AnalyzeDelay:  5 * time.Millisecond,
		UploadLimitMB: 10,
	}
}

func newTestModel(t *testing.T) tuiModel {
	t.Helper()
	beep.Disable()
	cfg := testConfig()
	cfg.Tick = time.Hour
	a := newApp(appConfig{
		cfg:        cfg,
		audio:      audio.NewFakeContext(make([]byte, 3200), false),
		classifier: intent.NewFake("activate_music_none", nil),
	})
	t.Cleanup(a.close)
	m := newTUIModel(a)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(tuiModel)
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTUIInitialView(t *testing.T) {
	m := newTestModel(t)
	msg := m.Init()()
	next, cmd := m.Update(msg)
	m = next.(tuiModel)
	if cmd != nil {
		t.Error("idle snapshot should not start a frame loop")
	}
	view := m.View()
	for _, want := range []string{"IDLE", "Recent activity", "Turn on the kitchen's light.", "Record or upload audio"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestTUIRecordingStartsFrameLoop(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(keys("r"))
	if cmd == nil {
		t.Fatal("r should return a command")
	}
	if res := cmd().(actionMsg); res.err != nil {
		t.Fatalf("record: %v", res.err)
	}

	next, cmd := m.Update(snapshotMsg(m.app.rec.Snapshot()))
	m = next.(tuiModel)
	if cmd == nil {
		t.Fatal("recording snapshot should schedule a frame")
	}
	if m.app.vis.Mode() != visualizer.Simulated {
		t.Errorf("mode = %v, want simulated", m.app.vis.Mode())
	}
	if !strings.Contains(m.View(), "REC 3") {
		t.Error("view missing countdown")
	}

	stale := m.app.vis.Token() - 1
	if _, cmd := m.Update(frameMsg{token: stale}); cmd != nil {
		t.Error("stale frame token should end its loop")
	}
	if _, cmd := m.Update(frameMsg{token: m.app.vis.Token()}); cmd == nil {
		t.Error("current frame token should reschedule")
	}

	_, cmd = m.Update(keys("x"))
	cmd()
	if st := m.app.rec.Snapshot().State; st != recorder.Idle {
		t.Errorf("after reset state = %v", st)
	}
}

func TestTUIDropsOlderSnapshot(t *testing.T) {
	m := newTestModel(t)
	next, _ := m.Update(snapshotMsg(recorder.Snapshot{Seq: 10, State: recorder.Ready}))
	m = next.(tuiModel)
	next, _ = m.Update(snapshotMsg(recorder.Snapshot{Seq: 9, State: recorder.Idle}))
	m = next.(tuiModel)
	if m.snap.State != recorder.Ready {
		t.Errorf("state = %v, want ready", m.snap.State)
	}
}

func TestTUIUploadPrompt(t *testing.T) {
	m := newTestModel(t)
	next, _ := m.Update(keys("u"))
	m = next.(tuiModel)
	if !m.prompting {
		t.Fatal("u should open the upload prompt")
	}
	for _, k := range []tea.KeyMsg{keys("notes"), {Type: tea.KeySpace}, keys("x.txt"), {Type: tea.KeyBackspace}, keys("t")} {
		next, _ = m.Update(k)
		m = next.(tuiModel)
	}
	if string(m.input) != "notes x.txt" {
		t.Fatalf("input = %q", string(m.input))
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(tuiModel)
	if m.prompting || cmd == nil {
		t.Fatal("enter should close the prompt and upload")
	}
	res := cmd().(actionMsg)
	if !errors.Is(res.err, errUnsupportedUpload) {
		t.Fatalf("upload err = %v", res.err)
	}
	next, _ = m.Update(res)
	m = next.(tuiModel)
	if !m.statusErr || !strings.Contains(m.View(), "upload:") {
		t.Error("upload failure should show on the status line")
	}
}

func TestTUIShowsIntent(t *testing.T) {
	m := newTestModel(t)
	next, _ := m.Update(displayMsg(display.View{Status: display.Analyzing}))
	m = next.(tuiModel)
	if !strings.Contains(m.View(), "Analyzing") {
		t.Error("view missing analyzing state")
	}
	next, _ = m.Update(displayMsg(display.View{
		Status: display.Showing,
		Result: intent.Recognition{Intent: "decrease_heat_bedroom", Entities: []intent.Entity{}},
	}))
	m = next.(tuiModel)
	view := m.View()
	if !strings.Contains(view, "decrease_heat_bedroom") || !strings.Contains(view, "decrease heat (bedroom)") {
		t.Errorf("view missing intent:\n%s", view)
	}
}

func TestTUIShowsFailedRecognition(t *testing.T) {
	m := newTestModel(t)
	next, _ := m.Update(displayMsg(display.View{
		Status: display.Showing,
		Result: intent.Recognition{
			Intent:   intent.ErrorPlaceholder,
			Failed:   true,
			Entities: []intent.Entity{{Type: "room", Value: "attic"}},
		},
	}))
	view := next.(tuiModel).View()
	if !strings.Contains(view, intent.ErrorPlaceholder) {
		t.Fatalf("view missing error placeholder:\n%s", view)
	}
	if strings.Contains(view, intent.Glyph(intent.ErrorPlaceholder)+" "+intent.ErrorPlaceholder) {
		t.Error("failed recognition rendered with a glyph")
	}
	if strings.Contains(view, "room: attic") {
		t.Error("failed recognition rendered entities")
	}
}

func TestTUIIgnoresStaleAnalyze(t *testing.T) {
	m := newTestModel(t)
	next, _ := m.Update(actionMsg{action: "analyze", err: recorder.ErrStale})
	if next.(tuiModel).status != "" {
		t.Error("stale result should not reach the status line")
	}
}
