package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"intentdeck/audio"
	"intentdeck/beep"
	"intentdeck/config"
	"intentdeck/display"
	"intentdeck/log"
	"intentdeck/recorder"
)

const waitTimeout = 30 * time.Second

// lockedWriter serializes lines written from recorder and display
// callbacks with the command loop.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format, args...)
}

// runTestMode drives the app from line commands on in, with a fake
// microphone replaying wavPath (silence when empty):
//
//	START | STOP | ANALYZE | RESET | UPLOAD <path> | STATE
//	WAIT | WAIT_INTENT | SLEEP <ms> | QUIT
func runTestMode(cfg *config.Config, wavPath, fakeIntent string, in io.Reader, out io.Writer) int {
	beep.Disable()

	var fake *audio.FakeContext
	if wavPath != "" {
		var err error
		if fake, err = audio.LoadFakeContext(wavPath, true); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
			return 1
		}
	} else {
		fake = audio.NewFakeContext(nil, true)
	}

	w := &lockedWriter{w: out}
	a := newApp(appConfig{
		cfg:        cfg,
		audio:      fake,
		classifier: newClassifier(cfg, fakeIntent),
		onSnapshot: func(s recorder.Snapshot) {
			w.printf("state=%s countdown=%d payload=%t\n", s.State, s.Countdown, s.HasPayload)
		},
		onView: func(v display.View) {
			if v.Status == display.Showing {
				w.printf("display=%s\n", v.Result.Intent)
			} else {
				w.printf("display=%s\n", v.Status)
			}
		},
	})
	defer a.close()

	var lastIntent string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "":
		case "START":
			if err := a.rec.Start(); err != nil {
				w.printf("error=%v\n", err)
			}
		case "STOP":
			a.rec.Stop()
		case "ANALYZE":
			r, err := a.rec.Analyze(context.Background())
			if err != nil {
				w.printf("error=%v\n", err)
			}
			if r.Intent != "" {
				lastIntent = r.Intent
				w.printf("intent=%s\n", r.Intent)
			}
		case "RESET":
			a.rec.Reset()
		case "UPLOAD":
			if err := a.uploadFile(arg); err != nil {
				w.printf("error=%v\n", err)
			}
		case "STATE":
			s := a.rec.Snapshot()
			w.printf("state=%s countdown=%d payload=%t url=%s intent=%s\n", s.State, s.Countdown, s.HasPayload, s.URL, s.Intent)
		case "WAIT":
			if !waitFor(func() bool {
				st := a.rec.Snapshot().State
				return st != recorder.Recording && st != recorder.Processing
			}) {
				w.printf("error=timeout waiting for recorder\n")
			}
		case "WAIT_INTENT":
			if !waitFor(func() bool {
				v := a.disp.View()
				return v.Status == display.Showing && v.Result.Intent == lastIntent
			}) {
				w.printf("error=timeout waiting for display\n")
			}
		case "SLEEP":
			if ms, err := strconv.Atoi(arg); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		case "QUIT":
			log.Info("test mode quit")
			return 0
		default:
			w.printf("error=unknown command %q\n", cmd)
		}
	}
	return 0
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(10 * time.Millisecond)
	}
	return true
}
