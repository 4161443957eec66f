package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	cli "github.com/spf13/pflag"

	"intentdeck/audio"
	"intentdeck/beep"
	"intentdeck/config"
	"intentdeck/display"
	"intentdeck/doctor"
	"intentdeck/intent"
	"intentdeck/log"
	"intentdeck/recorder"
)

var version = "dev"

var uploadExts = []string{".wav", ".mp3", ".ogg", ".flac", ".m4a"}

var errUnsupportedUpload = errors.New("not an audio file (want wav, mp3, ogg, flac or m4a)")

type options struct {
	envFile    string
	logPath    string
	endpoint   string
	format     string
	device     string
	upload     string
	fakeIntent string
	test       bool
	doctor     bool
	mute       bool
	setup      bool
	version    bool
}

func parseFlags(args []string) (*options, *cli.FlagSet, error) {
	var o options
	fs := cli.NewFlagSet("intentdeck", cli.ContinueOnError)
	fs.StringVarP(&o.envFile, "env", "e", ".env", "Env file path")
	fs.StringVar(&o.logPath, "logpath", "", "Log directory (default: OS-specific location, use ./ for current dir)")
	fs.StringVar(&o.endpoint, "endpoint", "", "Intent endpoint URL (overrides INTENTDECK_ENDPOINT)")
	fs.StringVarP(&o.format, "format", "f", "", "Recording payload format: wav or flac")
	fs.StringVarP(&o.device, "device", "d", "", "Use the microphone whose name contains this text")
	fs.StringVarP(&o.upload, "upload", "u", "", "Load an audio file as the current recording")
	fs.StringVar(&o.fakeIntent, "fake-intent", "", "Answer every analysis with this label instead of calling the endpoint")
	fs.BoolVar(&o.test, "test", false, "Headless mode driven by commands on stdin")
	fs.BoolVar(&o.doctor, "doctor", false, "Run system diagnostics and exit")
	fs.BoolVarP(&o.mute, "mute", "m", false, "No beeps and no playback")
	fs.BoolVar(&o.setup, "setup", false, "Pick the microphone interactively")
	fs.BoolVarP(&o.version, "version", "v", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return &o, fs, nil
}

// loadConfig reads the environment and applies any flags the user set.
func loadConfig(o *options, fs *cli.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return nil, err
	}
	if fs.Changed("endpoint") {
		cfg.Endpoint = o.endpoint
	}
	if fs.Changed("format") {
		cfg.Format = o.format
	}
	if fs.Changed("device") {
		cfg.Device = o.device
	}
	if fs.Changed("mute") {
		cfg.Mute = o.mute
	}
	return cfg, cfg.Validate()
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, fs, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if opts.version {
		fmt.Printf("intentdeck %s\n", version)
		return 0
	}

	logPath, err := log.ResolveDir(opts.logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)
	if crashFile, err := log.OpenCrashFile(); err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	} else {
		fmt.Fprintf(os.Stderr, "Warning: could not open crash log: %v\n", err)
	}

	cfg, err := loadConfig(opts, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if opts.doctor {
		return doctor.Run(doctor.Options{
			Endpoint: cfg.Endpoint,
			Device:   cfg.Device,
			Format:   cfg.Format,
		})
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()
	log.Infof("intentdeck %s endpoint=%s format=%s", version, cfg.Endpoint, cfg.Format)

	if cfg.Mute {
		beep.Disable()
	}

	if opts.test {
		wavPath := ""
		if fs.NArg() > 0 {
			wavPath = fs.Arg(0)
		}
		return runTestMode(cfg, wavPath, opts.fakeIntent, os.Stdin, os.Stdout)
	}
	return runTUI(cfg, opts)
}

func newClassifier(cfg *config.Config, fakeIntent string) intent.Classifier {
	if fakeIntent != "" {
		return intent.NewFake(fakeIntent, nil)
	}
	c := intent.NewClient(cfg.Endpoint)
	go c.Warm()
	return c
}

func runTUI(cfg *config.Config, opts *options) int {
	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		return 1
	}
	defer actx.Close()

	var dev *audio.DeviceInfo
	if opts.setup && cfg.Device == "" {
		dev, err = audio.SelectDevice(actx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: device selection failed, using system default: %v\n", err)
			dev = nil
		}
	} else if dev, err = audio.FindDevice(actx, cfg.Device); err != nil {
		log.Warnf("device lookup failed: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: %v, using system default\n", err)
		dev = nil
	}

	var player audio.Player
	if !cfg.Mute {
		if player, err = audio.NewPlayer(); err != nil {
			log.Warnf("playback unavailable: %v", err)
			player = nil
		}
	}

	a := newApp(appConfig{
		cfg:        cfg,
		audio:      actx,
		device:     dev,
		classifier: newClassifier(cfg, opts.fakeIntent),
		player:     player,
		onSnapshot: func(s recorder.Snapshot) { tuiSend(snapshotMsg(s)) },
		onView:     func(v display.View) { tuiSend(displayMsg(v)) },
	})
	defer a.close()

	if opts.upload != "" {
		if err := a.uploadFile(opts.upload); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	p := tea.NewProgram(newTUIModel(a), tea.WithAltScreen())
	tuiMu.Lock()
	tuiProgram = p
	tuiMu.Unlock()

	_, err = p.Run()

	tuiMu.Lock()
	tuiProgram = nil
	tuiMu.Unlock()
	if err != nil {
		log.Errorf("TUI error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

// tuiSend forwards msg to the running program. It must not be called from
// inside the program's Update, since Send waits for the event loop.
func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// readUpload loads an audio file for Upload. Only the extension is checked;
// the bytes go to the endpoint unchanged.
func readUpload(path string) (string, []byte, error) {
	path = expandHome(strings.TrimSpace(path))
	if path == "" {
		return "", nil, errors.New("no file given")
	}
	name := filepath.Base(path)
	if !slices.Contains(uploadExts, strings.ToLower(filepath.Ext(name))) {
		return "", nil, fmt.Errorf("%s: %w", name, errUnsupportedUpload)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	return name, data, nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

func deviceLineText(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT!)"
		}
	}
	return "mic: " + name + suffix
}
