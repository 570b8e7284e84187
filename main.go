package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"

	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/audio"
	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/clipboard"
	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/config"
	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/encoder"
	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/log"
	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/recordings"
	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/session"
	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/shutdown"
	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/transcriber"
)

var version = "dev"

// uiNotifier bridges session events to the TUI and the desktop. It
// runs on the session's goroutines, so everything it does is
// non-blocking from the session's point of view.
type uiNotifier struct {
	program *tea.Program
	notify  bool
}

func (n *uiNotifier) StateChanged(from, to session.State) {
	n.program.Send(StateMsg{From: from, To: to})
}

func (n *uiNotifier) AudioLevel(rms float64) {
	n.program.Send(AudioLevelMsg{Level: rms})
}

func (n *uiNotifier) Completed(result *transcriber.Result, artifact *encoder.Artifact) {
	copied := false
	if result.Text != "" {
		if err := clipboard.Copy(result.Text); err != nil {
			log.Warnf("clipboard copy failed: %v", err)
		} else {
			copied = true
		}
	}
	if n.notify {
		body := result.Text
		if body == "" {
			body = "(no speech detected)"
		}
		if err := beeep.Notify("Transcription ready", truncate(body, 120), ""); err != nil {
			log.Warnf("desktop notification failed: %v", err)
		}
	}
	n.program.Send(CompletedMsg{
		Text:     result.Text,
		Path:     artifact.Path,
		Duration: artifact.Duration,
		Copied:   copied,
	})
}

func (n *uiNotifier) Failed(err error) {
	if n.notify {
		if nerr := beeep.Alert("Recording failed", truncate(err.Error(), 120), ""); nerr != nil {
			log.Warnf("desktop notification failed: %v", nerr)
		}
	}
	n.program.Send(FailedMsg{Err: err})
}

// truncate shortens notification text to n runes, never splitting a
// multi-byte character.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func deviceLineText(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT: quality may suffer)"
		}
	}
	return "mic: " + name + suffix
}

func backendLineText(engine transcriber.Engine, cfg config.Config) string {
	label := engine.Name()
	if cfg.Language != "" {
		label += " (" + cfg.Language + ")"
	}
	return fmt.Sprintf("[WAV %dHz | %s]", cfg.SampleRate, label)
}

func listRecordings(store *recordings.Store) int {
	entries, err := store.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(entries) == 0 {
		fmt.Println("No recordings in " + store.Dir())
		return 0
	}
	for _, e := range entries {
		fmt.Printf("%s  %6.1fs  %8d bytes  %s\n",
			e.ModTime.Format("2006-01-02 15:04:05"), e.Duration.Seconds(), e.Size, e.Name)
	}
	return 0
}

func run() int {
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	envFlag := flag.String("env", "", "Path to .env file with configuration")
	backendFlag := flag.String("backend", "", "Transcription backend: vosk or openai")
	langFlag := flag.String("lang", "", "Language code for transcription (e.g. en, es)")
	dirFlag := flag.String("dir", "", "Recordings directory (default: ~/Recordings)")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	listFlag := flag.Bool("list", false, "List saved recordings and exit")
	cleanupFlag := flag.Duration("cleanup", 0, "Delete recordings older than this (e.g. 720h) and exit")
	notifyFlag := flag.Bool("notify", true, "Show desktop notifications on completion and failure")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("voice-recorder %s\n", version)
		return 0
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	cfg, err := config.Load(*envFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if *deviceFlag != "" {
		cfg.Device = *deviceFlag
	}
	if *backendFlag != "" {
		cfg.Backend = *backendFlag
	}
	if *langFlag != "" {
		cfg.Language = *langFlag
	}
	if *dirFlag != "" {
		cfg.RecordingsDir = *dirFlag
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	store, err := recordings.Open(cfg.RecordingsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *listFlag {
		return listRecordings(store)
	}
	if *cleanupFlag > 0 {
		n, err := store.CleanupOlderThan(*cleanupFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("Removed %d recording(s) older than %s\n", n, *cleanupFlag)
		return 0
	}

	// Orphaned temp files from a previous crash.
	if n, err := store.CleanupTemp(); err == nil && n > 0 {
		log.Infof("removed %d stale temp file(s)", n)
	}

	ctx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		return 1
	}
	defer ctx.Close()

	var selectedDevice *audio.DeviceInfo
	if *setupFlag {
		selectedDevice, err = audio.SelectDevice(ctx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
		}
	} else if cfg.Device != "" {
		selectedDevice, err = audio.FindDevice(ctx, cfg.Device)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	engine, err := transcriber.New(transcriber.Config{
		Backend:    cfg.Backend,
		ModelPath:  cfg.ModelPath,
		APIKey:     cfg.APIKey,
		Language:   cfg.Language,
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	notifier := &uiNotifier{notify: *notifyFlag}
	sess := session.New(session.Config{
		Context:    ctx,
		Device:     selectedDevice,
		Engine:     engine,
		Store:      store,
		Notifier:   notifier,
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
	})

	deviceName := "system default"
	if selectedDevice != nil {
		deviceName = selectedDevice.Name
	}
	log.SessionStart(engine.Name(), deviceName)

	program := NewTUIProgram(sess, backendLineText(engine, cfg), deviceLineText(selectedDevice))
	notifier.program = program

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// A recording in flight when the user quits is finalized, not lost.
	if sess.State() == session.Recording {
		if err := sess.Stop(); err == nil {
			deadline := time.After(10 * time.Second)
			for sess.State() != session.Completed && sess.State() != session.Failed {
				select {
				case <-deadline:
					return 0
				case <-time.After(100 * time.Millisecond):
				}
			}
		}
	}
	return 0
}

func main() {
	os.Exit(run())
}
