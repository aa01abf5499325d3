package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"tonegen/audio"
	"tonegen/config"
	"tonegen/doctor"
	"tonegen/driver"
	"tonegen/encoder"
	"tonegen/log"
	"tonegen/shutdown"
	"tonegen/synth"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configFlag := flag.String("config", "", "Config file (default: tonegen.yaml in the user config dir or current dir)")
	flag.String("backend", "", "Audio backend: malgo, pulse, oto or null (default: platform default)")
	flag.String("device", "", "Use named output device")
	setupFlag := flag.Bool("setup", false, "Select output device interactively")
	listFlag := flag.Bool("list", false, "List output devices and exit")
	flag.Float64("freq", 440, "Tone frequency in Hz")
	flag.Float64("duration", 1, "Tone duration in seconds")
	flag.String("waveform", "sine", "Waveform: sine, square, triangle or sawtooth")
	flag.Float64("volume", 0.8, "Peak level in (0, 1]")
	flag.String("export", "", "Also write the tone to a .wav or .flac file")
	flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	flag.String("loglevel", "info", "Log level: debug, info, warn, error")
	doctorFlag := flag.Bool("doctor", false, "Run audio diagnostics and exit")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("tonegen %s\n", version)
		return 0
	}

	cfg, err := config.Load(*configFlag, flag.CommandLine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Resolve log directory early
	logPath, err := log.ResolveDir(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if err := log.SetLevel(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()
	if cfg.File != "" {
		log.Info("config: " + cfg.File)
	}

	if *doctorFlag {
		return doctor.Run(cfg.Backend)
	}

	waveform, err := synth.ParseWaveform(cfg.Waveform)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	backend, err := driver.Lookup(cfg.Backend)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	drv := driver.New(backend, driver.WithLogger(log.Logger()))

	deviceName := cfg.Device
	if *setupFlag && deviceName == "" {
		deviceName, err = chooseDevice(drv)
		if errors.Is(err, audio.ErrSelectionCancelled) {
			return 0
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	sys := audio.NewSystem(drv,
		audio.WithLogger(log.Logger()),
		audio.WithDevice(deviceName),
	)
	if err := sys.Init(); err != nil {
		log.Errorf("audio init: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		return 1
	}
	defer sys.Close()

	if *listFlag {
		fmt.Print(renderDeviceList(backend.Name(), sys.Devices(), sys.ActiveDeviceName(), sys.HasEnumeration()))
		return 0
	}

	if deviceName != "" && sys.ActiveDeviceName() != deviceName {
		fmt.Fprintf(os.Stderr, "Warning: device %q unavailable, using the default output\n", deviceName)
	}
	if audio.IsBluetooth(sys.ActiveDeviceName()) {
		fmt.Fprintln(os.Stderr, "Warning: Bluetooth output, the start of the tone may be clipped")
	}
	log.SessionStart(backend.Name(), sys.ActiveDeviceName())

	eng, err := synth.NewEngine(sys,
		synth.WithLogger(log.Logger()),
		synth.WithVolume(cfg.Volume),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer eng.Close()

	played, err := playTone(eng, waveform, cfg)
	log.SessionEnd(played)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func chooseDevice(drv driver.Driver) (string, error) {
	names, err := audio.ListDevices(drv)
	if err != nil {
		return "", fmt.Errorf("listing devices: %w", err)
	}
	if names == nil {
		return "", fmt.Errorf("backend cannot list output devices")
	}
	return audio.SelectDevice(names)
}

// playTone renders the configured tone, optionally exports it, and plays it to
// the end or until a termination signal.
func playTone(eng *synth.Engine, waveform synth.Waveform, cfg *config.Config) (bool, error) {
	eng.SetWaveform(waveform)
	if err := eng.Synthesize(cfg.Frequency, cfg.Duration); err != nil {
		log.Errorf("synthesize: %v", err)
		return false, err
	}

	if cfg.Export != "" {
		if err := export(cfg.Export, eng.Samples(), eng.SampleRate()); err != nil {
			log.Errorf("export: %v", err)
			return false, err
		}
		fmt.Printf("Wrote %s\n", cfg.Export)
	}

	log.Playback(log.Tone{
		Waveform:   waveform.String(),
		Frequency:  cfg.Frequency,
		DurationS:  cfg.Duration,
		Samples:    len(eng.Samples()),
		SampleRate: eng.SampleRate(),
		Amplitude:  int(eng.Amplitude()),
	})
	if err := eng.Play(); err != nil {
		log.Errorf("play: %v", err)
		return false, err
	}

	ctx, stop := shutdown.Context(context.Background())
	defer stop()
	if err := eng.Wait(ctx); err != nil {
		eng.Stop()
		log.Warn("playback interrupted")
	}
	return true, nil
}

func export(path string, samples []int16, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := encoder.ForPath(path, f, sampleRate)
	if err != nil {
		os.Remove(path)
		return err
	}
	return encoder.WriteAll(enc, samples)
}
