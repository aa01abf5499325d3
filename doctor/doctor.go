package doctor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"tonegen/audio"
	"tonegen/driver"
	"tonegen/log"
	"tonegen/shutdown"
	"tonegen/synth"
)

const toneSeconds = 1

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
// An interrupt fails the current check and still tears the device down.
func Run(backend string) int {
	resetTerminal()
	ctx, stop := shutdown.Context(context.Background())
	defer stop()
	return run(ctx, os.Stdin, backend)
}

func run(ctx context.Context, in io.Reader, backend string) int {
	input := bufio.NewReader(in)

	fmt.Println("tonegen doctor - interactive audio diagnostics")
	fmt.Println("==============================================")

	allPass := true

	drv, ok := checkBackend(backend)
	if !ok {
		allPass = false
	}

	var sys *audio.System
	if allPass {
		sys, ok = checkBringUp(drv)
		if !ok {
			allPass = false
		}
	}
	if sys != nil {
		defer sys.Close()
	}

	if allPass && !checkTone(ctx, input, sys) {
		allPass = false
	}

	fmt.Println()
	if ctx.Err() != nil {
		fmt.Println("Interrupted")
	}
	if allPass {
		fmt.Println("All checks passed!")
	} else {
		fmt.Println("Some checks failed. See details above.")
	}

	if allPass {
		return 0
	}
	return 1
}

func checkBackend(name string) (driver.Driver, bool) {
	fmt.Println()
	fmt.Println("[1/3] Audio backend and device enumeration")

	b, err := driver.Lookup(name)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return nil, false
	}
	fmt.Printf("  Backend: %s\n", b.Name())

	drv := driver.New(b, driver.WithLogger(log.Logger()))
	if !drv.ExtensionPresent(driver.EnumerationExt) {
		fmt.Println("  PASS: backend up (device enumeration not supported)")
		return drv, true
	}

	names, err := audio.ListDevices(drv)
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		return nil, false
	}
	if len(names) == 0 {
		fmt.Println("  FAIL: no output devices found")
		return nil, false
	}
	for _, n := range names {
		fmt.Printf("    %s\n", n)
	}
	fmt.Printf("  PASS: %d output device(s) found\n", len(names))
	return drv, true
}

func checkBringUp(drv driver.Driver) (*audio.System, bool) {
	fmt.Println()
	fmt.Println("[2/3] Device and context bring-up")

	sys := audio.NewSystem(drv, audio.WithLogger(log.Logger()))
	if err := sys.Init(); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return nil, false
	}
	name := sys.ActiveDeviceName()
	if name == "" {
		name = "<default>"
	}
	fmt.Printf("  PASS: opened %s\n", name)
	if audio.IsBluetooth(name) {
		fmt.Println("  Note: Bluetooth output, the tone may start late")
	}
	return sys, true
}

// prompt prints msg and reads one line, giving up when ctx is done.
func prompt(ctx context.Context, r *bufio.Reader, msg string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Print(msg)
	line := make(chan string, 1)
	go func() {
		s, _ := r.ReadString('\n')
		line <- strings.TrimSpace(s)
	}()
	select {
	case <-ctx.Done():
		fmt.Println()
		return "", ctx.Err()
	case s := <-line:
		return s, nil
	}
}

func checkTone(ctx context.Context, input *bufio.Reader, sys *audio.System) bool {
	fmt.Println()
	fmt.Println("[3/3] Test tone")

	eng, err := synth.NewEngine(sys, synth.WithLogger(log.Logger()), synth.WithVolume(0.5))
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	defer eng.Close()

	if _, err := prompt(ctx, input, fmt.Sprintf("Press Enter to play a %d second 440 Hz tone...", toneSeconds)); err != nil {
		fmt.Println("  FAIL: interrupted")
		return false
	}

	if err := eng.Synthesize(440, toneSeconds); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	if err := eng.Play(); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	waitCtx, cancel := context.WithTimeout(ctx, toneSeconds*time.Second+4*time.Second)
	defer cancel()
	if err := eng.Wait(waitCtx); err != nil {
		eng.Stop()
		fmt.Printf("  FAIL: tone did not finish: %v\n", err)
		return false
	}

	confirm, err := prompt(ctx, input, "Did you hear the tone? [y/n]: ")
	if err != nil {
		fmt.Println("  FAIL: interrupted")
		return false
	}
	confirm = strings.ToLower(confirm)

	if confirm == "y" || confirm == "yes" {
		fmt.Println("  PASS: tone verified by user")
		return true
	}
	fmt.Println("  FAIL: tone not confirmed")
	return false
}
