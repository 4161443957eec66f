package doctor

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"intentdeck/shutdown"
)

// resetTerminal undoes a raw mode left behind by an interrupted device
// picker.
func resetTerminal() {
	if runtime.GOOS == "windows" {
		return
	}
	exec.Command("stty", "sane").Run()
}

func setupInterruptHandler() {
	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted")
		os.Exit(1)
	}()
}
