package term

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"

	"github.com/backmassage/dashpack/internal/config"
)

func TestConfigure(t *testing.T) {
	saved := color.NoColor
	t.Cleanup(func() { color.NoColor = saved })

	Configure(config.ColorAlways)
	if !Enabled() {
		t.Error("ColorAlways: colors should be enabled")
	}
	Configure(config.ColorNever)
	if Enabled() {
		t.Error("ColorNever: colors should be disabled")
	}
}

func TestConfigureAutoHonorsNoColor(t *testing.T) {
	saved := color.NoColor
	t.Cleanup(func() { color.NoColor = saved })

	t.Setenv("NO_COLOR", "1")
	Configure(config.ColorAuto)
	if Enabled() {
		t.Error("NO_COLOR set: colors should be disabled")
	}
}

func TestIsTerminalRegularFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.log"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if IsTerminal(f) {
		t.Error("regular file reported as terminal")
	}
	if IsTerminal(nil) {
		t.Error("nil file reported as terminal")
	}
}
