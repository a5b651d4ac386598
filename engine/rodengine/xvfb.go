package rodengine

import (
	"fmt"
	"os/exec"
	"time"
)

// startXvfb launches a virtual framebuffer matching the capture viewport.
// Headful Chrome needs a display even without a window manager.
func (m *Manager) startXvfb() error {
	if m.xvfb != nil {
		return nil
	}
	cmd := exec.Command("Xvfb", m.cfg.XvfbDisplay, "-screen", "0", "1920x1080x24", "-ac")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting Xvfb on %s: %w", m.cfg.XvfbDisplay, err)
	}
	m.xvfb = cmd

	// Xvfb has no readiness signal; give it a moment to create the display.
	time.Sleep(500 * time.Millisecond)
	return nil
}

func (m *Manager) stopXvfb() {
	if m.xvfb == nil {
		return
	}
	if m.xvfb.Process != nil {
		_ = m.xvfb.Process.Kill()
		_, _ = m.xvfb.Process.Wait()
	}
	m.xvfb = nil
}
