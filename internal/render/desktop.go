package render

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
)

// DesktopNotifier displays prompts through the notify-send command. On
// desktops permission is implicit: granted when the binary is present,
// denied otherwise.
type DesktopNotifier struct {
	path string

	mu      sync.Mutex
	checked bool
	found   bool
}

// NewDesktopNotifier creates a notifier using the given notify-send path,
// or "notify-send" from PATH when empty.
func NewDesktopNotifier(path string) *DesktopNotifier {
	if path == "" {
		path = "notify-send"
	}
	return &DesktopNotifier{path: path}
}

func (d *DesktopNotifier) Permission() Permission {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.checked {
		return PermissionDefault
	}
	if d.found {
		return PermissionGranted
	}
	return PermissionDenied
}

func (d *DesktopNotifier) RequestPermission(ctx context.Context) (Permission, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.checked {
		_, err := exec.LookPath(d.path)
		d.checked = true
		d.found = err == nil
	}
	if d.found {
		return PermissionGranted, nil
	}
	return PermissionDenied, nil
}

func (d *DesktopNotifier) Show(ctx context.Context, p Prompt) error {
	args := []string{"--app-name=OakLedger"}
	if p.Icon != "" {
		args = append(args, "--icon="+p.Icon)
	}
	if p.RequireInteraction {
		args = append(args, "--urgency=critical")
	}
	// notify-send replaces by synchronous hint rather than tag
	args = append(args, "--hint=string:x-canonical-private-synchronous:"+p.Tag)
	args = append(args, p.Title, p.Body)

	if err := exec.CommandContext(ctx, d.path, args...).Run(); err != nil {
		return fmt.Errorf("notify-send: %w", err)
	}
	return nil
}

// Close is a no-op: notify-send offers no handle to dismiss a prompt, and
// replacement via the synchronous hint covers the repeat-record case.
func (d *DesktopNotifier) Close(tag string) {}
