package chat

import (
	"fmt"
	"os/exec"
	"strings"

	"ambuassist/internal/logging"
)

// ExecNavigator opens web-application routes with an external command
// (xdg-open, open, a browser binary).
type ExecNavigator struct {
	baseURL string
	argv    []string
}

// NewExecNavigator returns a navigator for routes under baseURL. An empty
// command makes Open log only.
func NewExecNavigator(baseURL, command string) *ExecNavigator {
	return &ExecNavigator{
		baseURL: strings.TrimRight(baseURL, "/"),
		argv:    strings.Fields(command),
	}
}

// URL resolves target against the base URL. Absolute targets pass through.
func (n *ExecNavigator) URL(target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") || n.baseURL == "" {
		return target
	}
	return n.baseURL + "/" + strings.TrimLeft(target, "/")
}

// Open launches the command on the resolved URL without waiting for it.
func (n *ExecNavigator) Open(target string) error {
	url := n.URL(target)
	if len(n.argv) == 0 {
		logging.UI("navigation to %s skipped: no open command", url)
		return nil
	}
	cmd := exec.Command(n.argv[0], append(n.argv[1:], url)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	go func() { _ = cmd.Wait() }()
	logging.UI("opened %s with %s", url, n.argv[0])
	return nil
}
