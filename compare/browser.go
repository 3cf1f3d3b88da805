// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package compare

import (
	"os/exec"
	"runtime"

	"github.com/pkg/errors"
)

// OpenBrowser opens url in the user's default browser with xdg-open on Linux,
// open on macOS and cmd start on Windows.
//
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return errors.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}
