//go:build !unix && !windows

package tickets

import "os"

func restrictPermissions(path string) error {
	return os.Chmod(path, 0o400)
}
