//go:build unix

package tickets

import "os"

// restrictPermissions leaves only the owner read bit set. If that fails it
// still tries to strip group and other access.
func restrictPermissions(path string) error {
	err := os.Chmod(path, 0o400)
	if err == nil {
		return nil
	}
	info, serr := os.Stat(path)
	if serr != nil {
		return err
	}
	if ferr := os.Chmod(path, info.Mode().Perm()&^0o077); ferr != nil {
		return err
	}
	return nil
}
