//go:build windows

package tickets

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"
)

// ownerOnlyDACL grants full access to the file's owner and nobody else.
const ownerOnlyDACL = "D:P(A;;FA;;;OW)"

// restrictPermissions marks the file read-only and replaces its DACL with
// one that only admits the owner.
func restrictPermissions(path string) error {
	chmodErr := os.Chmod(path, 0o400)

	sd, err := windows.SecurityDescriptorFromString(ownerOnlyDACL)
	if err != nil {
		return errors.Join(chmodErr, err)
	}
	dacl, _, err := sd.DACL()
	if err != nil {
		return errors.Join(chmodErr, err)
	}
	err = windows.SetNamedSecurityInfo(path, windows.SE_FILE_OBJECT,
		windows.DACL_SECURITY_INFORMATION|windows.PROTECTED_DACL_SECURITY_INFORMATION,
		nil, nil, dacl, nil)
	return errors.Join(chmodErr, err)
}
