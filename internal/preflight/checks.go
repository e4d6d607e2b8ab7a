package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// CheckDirectoryAccess verifies that the directory exists and is readable,
// writable, and traversable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: describe(path, "error: does not exist")}
		}
		return Result{Name: name, Detail: describe(path, fmt.Sprintf("error: stat: %v", err))}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: describe(path, "error: is not a directory")}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: describe(path, fmt.Sprintf("error: insufficient permissions: %v", err))}
	}
	return Result{Name: name, Passed: true, Detail: describe(path, "read/write ok")}
}

// CheckFreeSpace verifies that the filesystem holding path has at least
// minGiB gibibytes available. A threshold of zero disables the check.
func CheckFreeSpace(name, path string, minGiB int) Result {
	if minGiB <= 0 {
		return Result{Name: name, Passed: true, Detail: "check disabled"}
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: describe(path, fmt.Sprintf("error: statfs: %v", err))}
	}

	available := stat.Bavail * uint64(stat.Bsize)
	required := uint64(minGiB) << 30
	detail := fmt.Sprintf("%.1f GiB available, %d GiB required", float64(available)/float64(1<<30), minGiB)
	if available < required {
		return Result{Name: name, Detail: describe(path, detail)}
	}
	return Result{Name: name, Passed: true, Detail: describe(path, detail)}
}
