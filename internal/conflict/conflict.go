// Package conflict picks the winning side for a file that changed on both
// ends of a two-way connection.
package conflict

import (
	"time"

	"github.com/lukisch/ProSync/internal/models"
)

// ModTimeTolerance is the window within which two modification times count
// as equal. FAT volumes and SMB mounts round mtimes, so exact comparison
// would flag unchanged files forever.
const ModTimeTolerance = time.Second

// Newer reports whether a was modified strictly later than b, beyond the
// shared tolerance.
func Newer(a, b models.FileEntry) bool {
	return a.ModTime.Sub(b.ModTime) > ModTimeTolerance
}

// Resolve picks the winner between a source and a target entry under the
// given policy. For newest_wins the strictly greater modification time
// wins; a tie goes to source, deterministically.
func Resolve(src, dst models.FileEntry, policy models.ConflictPolicy) models.Winner {
	switch policy {
	case models.PolicyTarget:
		return models.WinnerTarget
	case models.PolicyNewest:
		if Newer(dst, src) {
			return models.WinnerTarget
		}
		return models.WinnerSource
	default:
		return models.WinnerSource
	}
}
