package storage

import (
	"os"
	"strings"

	"github.com/samber/lo"
)

// sqliteSidecars are the files SQLite keeps next to a database in WAL mode.
var sqliteSidecars = []string{"-wal", "-shm"}

// DiskUsageBytes returns the total size in bytes of the given files. Paths
// ending in ".db" also count their WAL and shared-memory sidecars. Empty and
// missing paths contribute 0; directories are rejected.
func DiskUsageBytes(paths ...string) (int64, error) {
	files := lo.FlatMap(lo.Compact(paths), func(p string, _ int) []string {
		if !strings.HasSuffix(p, ".db") {
			return []string{p}
		}
		return append([]string{p}, lo.Map(sqliteSidecars, func(s string, _ int) string { return p + s })...)
	})
	var total int64
	for _, p := range lo.Uniq(files) {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if info.IsDir() {
			return 0, &os.PathError{Op: "usage", Path: p, Err: os.ErrInvalid}
		}
		total += info.Size()
	}
	return total, nil
}
