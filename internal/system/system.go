package system

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// bytesPerWorker is the memory budget assumed for one decoding worker. A
// full-size JPEG decodes to tens of megabytes before it is sampled down.
const bytesPerWorker = 64 << 20

// ImageExtensions lists the file suffixes accepted as material images.
var ImageExtensions = []string{".jpg", ".jpeg", ".png"}

// InitResourceLimits raises the open file limit; large material folders are
// decoded concurrently.
func InitResourceLimits(l *zap.Logger) {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		l.Warn("get file limit", zap.Error(err))
		return
	}

	if rLimit.Cur >= 2048 {
		return
	}
	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		l.Warn("set file limit", zap.Error(err))
	} else {
		l.Debug("file limit raised", zap.Uint64("limit", uint64(rLimit.Cur)))
	}
}

// DefaultWorkers returns the number of logical CPUs, lowered when available
// memory cannot hold that many decoded images at once. Never less than one.
func DefaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		n = runtime.NumCPU()
	}

	vm, err := mem.VirtualMemory()
	if err == nil && vm.Available > 0 {
		byMem := int(vm.Available / bytesPerWorker)
		if byMem < n {
			n = byMem
		}
	}

	if n < 1 {
		n = 1
	}
	return n
}

// IsImageFile reports whether name has one of ImageExtensions.
func IsImageFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range ImageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// FindLatestImage returns the most recently modified image in dir.
func FindLatestImage(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !IsImageFile(f.Name()) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no images found in %s", dir)
	}

	return latestFile, nil
}
