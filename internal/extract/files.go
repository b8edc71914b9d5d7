package extract

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf8"
)

// writeFile writes content to target, creating parent directories.
func writeFile(target string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return os.WriteFile(target, content, 0o644)
}

// BackupFile copies an existing file to "<path>.backup", or the first free
// "<path>.backupN". It returns the backup path, or "" when path does not
// exist.
func BackupFile(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	defer func() { _ = src.Close() }()

	backup := path + ".backup"
	for n := 1; ; n++ {
		if _, err := os.Lstat(backup); os.IsNotExist(err) {
			break
		}
		backup = path + ".backup" + strconv.Itoa(n)
	}

	dst, err := os.OpenFile(backup, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}

	if info, err := src.Stat(); err == nil {
		_ = os.Chtimes(backup, info.ModTime(), info.ModTime())
	}
	return backup, nil
}

// DirSize returns the total size in bytes of the regular files under path.
// Unreadable entries are skipped.
func DirSize(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total
}

// FormatSize renders a byte count with one decimal and a binary unit.
//
//	512     → "512.0 B"
//	1536    → "1.5 KB"
//	5 << 40 → "5.0 TB"
func FormatSize(size int64) string {
	value := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if value < 1024 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
		value /= 1024
	}
	return fmt.Sprintf("%.1f TB", value)
}

// binarySampleSize is how many leading bytes IsBinary inspects.
const binarySampleSize = 1024

// IsBinary guesses whether content is binary: a NUL byte or invalid UTF-8
// within the first 1024 bytes.
func IsBinary(content []byte) bool {
	if len(content) == 0 {
		return false
	}
	sample := content
	if len(sample) > binarySampleSize {
		// A multi-byte rune cut at the sample boundary is not evidence of
		// binary content.
		sample = trimPartialRune(sample[:binarySampleSize])
	}
	for _, b := range sample {
		if b == 0 {
			return true
		}
	}
	return !utf8.Valid(sample)
}

// trimPartialRune drops an incomplete UTF-8 sequence at the end of b.
func trimPartialRune(b []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		start := len(b) - i
		if utf8.RuneStart(b[start]) {
			if !utf8.FullRune(b[start:]) {
				return b[:start]
			}
			break
		}
	}
	return b
}
