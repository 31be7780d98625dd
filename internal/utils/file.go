package utils

import (
	"crypto/md5"
	"fmt"
	"io"
	"os"
)

// FileHash calculates the MD5 hash of a file
func FileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

// BytesHash calculates the MD5 hash of a byte slice
func BytesHash(data []byte) string {
	return fmt.Sprintf("%x", md5.Sum(data))
}

// FileETag returns the MD5 of a file in the form S3 reports a single-part ETag: the hex
// digest wrapped in double quotes.
func FileETag(filePath string) (string, error) {
	sum, err := FileHash(filePath)
	if err != nil {
		return "", err
	}
	return QuoteETag(sum), nil
}

// QuoteETag wraps a hex digest in double quotes
func QuoteETag(sum string) string {
	return `"` + sum + `"`
}
