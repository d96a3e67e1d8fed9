package controllers

import (
	"hash/crc32"
	"os"
)

// Fingerprint is a whole-file digest used to tell content changes from spurious notifications.
type Fingerprint uint32

func fingerprintOf(content []byte) Fingerprint {
	return Fingerprint(crc32.ChecksumIEEE(content))
}

func readFingerprint(path string) (Fingerprint, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return fingerprintOf(content), nil
}
