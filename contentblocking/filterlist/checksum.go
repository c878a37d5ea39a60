package filterlist

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"io"
	"strings"
)

// checksumPrefix marks the metadata comment carrying the declared checksum.
const checksumPrefix = "! Checksum:"

// Checksum computes the checksum of a canonical subscription body: the MD5
// digest, base64-encoded, with the two trailing padding characters removed.
func Checksum(data []byte) string {
	sum := md5.Sum(data)
	encoded := base64.StdEncoding.EncodeToString(sum[:])

	return encoded[:len(encoded)-2]
}

// NormalizeBody reads a downloaded subscription and produces its canonical
// byte representation: the header line followed by every non-blank line,
// separated by single newlines, with the checksum comment removed.  The
// declared checksum, if any, is returned separately.
func NormalizeBody(r io.Reader) (data []byte, checksum string, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !sc.Scan() || !IsAdblockHeader(sc.Text()) {
		if err = sc.Err(); err != nil {
			return nil, "", err
		}

		return nil, "", ErrInvalidHeader
	}

	var buf bytes.Buffer
	buf.WriteString(sc.Text())

	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}

		if checksum == "" && strings.HasPrefix(line, checksumPrefix) {
			checksum = strings.TrimSpace(line[len(checksumPrefix):])

			continue
		}

		buf.WriteByte('\n')
		buf.WriteString(line)
	}

	if err = sc.Err(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), checksum, nil
}
