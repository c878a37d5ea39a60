package contentblocking

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/AdguardTeam/golibs/log"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)

	os.Exit(m.Run())
}

func stringsReader(s string) *strings.Reader {
	return strings.NewReader(s)
}
