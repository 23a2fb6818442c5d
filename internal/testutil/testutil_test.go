package testutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// recordingTB captures Skipf and Fatalf instead of stopping the test
type recordingTB struct {
	testing.TB
	skipped string
	fatal   string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Skipf(format string, args ...interface{}) {
	r.skipped = fmt.Sprintf(format, args...)
}

func (r *recordingTB) Fatalf(format string, args ...interface{}) {
	r.fatal = fmt.Sprintf(format, args...)
}

func TestSkipUnlessRequired_SkipsLocally(t *testing.T) {
	t.Setenv("REQUIRE_INTEGRATION", "")
	tb := &recordingTB{TB: t}

	SkipUnlessRequired(tb, "TEST_POSTGRES_DSN")

	assert.Contains(t, tb.skipped, "TEST_POSTGRES_DSN")
	assert.Empty(t, tb.fatal)
}

func TestSkipUnlessRequired_FailsWhenRequired(t *testing.T) {
	t.Setenv("REQUIRE_INTEGRATION", "1")
	tb := &recordingTB{TB: t}

	SkipUnlessRequired(tb, "TEST_REDIS_ADDR")

	assert.Contains(t, tb.fatal, "TEST_REDIS_ADDR")
	assert.Empty(t, tb.skipped)
}
