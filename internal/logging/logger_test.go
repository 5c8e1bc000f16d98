package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"gotest.tools/assert"
)

func TestNewLogger(t *testing.T) {
	assert.Equal(t, NewLogger("debug").Level, logrus.DebugLevel)
	assert.Equal(t, NewLogger("WARN").Level, logrus.WarnLevel)
	assert.Equal(t, NewLogger("chatty").Level, logrus.InfoLevel)
}
