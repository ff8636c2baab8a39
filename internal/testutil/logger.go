package testutil

import (
	"io"

	"github.com/ntcogk/auth-server/internal/logger"
)

func MakeNoopLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard, 0, "text")
}
