package pkg

import (
	"io"
	"os"
	"testing"
)

func TestLoggerOutputsMatchLevel(t *testing.T) {
	defer SetLogLevel(LogLevelErrOnly)

	if GetLogLevel() != LogLevelErrOnly {
		t.Fatalf("Expected default level %d, got %d", LogLevelErrOnly, GetLogLevel())
	}
	if info_logger.Writer() != io.Discard || debug_logger.Writer() != io.Discard {
		t.Error("Expected info and debug discarded at the default level")
	}
	if error_logger.Writer() != os.Stderr {
		t.Error("Expected errors on stderr at the default level")
	}

	SetLogLevel(LogLevelDebug)
	if debug_logger.Writer() != os.Stdout {
		t.Error("Expected debug on stdout at debug level")
	}

	SetLogLevel(LogLevelNone)
	if error_logger.Writer() != io.Discard {
		t.Error("Expected errors discarded at level none")
	}
}
