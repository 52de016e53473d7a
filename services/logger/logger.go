package logsvc

import (
	"log"
	"os"

	"github.com/trezcool/elimu/core"
)

// New returns the logger selected by conf.Logger.
func New(prefix string, conf *core.Config) (core.Logger, error) {
	switch conf.Logger {
	case "zap":
		return NewZapLogger(conf)
	case "nop":
		return NewNopLogger(), nil
	}
	std := log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return NewRollbarLogger(std, conf), nil
}
