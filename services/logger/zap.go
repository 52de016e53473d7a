package logsvc

import (
	"go.uber.org/zap"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

// ZapLogger writes structured logs through zap.
type ZapLogger struct {
	log *zap.Logger
}

var _ core.Logger = (*ZapLogger)(nil)

func NewZapLogger(conf *core.Config) (*ZapLogger, error) {
	var (
		zl  *zap.Logger
		err error
	)
	if conf.Debug {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return &ZapLogger{log: zl.With(zap.String("app", conf.AppName), zap.String("env", conf.Env))}, nil
}

// NewNopLogger discards everything.
func NewNopLogger() *ZapLogger {
	return &ZapLogger{log: zap.NewNop()}
}

func (l *ZapLogger) Sync() error {
	return l.log.Sync()
}

// expected fmt: error, map[string]interface{}, user.User
func (l *ZapLogger) fields(args []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(args))
	for _, arg := range args {
		switch a := arg.(type) {
		case nil:
		case error:
			fields = append(fields, zap.Error(a))
		case user.User:
			fields = append(fields, zap.Int("user_id", a.ID), zap.String("user_email", a.Email))
		case map[string]interface{}:
			for k, v := range a {
				fields = append(fields, zap.Any(k, v))
			}
		default:
			fields = append(fields, zap.Any("extra", a))
		}
	}
	return fields
}

func (l *ZapLogger) Debug(msg string, args ...interface{}) { l.log.Debug(msg, l.fields(args)...) }
func (l *ZapLogger) Info(msg string, args ...interface{})  { l.log.Info(msg, l.fields(args)...) }
func (l *ZapLogger) Warn(msg string, args ...interface{})  { l.log.Warn(msg, l.fields(args)...) }
func (l *ZapLogger) Error(msg string, args ...interface{}) { l.log.Error(msg, l.fields(args)...) }
func (l *ZapLogger) Fatal(msg string, args ...interface{}) { l.log.Fatal(msg, l.fields(args)...) }
