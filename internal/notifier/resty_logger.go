package notifier

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// restyLogger routes resty's internal log lines into zap with the bot token
// removed.
type restyLogger struct {
	logger *zap.Logger
	secret string
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(l.clean(format, v...))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(l.clean(format, v...))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(l.clean(format, v...))
}

func (l restyLogger) clean(format string, v ...interface{}) string {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	if l.secret == "" {
		return msg
	}
	return strings.ReplaceAll(msg, l.secret, "<redacted>")
}
