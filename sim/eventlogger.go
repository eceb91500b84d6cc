package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// EventLogger is a hook that prints every event that the engine fires. It is
// intended for debugging small runs.
type EventLogger struct {
	log *logrus.Logger
}

// NewEventLogger creates an EventLogger that writes to the given logger.
func NewEventLogger(log *logrus.Logger) *EventLogger {
	return &EventLogger{log: log}
}

// Func writes a line before each event is fired.
func (l *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(*Event)
	if !ok {
		return
	}

	handlerName := "-"
	if named, isNamed := evt.Handler().(Named); isNamed {
		handlerName = named.Name()
	}

	l.log.WithFields(logrus.Fields{
		"time":    evt.Time(),
		"epsilon": evt.Epsilon(),
		"handler": handlerName,
		"opcode":  fmt.Sprintf("0x%x", evt.Opcode),
	}).Trace("event")
}
