package cachefx

import (
	"strings"

	"github.com/rs/zerolog"
	"go.uber.org/fx/fxevent"
)

// EventLogger writes fx lifecycle events to a zerolog logger.
type EventLogger struct {
	Logger zerolog.Logger
}

var _ fxevent.Logger = (*EventLogger)(nil)

// LogEvent logs an fx event. Failures are logged at error level, startup
// progress at debug.
func (l *EventLogger) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			l.Logger.Error().Err(e.Err).Str("callee", e.FunctionName).Msg("OnStart hook failed")
		}
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			l.Logger.Error().Err(e.Err).Str("callee", e.FunctionName).Msg("OnStop hook failed")
		}
	case *fxevent.Provided:
		if e.Err != nil {
			l.Logger.Error().Err(e.Err).Msg("Error providing constructor")
			return
		}
		l.Logger.Debug().
			Str("constructor", e.ConstructorName).
			Str("types", strings.Join(e.OutputTypeNames, ", ")).
			Str("module", e.ModuleName).
			Msg("Provided")
	case *fxevent.Invoked:
		if e.Err != nil {
			l.Logger.Error().Err(e.Err).Str("function", e.FunctionName).Msg("Invoke failed")
		}
	case *fxevent.Started:
		if e.Err != nil {
			l.Logger.Error().Err(e.Err).Msg("Start failed")
			return
		}
		l.Logger.Debug().Msg("Application started")
	case *fxevent.Stopped:
		if e.Err != nil {
			l.Logger.Error().Err(e.Err).Msg("Stop failed")
		}
	case *fxevent.RollingBack:
		l.Logger.Error().Err(e.StartErr).Msg("Start failed, rolling back")
	}
}
