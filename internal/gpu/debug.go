package gpu

import (
	"fmt"

	"go.uber.org/zap"
)

// Driver debug message types (KHR_debug).
const (
	DebugTypeError              uint32 = 0x824C
	DebugTypeDeprecatedBehavior uint32 = 0x824D
	DebugTypeUndefinedBehavior  uint32 = 0x824E
	DebugTypePortability        uint32 = 0x824F
	DebugTypePerformance        uint32 = 0x8250
	DebugTypeOther              uint32 = 0x8251
	DebugTypeMarker             uint32 = 0x8268
	DebugTypePushGroup          uint32 = 0x8269
	DebugTypePopGroup           uint32 = 0x826A
)

// Driver debug message severities.
const (
	DebugSeverityHigh         uint32 = 0x9146
	DebugSeverityMedium       uint32 = 0x9147
	DebugSeverityLow          uint32 = 0x9148
	DebugSeverityNotification uint32 = 0x826B
)

// DebugMessage is one message delivered by the driver's debug callback.
type DebugMessage struct {
	Source   uint32
	Type     uint32
	ID       uint32
	Severity uint32
	Text     string
}

// DebugHandler routes driver messages into the log. Errors are fatal: the
// logger's Fatal terminates the process with a non-zero status.
type DebugHandler struct {
	log *zap.Logger
}

// NewDebugHandler returns a handler writing to log.
func NewDebugHandler(log *zap.Logger) *DebugHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &DebugHandler{log: log.Named("driver")}
}

// Handle classifies m. Messages whose type sorts below "other" are logged;
// markers, group push/pop and "other" are ignored.
func (h *DebugHandler) Handle(m DebugMessage) {
	fields := []zap.Field{
		zap.String("severity", severityName(m.Severity)),
		zap.String("type", typeName(m.Type)),
		zap.Uint32("id", m.ID),
	}
	if m.Type == DebugTypeError {
		h.log.Fatal(m.Text, fields...)
		return
	}
	if m.Type < DebugTypeOther {
		h.log.Warn(m.Text, fields...)
	}
}

func severityName(s uint32) string {
	switch s {
	case DebugSeverityHigh:
		return "high"
	case DebugSeverityMedium:
		return "medium"
	case DebugSeverityLow:
		return "low"
	case DebugSeverityNotification:
		return "notification"
	}
	return fmt.Sprintf("0x%X", s)
}

func typeName(t uint32) string {
	switch t {
	case DebugTypeError:
		return "error"
	case DebugTypeDeprecatedBehavior:
		return "deprecated"
	case DebugTypeUndefinedBehavior:
		return "undefined"
	case DebugTypePortability:
		return "portability"
	case DebugTypePerformance:
		return "performance"
	case DebugTypeOther:
		return "other"
	case DebugTypeMarker:
		return "marker"
	case DebugTypePushGroup:
		return "push-group"
	case DebugTypePopGroup:
		return "pop-group"
	}
	return fmt.Sprintf("0x%X", t)
}
