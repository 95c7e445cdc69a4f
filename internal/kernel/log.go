package kernel

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// tickFormatter renders the `[tick]\tEVENT\t<fields>` line format required
// by spec.md 6, the way jesseduffield-lazydocker/pkg/log wraps a
// *logrus.Logger behind a small constructor -- here with a purpose-built
// Formatter instead of lazydocker's logrus.JSONFormatter.
type tickFormatter struct{}

// eventField and tickField are well-known logrus.Fields keys every kernel
// log call must set via WithFields before emitting.
const (
	eventField = "event"
	tickField  = "tick"
)

func (tickFormatter) Format(e *logrus.Entry) ([]byte, error) {
	tick, _ := e.Data[tickField].(int64)
	event, _ := e.Data[eventField].(string)

	var b strings.Builder
	fmt.Fprintf(&b, "[%d]\t%s", tick, event)
	if e.Message != "" {
		fmt.Fprintf(&b, "\t%s", e.Message)
	}
	for k, v := range e.Data {
		if k == tickField || k == eventField {
			continue
		}
		fmt.Fprintf(&b, "\t%v", v)
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// NewLogger opens path (truncating any prior contents) and returns a
// *logrus.Logger configured with tickFormatter. If path is empty, logs are
// discarded -- this mirrors lazydocker's newProductionLogger, which routes
// to io.Discard when no log file is configured.
func NewLogger(path string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetFormatter(tickFormatter{})
	log.SetLevel(logrus.InfoLevel)

	if path == "" {
		log.SetOutput(io.Discard)
		return log, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed opening log file %s: %w", path, err)
	}
	log.SetOutput(f)
	return log, nil
}

// Event is the set of EVENT names spec.md 6 enumerates.
type Event string

const (
	EventSchedule   Event = "SCHEDULE"
	EventCreate     Event = "CREATE"
	EventSignaled   Event = "SIGNALED"
	EventStopped    Event = "STOPPED"
	EventContinued  Event = "CONTINUED"
	EventZombie     Event = "ZOMBIE"
	EventQuit       Event = "QUIT (core dumped)"
	EventWaited     Event = "WAITED"
	EventWaitedInit Event = "WAITED (init)"
	EventOrphan     Event = "ORPHAN"
)

// Log emits one tick-tagged log line for pcb undergoing event ev at tick.
func Log(logger *logrus.Logger, tick int64, ev Event, pcb *PCB) {
	logger.WithFields(logrus.Fields{
		tickField:  tick,
		eventField: string(ev),
	}).Info(fieldsFor(pcb))
}

// fieldsFor renders the tab-separated pid/priority/cmd fields spec.md 6
// requires beyond the tick. Logged as the message body so they keep their
// fixed order; the Formatter writes tickField/eventField first and appends
// any other e.Data values after the message.
func fieldsFor(pcb *PCB) string {
	if pcb == nil {
		return ""
	}
	return fmt.Sprintf("%d\t%d\t%s", pcb.PID, pcb.Priority, pcb.Cmd)
}
