package simulation

import (
	"github.com/rs/xid"
	"github.com/sarchlab/psramsim/monitoring"
	"github.com/sarchlab/psramsim/sim"
	"github.com/sarchlab/psramsim/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	monitorOn      bool
	monitorPort    int
	browserLaunch  bool
	traceDBPath    string
	traceCSVPrefix string
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		monitorOn: true,
	}
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithBrowserLaunch makes the monitor open a browser tab pointing to its
// API when the server starts.
func (b Builder) WithBrowserLaunch() Builder {
	b.browserLaunch = true
	return b
}

// WithTraceDBPath directs the access trace to a SQLite database at the
// given path.
func (b Builder) WithTraceDBPath(path string) Builder {
	b.traceDBPath = path
	return b
}

// WithTraceCSVPrefix directs the access trace to CSV files whose names
// start with the given prefix.
func (b Builder) WithTraceCSVPrefix(prefix string) Builder {
	b.traceCSVPrefix = prefix
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.monitorOn && b.browserLaunch {
		panic("browser launch cannot be set when monitoring is disabled")
	}

	if b.traceDBPath != "" && b.traceCSVPrefix != "" {
		panic("trace output can be a database or CSV files, not both")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		compNameIndex: make(map[string]int),
		portNameIndex: make(map[string]int),
	}

	s.id = xid.New().String()
	s.engine = sim.NewSerialEngine()

	s.traceRecorder = b.buildRecorder()
	s.accessTracer = tracing.NewAccessTracer(s.engine, s.traceRecorder)

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		if b.browserLaunch {
			s.monitor.WithBrowserLaunch()
		}
		s.monitor.RegisterEngine(s.engine)
		s.monitor.StartServer()
	}

	return s
}

func (b Builder) buildRecorder() tracing.DataRecorder {
	switch {
	case b.traceDBPath != "":
		return tracing.NewSQLiteRecorder(b.traceDBPath)
	case b.traceCSVPrefix != "":
		return tracing.NewCSVRecorder(b.traceCSVPrefix)
	default:
		return nil
	}
}
