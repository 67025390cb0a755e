// Package simulation bundles the services a simulation needs: the event
// engine, the monitoring server, and the access-trace recorder.
package simulation

import (
	"github.com/sarchlab/psramsim/monitoring"
	"github.com/sarchlab/psramsim/sim"
	"github.com/sarchlab/psramsim/tracing"
)

// A Simulation holds the engine and the services shared by all the
// components of one simulated system.
type Simulation struct {
	id string

	engine        sim.Engine
	monitor       *monitoring.Monitor
	accessTracer  *tracing.AccessTracer
	traceRecorder tracing.DataRecorder

	components    []sim.Component
	compNameIndex map[string]int
	ports         []sim.Port
	portNameIndex map[string]int
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// GetEngine returns the engine used in the simulation.
func (s *Simulation) GetEngine() sim.Engine {
	return s.engine
}

// GetMonitor returns the monitor used in the simulation, or nil when
// monitoring is disabled.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// GetAccessTracer returns the tracer that observes the memory controllers.
func (s *Simulation) GetAccessTracer() *tracing.AccessTracer {
	return s.accessTracer
}

// RegisterComponent registers a component with the simulation. Memory
// controllers are hooked up to the access tracer, and all components become
// visible to the monitor.
func (s *Simulation) RegisterComponent(c sim.Component) {
	name := c.Name()
	if _, found := s.compNameIndex[name]; found {
		panic("component " + name + " already registered")
	}

	s.components = append(s.components, c)
	s.compNameIndex[name] = len(s.components) - 1

	for _, p := range c.Ports() {
		s.registerPort(p)
	}

	if s.monitor != nil {
		s.monitor.RegisterComponent(c)
	}
}

// TraceAccesses hooks the access tracer up to a memory controller.
func (s *Simulation) TraceAccesses(domain sim.Hookable) {
	tracing.CollectAccessTrace(domain, s.accessTracer)
}

func (s *Simulation) registerPort(p sim.Port) {
	name := p.Name()
	if _, found := s.portNameIndex[name]; found {
		panic("port " + name + " already registered")
	}

	s.ports = append(s.ports, p)
	s.portNameIndex[name] = len(s.ports) - 1
}

// Components returns all the registered components.
func (s *Simulation) Components() []sim.Component {
	return s.components
}

// GetComponentByName returns the component with the given name.
func (s *Simulation) GetComponentByName(name string) sim.Component {
	index, found := s.compNameIndex[name]
	if !found {
		panic("component " + name + " not registered")
	}
	return s.components[index]
}

// GetPortByName returns the port with the given name.
func (s *Simulation) GetPortByName(name string) sim.Port {
	index, found := s.portNameIndex[name]
	if !found {
		panic("port " + name + " not registered")
	}
	return s.ports[index]
}

// Terminate flushes everything the simulation has recorded.
func (s *Simulation) Terminate() {
	if recorder := s.recorder(); recorder != nil {
		recorder.Flush()
	}
}

func (s *Simulation) recorder() tracing.DataRecorder {
	return s.traceRecorder
}
