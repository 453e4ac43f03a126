// Package simulation assembles a director with its recorder and monitor.
package simulation

import (
	"context"

	"github.com/sarchlab/arrayflow/dataflow"
	"github.com/sarchlab/arrayflow/datarecording"
	"github.com/sarchlab/arrayflow/director"
	"github.com/sarchlab/arrayflow/monitoring"
)

// A Simulation runs one composite and provides the services that observe it.
type Simulation struct {
	id        string
	composite *dataflow.Composite
	director  *director.Director

	dataRecorder   datarecording.DataRecorder
	firingRecorder *datarecording.FiringRecorder
	monitor        *monitoring.Monitor
	monitorPort    int
}

// ID returns the unique identifier of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Composite returns the composite being run.
func (s *Simulation) Composite() *dataflow.Composite {
	return s.composite
}

// GetDirector returns the director that fires the actors.
func (s *Simulation) GetDirector() *director.Director {
	return s.director
}

// GetDataRecorder returns the data recorder, or nil when recording is off.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor, or nil when monitoring is off.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorPort returns the port the monitor listens on, or 0.
func (s *Simulation) MonitorPort() int {
	return s.monitorPort
}

// GetActorByName returns the actor with the given name, or nil.
func (s *Simulation) GetActorByName(name string) dataflow.Actor {
	return s.composite.Actor(name)
}

// GetPortByName returns the port with the given full name.
func (s *Simulation) GetPortByName(name string) *dataflow.Port {
	return s.composite.MustFindPort(name)
}

// Run fires the composite for the given number of iterations.
func (s *Simulation) Run(ctx context.Context, iterations int) error {
	return s.director.Run(ctx, iterations)
}

// Terminate terminates the simulation.
func (s *Simulation) Terminate() {
	if s.dataRecorder != nil {
		s.dataRecorder.Close()
	}
}
