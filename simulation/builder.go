package simulation

import (
	"github.com/rs/xid"

	"github.com/sarchlab/arrayflow/dataflow"
	"github.com/sarchlab/arrayflow/datarecording"
	"github.com/sarchlab/arrayflow/director"
	"github.com/sarchlab/arrayflow/monitoring"
)

// Builder can be used to build a simulation.
type Builder struct {
	monitorOn      bool
	monitorPort    int
	recordingOn    bool
	outputFileName string
	recordTo       string
	directorName   string
	director       director.Builder
}

// MakeBuilder creates a new builder that records and monitors.
func MakeBuilder() Builder {
	return Builder{
		monitorOn:    true,
		recordingOn:  true,
		directorName: "Director",
		director:     director.MakeBuilder(),
	}
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithoutRecording sets the simulation to not write a database.
func (b Builder) WithoutRecording() Builder {
	b.recordingOn = false
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
// The ".sqlite3" suffix is added.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithRecordingTarget records into a database given as a URL, such as
// "clickhouse://localhost:9000/db" or "mongodb://localhost:27017/db". See
// datarecording.Open for the accepted targets.
func (b Builder) WithRecordingTarget(target string) Builder {
	b.recordTo = target
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithDirector sets how the director is built and named.
func (b Builder) WithDirector(name string, db director.Builder) Builder {
	b.directorName = name
	b.director = db
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordingOn && (b.outputFileName != "" || b.recordTo != "") {
		panic("output cannot be set when recording is disabled")
	}

	if b.outputFileName != "" && b.recordTo != "" {
		panic("output file and recording target cannot both be set")
	}
}

// Build builds the simulation of a composite.
func (b Builder) Build(c *dataflow.Composite) *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id:        xid.New().String(),
		composite: c,
	}

	s.director = b.director.Build(b.directorName, c)

	if b.recordingOn {
		s.dataRecorder = b.buildRecorder(s.id)
		s.firingRecorder = datarecording.NewFiringRecorder(s.dataRecorder)
		s.firingRecorder.Attach(s.director)
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}

		s.monitor.RegisterDirector(s.director)
		s.monitorPort = s.monitor.StartServer()
	}

	return s
}

func (b Builder) buildRecorder(id string) datarecording.DataRecorder {
	if b.recordTo != "" {
		return datarecording.Open(b.recordTo)
	}

	outputPath := b.outputFileName
	if outputPath == "" {
		outputPath = "arrayflow_" + id
	}

	return datarecording.NewDataRecorder(outputPath)
}
