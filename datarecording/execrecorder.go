package datarecording

import (
	"os"
	"strings"
	"time"
)

const execTable = "exec_info"

type execInfo struct {
	Property string
	Value    string
}

// execRecorder keeps when and how the program ran.
type execRecorder struct {
	recorder DataRecorder
}

func newExecRecorder(recorder DataRecorder) *execRecorder {
	recorder.CreateTable(execTable, execInfo{})

	return &execRecorder{recorder: recorder}
}

func now() string {
	return time.Now().Format("2006-01-02 15:04:05.000000000")
}

// Start records the start time, the command line and the working directory.
func (e *execRecorder) Start() {
	e.recorder.InsertData(execTable, execInfo{"Start Time", now()})
	e.recorder.InsertData(execTable,
		execInfo{"Command", strings.Join(os.Args, " ")})

	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	e.recorder.InsertData(execTable, execInfo{"Working Directory", wd})
}

// End records the end time.
func (e *execRecorder) End() {
	e.recorder.InsertData(execTable, execInfo{"End Time", now()})
}
