// Package monitoring serves the state of running directors over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"reflect"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/arrayflow/array"
	"github.com/sarchlab/arrayflow/director"
	"github.com/sarchlab/arrayflow/hooking"
	"github.com/sarchlab/arrayflow/id"
	"github.com/sarchlab/arrayflow/monitoring/web"
)

// Monitor turns a run into a server that reports the schedule, the edges and
// the progress of every registered director.
type Monitor struct {
	portNumber int
	idGen      id.Generator

	lock      sync.RWMutex
	directors []*director.Director
	edges     map[string]array.EdgeState
	edgeNames []string
	schedules map[string]scheduleRsp
	runBars   map[*director.Director]*ProgressBar

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		idGen:     id.NewPrefixedGenerator("Bar"),
		edges:     make(map[string]array.EdgeState),
		schedules: make(map[string]scheduleRsp),
		runBars:   make(map[*director.Director]*ProgressBar),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterDirector makes the monitor follow the runs of a director. It must
// be called before the director runs.
func (m *Monitor) RegisterDirector(d *director.Director) {
	m.lock.Lock()
	m.directors = append(m.directors, d)
	m.lock.Unlock()

	d.AcceptHook(m)
}

// Func updates the monitor state when a registered director reports progress.
func (m *Monitor) Func(ctx hooking.HookCtx) {
	d, ok := ctx.Domain.(*director.Director)
	if !ok {
		return
	}

	switch ctx.Pos {
	case director.HookPosRunStart:
		info := ctx.Item.(director.RunInfo)
		m.startRun(d, info)
	case director.HookPosBeforeFiring:
		if bar := m.runBar(d); bar != nil {
			bar.IncrementInProgress(1)
		}
	case director.HookPosAfterFiring:
		if bar := m.runBar(d); bar != nil {
			bar.MoveInProgressToFinished(1)
		}

		m.captureEdges(d)
	case director.HookPosRunEnd, director.HookPosRunError:
		m.captureEdges(d)
		m.endRun(d)
	}
}

func (m *Monitor) startRun(d *director.Director, info director.RunInfo) {
	total := uint64(info.Iterations) * uint64(info.FiringsPerIteration)
	bar := m.CreateProgressBar(d.Name()+" "+info.RunID, total)

	rsp := scheduleRsp{
		Director: d.Name(),
		RunID:    info.RunID,
		Text:     d.Schedule().String(),
	}

	for _, f := range d.Schedule().Firings {
		rsp.Firings = append(rsp.Firings, firingRsp{
			Actor:      f.Actor.Name(),
			Iterations: f.Iterations,
		})
	}

	m.lock.Lock()
	m.runBars[d] = bar
	m.schedules[d.Name()] = rsp
	m.lock.Unlock()

	m.captureEdges(d)
}

func (m *Monitor) endRun(d *director.Director) {
	m.lock.Lock()
	bar := m.runBars[d]
	delete(m.runBars, d)
	m.lock.Unlock()

	if bar != nil {
		m.CompleteProgressBar(bar)
	}
}

func (m *Monitor) runBar(d *director.Director) *ProgressBar {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.runBars[d]
}

// captureEdges copies the state of the director's edges so that the server
// never reads an edge while an actor writes to it.
func (m *Monitor) captureEdges(d *director.Director) {
	edges := d.Composite().Edges()

	states := make([]array.EdgeState, 0, len(edges))
	for _, e := range edges {
		states = append(states, e.State())
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	for _, s := range states {
		if _, found := m.edges[s.Name]; !found {
			m.edgeNames = append(m.edgeNames, s.Name)
		}

		m.edges[s.Name] = s
	}
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        m.idGen.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the handler that serves the monitoring API and the web page.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/directors", m.listDirectors)
	r.HandleFunc("/api/schedule", m.listSchedule)
	r.HandleFunc("/api/edges", m.listEdges)
	r.HandleFunc("/api/edge/{name}", m.listEdgeDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns the port it
// listens on.
func (m *Monitor) StartServer() int {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	port := listener.Addr().(*net.TCPAddr).Port

	fmt.Fprintf(
		os.Stderr,
		"Monitoring arrayflow with http://localhost:%d\n",
		port)

	router := m.Router()

	go func() {
		err := http.Serve(listener, router)
		dieOnErr(err)
	}()

	return port
}

func (m *Monitor) listDirectors(w http.ResponseWriter, _ *http.Request) {
	m.lock.RLock()
	names := make([]string, 0, len(m.directors))
	for _, d := range m.directors {
		names = append(names, d.Name())
	}
	m.lock.RUnlock()

	writeJSON(w, names)
}

type firingRsp struct {
	Actor      string `json:"actor"`
	Iterations int    `json:"iterations"`
}

type scheduleRsp struct {
	Director string      `json:"director"`
	RunID    string      `json:"run_id"`
	Text     string      `json:"text"`
	Firings  []firingRsp `json:"firings"`
}

// listSchedule reports the schedule of the director named by the "director"
// query parameter, or of the first registered director.
func (m *Monitor) listSchedule(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("director")

	m.lock.RLock()
	if name == "" && len(m.directors) > 0 {
		name = m.directors[0].Name()
	}

	rsp, found := m.schedules[name]
	m.lock.RUnlock()

	if !found {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "No schedule for director %q", name)

		return
	}

	writeJSON(w, rsp)
}

type edgeRsp struct {
	Edge      string `json:"edge"`
	Mode      string `json:"mode"`
	Epoch     int    `json:"epoch"`
	Written   int    `json:"written"`
	Length    int    `json:"length"`
	Receivers int    `json:"receivers"`
}

func (m *Monitor) listEdges(w http.ResponseWriter, r *http.Request) {
	sortMethod, limit, offset, err := m.edgesParseParams(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	sorted := m.sortAndSelectEdges(sortMethod, limit, offset)

	rsp := make([]edgeRsp, 0, len(sorted))
	for _, s := range sorted {
		rsp = append(rsp, edgeRsp{
			Edge:      s.Name,
			Mode:      s.Mode,
			Epoch:     s.Epoch,
			Written:   s.WritePosition,
			Length:    s.Length,
			Receivers: len(s.Receivers),
		})
	}

	writeJSON(w, rsp)
}

func (*Monitor) edgesParseParams(
	r *http.Request,
) (sortMethod string, limit, offset int, err error) {
	sortMethod = r.URL.Query().Get("sort")
	if sortMethod == "" {
		sortMethod = "name"
	}

	if sortMethod != "name" && sortMethod != "level" &&
		sortMethod != "percent" {
		return "", 0, 0, fmt.Errorf(
			"invalid sort method: %s. Allowed values are "+
				"`name`, `level` and `percent`", sortMethod)
	}

	limit, err = intParam(r, "limit")
	if err != nil {
		return sortMethod, 0, 0, err
	}

	offset, err = intParam(r, "offset")
	if err != nil {
		return sortMethod, limit, 0, err
	}

	if limit < 0 || offset < 0 {
		return sortMethod, limit, offset,
			errors.New("limit and offset must not be negative")
	}

	return sortMethod, limit, offset, nil
}

func intParam(r *http.Request, key string) (int, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return 0, nil
	}

	return strconv.Atoi(str)
}

func edgePercent(s array.EdgeState) float64 {
	if s.Length == 0 {
		return 0
	}

	return float64(s.WritePosition) / float64(s.Length)
}

// sortAndSelectEdges orders the captured edges and returns the page starting
// at offset. A zero limit selects every remaining edge.
func (m *Monitor) sortAndSelectEdges(
	sortMethod string,
	limit, offset int,
) []array.EdgeState {
	m.lock.RLock()
	sorted := make([]array.EdgeState, 0, len(m.edgeNames))
	for _, n := range m.edgeNames {
		sorted = append(sorted, m.edges[n])
	}
	m.lock.RUnlock()

	switch sortMethod {
	case "name":
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Name < sorted[j].Name
		})
	case "level":
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].WritePosition != sorted[j].WritePosition {
				return sorted[i].WritePosition > sorted[j].WritePosition
			}

			return edgePercent(sorted[i]) > edgePercent(sorted[j])
		})
	case "percent":
		sort.SliceStable(sorted, func(i, j int) bool {
			pi, pj := edgePercent(sorted[i]), edgePercent(sorted[j])
			if pi != pj {
				return pi > pj
			}

			return sorted[i].WritePosition > sorted[j].WritePosition
		})
	default:
		panic("Invalid sort method " + sortMethod)
	}

	if offset >= len(sorted) {
		return nil
	}

	end := len(sorted)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return sorted[offset:end]
}

func (m *Monitor) listEdgeDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	state, found := m.findEdgeOr404(w, name)
	if !found {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&state)
	serializer.SetMaxDepth(2)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	EdgeName  string `json:"edge_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

// listFieldValue reports one field of an edge state, for example
// {"edge_name":"A.out","field_name":"Receivers.0.ReadPosition"}.
func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := fieldReq{}

	err := json.Unmarshal([]byte(jsonString), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	state, found := m.findEdgeOr404(w, req.EdgeName)
	if !found {
		return
	}

	elem, err := m.walkFields(&state, req.FieldName)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	writeJSON(w, elem.Interface())
}

type fieldFormatError struct {
	field  string
	reason string
}

func (e fieldFormatError) Error() string {
	return fmt.Sprintf("field %q: %s", e.field, e.reason)
}

// walkFields follows a dot separated path of struct field names and slice
// indices starting at v.
func (m *Monitor) walkFields(
	v interface{},
	fields string,
) (reflect.Value, error) {
	elem := reflect.ValueOf(v)

	fieldNames := strings.Split(fields, ".")
	if fields == "" {
		fieldNames = nil
	}

	for len(fieldNames) > 0 {
		switch elem.Kind() {
		case reflect.Ptr, reflect.Interface:
			elem = elem.Elem()
		case reflect.Struct:
			next := elem.FieldByName(fieldNames[0])
			if !next.IsValid() {
				return elem, fieldFormatError{fieldNames[0], "no such field"}
			}

			elem = next
			fieldNames = fieldNames[1:]
		case reflect.Slice:
			index, err := strconv.Atoi(fieldNames[0])
			if err != nil || index < 0 || index >= elem.Len() {
				return elem, fieldFormatError{fieldNames[0], "bad index"}
			}

			elem = elem.Index(index)
			fieldNames = fieldNames[1:]
		case reflect.Map:
			next := elem.MapIndex(reflect.ValueOf(fieldNames[0]))
			if !next.IsValid() {
				return elem, fieldFormatError{fieldNames[0], "no such key"}
			}

			elem = next
			fieldNames = fieldNames[1:]
		default:
			return elem, fieldFormatError{
				fieldNames[0],
				"cannot walk into " + elem.Kind().String(),
			}
		}
	}

	if elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}

	return elem, nil
}

func (m *Monitor) findEdgeOr404(
	w http.ResponseWriter,
	name string,
) (array.EdgeState, bool) {
	m.lock.RLock()
	state, found := m.edges[name]
	m.lock.RUnlock()

	if !found {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Edge not found"))
		dieOnErr(err)
	}

	return state, found
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
