package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/OCAP2/demo/internal/dispatcher"
	"github.com/OCAP2/demo/internal/logging"
	"github.com/OCAP2/demo/internal/session"
	"github.com/OCAP2/demo/internal/util"
)

// ErrMissingArgument is returned when a command needs an argument it did not get.
var ErrMissingArgument = errors.New("missing argument")

// Controller is the part of the session controller the commands drive.
type Controller interface {
	ToggleRecording() error
	StartRecording(name string) error
	StopRecording() error
	StartPlayback(name string) error
	PlayAutoDemo() error
	Enqueue(names ...string) error
	Abort(deleteFile bool)
	TogglePause() bool
	Step()
	Status() session.Status
	ListDemos() ([]string, error)
}

var _ Controller = (*session.Controller)(nil)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Controller       Controller
	LogManager       *logging.SlogManager
	ExtensionName    string
	ExtensionVersion string
}

// Service turns host commands into session controller calls.
type Service struct {
	deps         Dependencies
	writeLogFunc func(functionName, data, level string)
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	s := &Service{deps: deps}
	// Default writeLog function uses the logging manager
	s.writeLogFunc = func(functionName, data, level string) {
		if deps.LogManager != nil {
			deps.LogManager.WriteLog(functionName, data, level)
		}
	}
	return s
}

func (s *Service) writeLog(functionName, data, level string) {
	s.writeLogFunc(functionName, data, level)
}

// Register adds every demo command to d.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	none := dispatcher.Args(0, 0)
	d.Register(":VERSION:", s.Version, none)
	d.Register(":DEMO:RECORD:", s.ToggleRecord, none, dispatcher.Logged())
	d.Register(":DEMO:RECORD:START:", s.StartRecord, dispatcher.Args(1, 1), dispatcher.Logged())
	d.Register(":DEMO:RECORD:STOP:", s.StopRecord, none, dispatcher.Logged())
	d.Register(":DEMO:PLAY:", s.Play, dispatcher.Args(1, 1), dispatcher.Logged())
	d.Register(":DEMO:PLAY:AUTO:", s.PlayAuto, none, dispatcher.Logged())
	d.Register(":DEMO:QUEUE:", s.Queue, dispatcher.Args(1, -1), dispatcher.Logged())
	d.Register(":DEMO:ABORT:", s.Abort, dispatcher.Args(0, 1), dispatcher.Logged())
	d.Register(":DEMO:PAUSE:", s.Pause, none)
	d.Register(":DEMO:STEP:", s.Step, none)
	d.Register(":DEMO:STATUS:", s.Status, none)
	d.Register(":DEMO:LIST:", s.List, none)
}

func firstArg(e dispatcher.Event) (string, error) {
	if len(e.Args) == 0 {
		return "", fmt.Errorf("%s: %w", e.Command, ErrMissingArgument)
	}
	name := util.CleanArg(e.Args[0])
	if name == "" {
		return "", fmt.Errorf("%s: %w", e.Command, ErrMissingArgument)
	}
	return name, nil
}

// Version returns the name and version of the extension.
func (s *Service) Version(e dispatcher.Event) (any, error) {
	return []string{s.deps.ExtensionName, s.deps.ExtensionVersion}, nil
}

// ToggleRecord stops an active recording or starts a new one.
func (s *Service) ToggleRecord(e dispatcher.Event) (any, error) {
	if err := s.deps.Controller.ToggleRecording(); err != nil {
		return nil, err
	}
	return s.deps.Controller.Status().Mode, nil
}

// StartRecord starts recording to the file named by the first argument.
func (s *Service) StartRecord(e dispatcher.Event) (any, error) {
	name, err := firstArg(e)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Controller.StartRecording(name); err != nil {
		s.writeLog(e.Command, fmt.Sprintf("Unable to record %s: %v", name, err), "ERROR")
		return nil, err
	}
	return filepath.Base(s.deps.Controller.Status().File), nil
}

// StopRecord closes the active recording.
func (s *Service) StopRecord(e dispatcher.Event) (any, error) {
	file := s.deps.Controller.Status().File
	if err := s.deps.Controller.StopRecording(); err != nil {
		return nil, err
	}
	s.writeLog(e.Command, "Recording saved to "+file, "INFO")
	return filepath.Base(file), nil
}

// Play starts playing the file named by the first argument.
func (s *Service) Play(e dispatcher.Event) (any, error) {
	name, err := firstArg(e)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Controller.StartPlayback(name); err != nil {
		s.writeLog(e.Command, fmt.Sprintf("Unable to play %s: %v", name, err), "ERROR")
		return nil, err
	}
	return filepath.Base(s.deps.Controller.Status().File), nil
}

// PlayAuto cycles through the demo directory.
func (s *Service) PlayAuto(e dispatcher.Event) (any, error) {
	if err := s.deps.Controller.PlayAutoDemo(); err != nil {
		return nil, err
	}
	return filepath.Base(s.deps.Controller.Status().File), nil
}

// Queue adds every argument to the playback queue.
func (s *Service) Queue(e dispatcher.Event) (any, error) {
	var names []string
	for _, a := range e.Args {
		if n := util.CleanArg(a); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%s: %w", e.Command, ErrMissingArgument)
	}
	if err := s.deps.Controller.Enqueue(names...); err != nil {
		return nil, err
	}
	return s.deps.Controller.Status().Queued, nil
}

// Abort ends the active session. An argument of "delete" or "true"
// removes the demo file as well.
func (s *Service) Abort(e dispatcher.Event) (any, error) {
	del := false
	if len(e.Args) > 0 {
		switch strings.ToLower(util.CleanArg(e.Args[0])) {
		case "delete", "true", "1":
			del = true
		}
	}
	s.deps.Controller.Abort(del)
	return "aborted", nil
}

// Pause toggles pause of the active playback.
func (s *Service) Pause(e dispatcher.Event) (any, error) {
	if s.deps.Controller.TogglePause() {
		return "paused", nil
	}
	return "running", nil
}

// Step plays one frame of a paused playback.
func (s *Service) Step(e dispatcher.Event) (any, error) {
	s.deps.Controller.Step()
	return "ok", nil
}

// Status returns the session status as JSON.
func (s *Service) Status(e dispatcher.Event) (any, error) {
	data, err := json.Marshal(s.deps.Controller.Status())
	if err != nil {
		return nil, fmt.Errorf("marshal status: %w", err)
	}
	return string(data), nil
}

// List returns the names of the demo files in the demo directory.
func (s *Service) List(e dispatcher.Event) (any, error) {
	paths, err := s.deps.Controller.ListDemos()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	return names, nil
}
