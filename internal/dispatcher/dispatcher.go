package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrQueueFull      = errors.New("queue full")
	ErrClosed         = errors.New("dispatcher closed")
	ErrArgCount       = errors.New("wrong number of arguments")
	ErrEmptyLine      = errors.New("empty command line")
)

// Event is a host command such as ":DEMO:PLAY:" with its arguments.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*route)

// Buffered runs the handler on its own goroutine behind a queue of the
// given size. Dispatch then returns "queued" instead of the handler result.
func Buffered(size int) Option {
	return func(r *route) {
		r.bufferSize = size
	}
}

// Blocking makes a buffered handler wait for queue space instead of dropping.
func Blocking() Option {
	return func(r *route) {
		r.blocking = true
	}
}

// Logged logs every call with its duration; failures are logged at error level.
func Logged() Option {
	return func(r *route) {
		r.logged = true
	}
}

// Args rejects events with fewer than min or more than max arguments.
// A negative max means no upper bound.
func Args(min, max int) Option {
	return func(r *route) {
		r.minArgs, r.maxArgs = min, max
	}
}

// route is one registered command.
type route struct {
	command string
	handler HandlerFunc
	attr    attribute.KeyValue

	bufferSize int
	blocking   bool
	logged     bool
	minArgs    int
	maxArgs    int

	queue chan Event
}

func (r *route) checkArgs(e Event) error {
	n := len(e.Args)
	if n < r.minArgs || (r.maxArgs >= 0 && n > r.maxArgs) {
		return fmt.Errorf("%w: %s takes %s, got %d", ErrArgCount, r.command, r.arity(), n)
	}
	return nil
}

func (r *route) arity() string {
	switch {
	case r.maxArgs < 0:
		return fmt.Sprintf("at least %d", r.minArgs)
	case r.minArgs == r.maxArgs:
		return fmt.Sprintf("exactly %d", r.minArgs)
	default:
		return fmt.Sprintf("%d to %d", r.minArgs, r.maxArgs)
	}
}

// Dispatcher routes host commands to registered handlers.
type Dispatcher struct {
	logger Logger

	mu      sync.RWMutex
	routes  map[string]*route
	closed  bool
	workers sync.WaitGroup

	queueDepth metric.Int64ObservableGauge
	handled    metric.Int64Counter
	failed     metric.Int64Counter
	dropped    metric.Int64Counter
	duration   metric.Float64Histogram
}

// New creates a Dispatcher. Metrics go to the global OTel meter, which is a
// no-op until a provider is installed.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		logger: logger,
		routes: make(map[string]*route),
	}

	m := meter()
	var err error

	if d.queueDepth, err = m.Int64ObservableGauge(
		"demo.commands.queue.depth",
		metric.WithDescription("Commands waiting in a buffered handler queue"),
	); err != nil {
		return nil, fmt.Errorf("creating queue depth gauge: %w", err)
	}
	if _, err = m.RegisterCallback(d.observeQueues, d.queueDepth); err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}
	if d.handled, err = m.Int64Counter(
		"demo.commands.handled",
		metric.WithDescription("Commands handled"),
	); err != nil {
		return nil, fmt.Errorf("creating handled counter: %w", err)
	}
	if d.failed, err = m.Int64Counter(
		"demo.commands.failed",
		metric.WithDescription("Commands whose handler returned an error"),
	); err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}
	if d.dropped, err = m.Int64Counter(
		"demo.commands.dropped",
		metric.WithDescription("Commands dropped because the queue was full"),
	); err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	if d.duration, err = m.Float64Histogram(
		"demo.command.duration",
		metric.WithDescription("Time spent in a command handler"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return d, nil
}

func (d *Dispatcher) observeQueues(_ context.Context, o metric.Observer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, r := range d.routes {
		if r.queue != nil {
			o.ObserveInt64(d.queueDepth, int64(len(r.queue)), metric.WithAttributes(r.attr))
		}
	}
	return nil
}

// Register adds a handler for command. Command names are case-insensitive.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	command = normalize(command)
	r := &route{
		command: command,
		handler: h,
		attr:    attribute.String("command", command),
		maxArgs: -1,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.bufferSize > 0 {
		r.queue = make(chan Event, r.bufferSize)
		d.workers.Add(1)
		go d.drain(r)
	}

	d.mu.Lock()
	d.routes[command] = r
	d.mu.Unlock()
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	e.Command = normalize(e.Command)
	d.mu.RLock()
	r, ok := d.routes[e.Command]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	if err := r.checkArgs(e); err != nil {
		return nil, err
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if r.queue != nil {
		return d.enqueue(r, e)
	}
	return d.call(r, e)
}

// DispatchLine parses a console line and dispatches it.
func (d *Dispatcher) DispatchLine(line string) (any, error) {
	e, err := ParseLine(line)
	if err != nil {
		return nil, err
	}
	return d.Dispatch(e)
}

// Commands returns the registered commands in sorted order.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.routes))
	for cmd := range d.routes {
		out = append(out, cmd)
	}
	sort.Strings(out)
	return out
}

// HasHandler reports whether a handler is registered for command.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.routes[normalize(command)]
	return ok
}

// Close stops accepting buffered events and waits until every queued
// event has been handled.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, r := range d.routes {
		if r.queue != nil {
			close(r.queue)
		}
	}
	d.mu.Unlock()
	d.workers.Wait()
}

func (d *Dispatcher) enqueue(r *route, e Event) (any, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, fmt.Errorf("%w: %s", ErrClosed, r.command)
	}
	if r.blocking {
		r.queue <- e
		return "queued", nil
	}
	select {
	case r.queue <- e:
		return "queued", nil
	default:
		d.dropped.Add(context.Background(), 1, metric.WithAttributes(r.attr))
		return nil, fmt.Errorf("%w: %s", ErrQueueFull, r.command)
	}
}

func (d *Dispatcher) drain(r *route) {
	defer d.workers.Done()
	for e := range r.queue {
		if _, err := d.call(r, e); err != nil && !r.logged {
			d.logger.Error("buffered command failed", "command", r.command, "error", err)
		}
	}
}

func (d *Dispatcher) call(r *route, e Event) (any, error) {
	start := time.Now()
	if r.logged {
		d.logger.Debug("handling command", "command", r.command, "args", len(e.Args))
	}

	result, err := r.handler(e)

	elapsed := time.Since(start)
	ctx := context.Background()
	attrs := metric.WithAttributes(r.attr)
	d.handled.Add(ctx, 1, attrs)
	d.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	if err != nil {
		d.failed.Add(ctx, 1, attrs)
	}

	if r.logged {
		if err != nil {
			d.logger.Error("command failed", "command", r.command, "duration", elapsed, "error", err)
		} else {
			d.logger.Debug("command complete", "command", r.command, "duration", elapsed)
		}
	}
	return result, err
}

func normalize(command string) string {
	return strings.ToUpper(strings.TrimSpace(command))
}

// ParseLine splits a console line into a command and its arguments.
// Arguments are separated by whitespace; double quotes group words and a
// backslash escapes the next character inside quotes.
func ParseLine(line string) (Event, error) {
	var (
		fields  []string
		cur     strings.Builder
		inQuote bool
		started bool
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case inQuote && c == '\\' && i+1 < len(runes):
			i++
			cur.WriteRune(runes[i])
		case c == '"':
			inQuote = !inQuote
			started = true
		case !inQuote && (c == ' ' || c == '\t'):
			if started {
				fields = append(fields, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(c)
			started = true
		}
	}
	if inQuote {
		return Event{}, fmt.Errorf("unterminated quote in %q", line)
	}
	if started {
		fields = append(fields, cur.String())
	}
	if len(fields) == 0 {
		return Event{}, ErrEmptyLine
	}
	return Event{Command: fields[0], Args: fields[1:]}, nil
}
