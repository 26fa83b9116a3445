// Package console is an interactive pilot console that turns key presses
// into command frames.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"rovlink/pkg/protocol"
)

const DefaultThrustStep float32 = 0.1

// sendQueueSize bounds how many key presses may wait for the link.
const sendQueueSize = 32

var (
	errNoLink        = errors.New("no link")
	errQueueFull     = errors.New("send queue full")
	errConsoleClosed = errors.New("console closed")
)

// Sender delivers encoded commands to the vehicle. *transport.FrameWriter
// implements it.
type Sender interface {
	Send(protocol.Command) error
}

type sentMsg struct {
	cmd   protocol.Command
	frame protocol.Frame
	err   error
}

// sendQueue hands commands to one worker goroutine so frames reach the
// link in key press order.
type sendQueue struct {
	sender  Sender
	pending chan protocol.Command
	results chan sentMsg
	done    chan struct{}
	once    sync.Once
}

func newSendQueue(sender Sender) *sendQueue {
	q := &sendQueue{
		sender:  sender,
		pending: make(chan protocol.Command, sendQueueSize),
		results: make(chan sentMsg, sendQueueSize),
		done:    make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *sendQueue) loop() {
	for {
		select {
		case <-q.done:
			return
		case cmd := <-q.pending:
			msg := sentMsg{cmd: cmd, frame: cmd.Encode(), err: errNoLink}
			if q.sender != nil {
				msg.err = q.sender.Send(cmd)
			}
			select {
			case q.results <- msg:
			case <-q.done:
				return
			}
		}
	}
}

// enqueue never blocks the UI.
func (q *sendQueue) enqueue(cmd protocol.Command) error {
	select {
	case <-q.done:
		return errConsoleClosed
	default:
	}
	select {
	case q.pending <- cmd:
		return nil
	default:
		return errQueueFull
	}
}

// wait delivers the next send result to Update.
func (q *sendQueue) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-q.results:
			return msg
		case <-q.done:
			return nil
		}
	}
}

func (q *sendQueue) close() {
	q.once.Do(func() { close(q.done) })
}

type Model struct {
	queue *sendQueue
	step  float32

	thrust  protocol.DirectionVector
	ballast protocol.BallastCommand
	light   protocol.LightCommand

	last     protocol.Command
	lastHex  string
	lastErr  error
	sent     int
	inFlight int
	quitting bool
}

// NewModel starts the send worker. Call Close once the model is done.
func NewModel(sender Sender, step float32) Model {
	if step <= 0 {
		step = DefaultThrustStep
	}
	return Model{queue: newSendQueue(sender), step: step}
}

// Close stops the send worker. Queued commands that have not been sent
// are dropped.
func (m Model) Close() {
	m.queue.close()
}

func (m Model) Init() tea.Cmd {
	return m.queue.wait()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case sentMsg:
		if m.inFlight > 0 {
			m.inFlight--
		}
		m.last = msg.cmd
		m.lastErr = msg.err
		if msg.err == nil {
			m.lastHex = msg.frame.String()
			m.sent++
		}
		return m, m.queue.wait()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "x":
		m.ballast = protocol.BallastIdle
		return m.send(m.ballast)
	case "i":
		m.ballast = protocol.BallastIntake
		return m.send(m.ballast)
	case "d":
		m.ballast = protocol.BallastDischarge
		return m.send(m.ballast)
	case "f":
		m.light = protocol.LightOff
		return m.send(m.light)
	case "o":
		m.light = protocol.LightOn
		return m.send(m.light)
	case "b":
		m.light = protocol.LightBlink
		return m.send(m.light)
	case "up":
		m.thrust.Y += m.step
	case "down":
		m.thrust.Y -= m.step
	case "right":
		m.thrust.X += m.step
	case "left":
		m.thrust.X -= m.step
	case " ", "space":
		m.thrust = protocol.DirectionVector{}
	default:
		return m, nil
	}
	return m.send(protocol.PropulsionCommand{Thrust: m.thrust})
}

// send queues cmd for the worker. Its result arrives later as a sentMsg.
func (m Model) send(cmd protocol.Command) (tea.Model, tea.Cmd) {
	if err := m.queue.enqueue(cmd); err != nil {
		m.last = cmd
		m.lastErr = err
		return m, nil
	}
	m.inFlight++
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString("rovlink console\n\n")
	fmt.Fprintf(&b, "  thrust   x=%+.2f y=%+.2f\n", m.thrust.X, m.thrust.Y)
	fmt.Fprintf(&b, "  %s\n", m.ballast)
	fmt.Fprintf(&b, "  %s\n\n", m.light)

	if m.last != nil {
		fmt.Fprintf(&b, "  last     %s\n", m.last)
	}
	if m.lastHex != "" {
		fmt.Fprintf(&b, "  frame    %s\n", m.lastHex)
	}
	if m.lastErr != nil {
		fmt.Fprintf(&b, "  error    %v\n", m.lastErr)
	}
	fmt.Fprintf(&b, "  sent     %d", m.sent)
	if m.inFlight > 0 {
		fmt.Fprintf(&b, " (%d queued)", m.inFlight)
	}
	b.WriteString("\n\n")

	b.WriteString("  arrows thrust  space stop  i/d/x ballast  o/f/b light  q quit\n")
	return b.String()
}

// Thrust returns the thrust vector the console last requested.
func (m Model) Thrust() protocol.DirectionVector {
	return m.thrust
}

// Run drives the console until the user quits or ctx is done.
func Run(ctx context.Context, sender Sender, step float32, in io.Reader, out io.Writer) error {
	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	if out != nil {
		opts = append(opts, tea.WithOutput(out))
	}
	m := NewModel(sender, step)
	defer m.Close()
	p := tea.NewProgram(m, opts...)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			p.Quit()
		case <-done:
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}
