package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/playback-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/playback-core/internal/lifecycle"
)

// SourceMQTT tags commands received over MQTT.
const SourceMQTT = "mqtt"

const (
	commandQoS     = 1
	defaultTimeout = 10 * time.Second
)

// ErrMissingCommand is returned for command messages without a command.
var ErrMissingCommand = errors.New("control: command is required")

// Submitter runs a request on the lifecycle loop.
type Submitter interface {
	Submit(ctx context.Context, req lifecycle.Request) (lifecycle.Result, error)
}

// Subscriber is the part of the MQTT client used to receive commands.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// CommandMessage is the payload of playback/command/lifecycle.
//
//	{"request_id": "r1", "command": "init", "drivers": ["video", "audio"]}
type CommandMessage struct {
	RequestID string `json:"request_id,omitempty"`
	Command   string `json:"command"`
	lifecycle.Payload
}

// CommandResponse is the payload of playback/response/lifecycle/{request_id}.
type CommandResponse struct {
	RequestID string              `json:"request_id"`
	Command   string              `json:"command"`
	OK        bool                `json:"ok"`
	Failures  []lifecycle.Failure `json:"failures,omitempty"`
	Error     string              `json:"error,omitempty"`
	Duration  time.Duration       `json:"duration_ns"`
}

// CommandListener executes lifecycle commands received over MQTT.
type CommandListener struct {
	sub     Subscriber
	pub     Publisher
	loop    Submitter
	timeout time.Duration
	logger  Logger
}

// NewCommandListener creates a listener submitting to loop.
func NewCommandListener(sub Subscriber, pub Publisher, loop Submitter) *CommandListener {
	return &CommandListener{
		sub:     sub,
		pub:     pub,
		loop:    loop,
		timeout: defaultTimeout,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the listener.
func (l *CommandListener) SetLogger(logger Logger) {
	l.logger = logger
}

// Start subscribes to the command topic.
func (l *CommandListener) Start() error {
	topic := mqtt.Topics{}.LifecycleCommand()
	if err := l.sub.Subscribe(topic, commandQoS, l.handle); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	l.logger.Info("listening for lifecycle commands", "topic", topic)
	return nil
}

// handle decodes, executes and answers one command message. Malformed
// messages with a request ID are answered with an error response.
func (l *CommandListener) handle(_ string, payload []byte) error {
	var msg CommandMessage
	decodeErr := json.Unmarshal(payload, &msg)
	if msg.RequestID == "" {
		msg.RequestID = uuid.NewString()
	}

	resp := l.execute(msg, decodeErr)

	topic := mqtt.Topics{}.LifecycleResponse(resp.RequestID)
	if err := l.pub.PublishJSON(topic, resp, false); err != nil {
		return fmt.Errorf("publishing response %s: %w", resp.RequestID, err)
	}
	return nil
}

func (l *CommandListener) execute(msg CommandMessage, decodeErr error) CommandResponse {
	resp := CommandResponse{RequestID: msg.RequestID, Command: msg.Command}

	if decodeErr != nil {
		resp.Error = fmt.Sprintf("decoding command: %v", decodeErr)
		return resp
	}
	if msg.Command == "" {
		resp.Error = ErrMissingCommand.Error()
		return resp
	}
	cmd, err := lifecycle.ParseCommand(msg.Command)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.Command = cmd.String()

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	res, err := l.loop.Submit(ctx, msg.Payload.Request(cmd, SourceMQTT))
	if err != nil {
		resp.Error = err.Error()
		l.logger.Warn("remote lifecycle command rejected",
			"request_id", msg.RequestID,
			"command", resp.Command,
			"error", err,
		)
		return resp
	}

	resp.OK = res.OK()
	resp.Failures = res.Failures
	resp.Duration = res.Duration
	l.logger.Info("remote lifecycle command executed",
		"request_id", msg.RequestID,
		"command", resp.Command,
		"failures", len(res.Failures),
	)
	return resp
}
