package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/realtime-ai/ferrolight/pkg/engine"
)

// RequestType names a control request.
type RequestType string

const (
	RequestTypeSetMode   RequestType = "set_mode"
	RequestTypeSendPulse RequestType = "send_pulse"
	RequestTypeStop      RequestType = "stop"
)

// Reply statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

var (
	// ErrUnknownRequest is returned for an unrecognised request type.
	ErrUnknownRequest = errors.New("control: unknown request type")
	// ErrInvalidColor is returned when base_color is not three bytes.
	ErrInvalidColor = errors.New("control: base_color must be three values in 0-255")
)

// Request is one of SetModeRequest, SendPulseRequest or StopRequest.
type Request interface {
	RequestType() RequestType
	GetID() string
	// Command converts the request into an engine command.
	Command() (engine.Command, error)
}

// BaseRequest contains the fields common to all requests.
type BaseRequest struct {
	ID   string      `json:"id,omitempty"`
	Type RequestType `json:"type"`
}

func (r BaseRequest) RequestType() RequestType {
	return r.Type
}

func (r BaseRequest) GetID() string {
	return r.ID
}

// SetModeRequest installs a scene.
type SetModeRequest struct {
	BaseRequest
	Mode      string  `json:"mode"`
	Tempo     float64 `json:"tempo"`
	BaseColor []int   `json:"base_color,omitempty"`
}

// Command implements Request.
func (r *SetModeRequest) Command() (engine.Command, error) {
	// the engine applies modes after the reply is sent
	if _, err := engine.PeriodFromTempo(r.Tempo, 1); err != nil {
		return nil, err
	}
	cmd := engine.SetMode{Mode: r.Mode, Tempo: r.Tempo}
	if r.BaseColor == nil {
		return cmd, nil
	}
	if len(r.BaseColor) != 3 {
		return nil, ErrInvalidColor
	}
	for _, v := range r.BaseColor {
		if v < 0 || v > 255 {
			return nil, ErrInvalidColor
		}
	}
	cmd.Color = &engine.RGB{R: uint8(r.BaseColor[0]), G: uint8(r.BaseColor[1]), B: uint8(r.BaseColor[2])}
	return cmd, nil
}

// SendPulseRequest plays a pulse. Duration is in seconds.
type SendPulseRequest struct {
	BaseRequest
	PulsePattern string  `json:"pulse_pattern"`
	Strength     float64 `json:"strength"`
	Duration     float64 `json:"duration"`
}

// Command implements Request.
func (r *SendPulseRequest) Command() (engine.Command, error) {
	if r.Duration < 0 {
		return nil, fmt.Errorf("control: negative pulse duration %v", r.Duration)
	}
	return engine.Pulse{
		Pattern:  r.PulsePattern,
		Strength: r.Strength,
		Duration: time.Duration(r.Duration * float64(time.Second)),
	}, nil
}

// StopRequest halts the rig and ends the server.
type StopRequest struct {
	BaseRequest
}

// Command implements Request.
func (r *StopRequest) Command() (engine.Command, error) {
	return engine.Stop{}, nil
}

// Reply answers exactly one request.
type Reply struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ParseRequest decodes a request from JSON.
func ParseRequest(data []byte) (Request, error) {
	var base BaseRequest
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("failed to parse request type: %w", err)
	}

	var req Request
	var err error

	switch base.Type {
	case RequestTypeSetMode:
		var r SetModeRequest
		err = json.Unmarshal(data, &r)
		req = &r

	case RequestTypeSendPulse:
		var r SendPulseRequest
		err = json.Unmarshal(data, &r)
		req = &r

	case RequestTypeStop:
		var r StopRequest
		err = json.Unmarshal(data, &r)
		req = &r

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRequest, base.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to parse %s request: %w", base.Type, err)
	}
	return req, nil
}

// NewRequest builds the wire request for cmd.
func NewRequest(id string, cmd engine.Command) (Request, error) {
	switch c := cmd.(type) {
	case engine.SetMode:
		r := &SetModeRequest{
			BaseRequest: BaseRequest{ID: id, Type: RequestTypeSetMode},
			Mode:        c.Mode,
			Tempo:       c.Tempo,
		}
		if c.Color != nil {
			r.BaseColor = []int{int(c.Color.R), int(c.Color.G), int(c.Color.B)}
		}
		return r, nil
	case engine.Pulse:
		return &SendPulseRequest{
			BaseRequest:  BaseRequest{ID: id, Type: RequestTypeSendPulse},
			PulsePattern: c.Pattern,
			Strength:     c.Strength,
			Duration:     c.Duration.Seconds(),
		}, nil
	case engine.Stop:
		return &StopRequest{BaseRequest: BaseRequest{ID: id, Type: RequestTypeStop}}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownRequest, cmd)
	}
}
