package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Command names accepted by Execute.
const (
	CommandSetDefault  = "setDefault"
	CommandSetSequence = "setSequence"
)

// Command is the JSON body accepted on /rpc and the MQTT command topic:
//
//	{"command": "setSequence", "sequenceID": 3, "speed": 500}
type Command struct {
	Command    *string `json:"command"`
	SequenceID *int    `json:"sequenceID"`
	Speed      *int    `json:"speed"`
}

// Result is the success response to a command.
type Result struct {
	OK         bool `json:"ok"`
	SequenceID int  `json:"sequenceID"`
	Speed      int  `json:"speed"`
}

// rawCommand defers decoding of the numeric fields to parseIntField.
type rawCommand struct {
	Command    *string         `json:"command"`
	SequenceID json.RawMessage `json:"sequenceID"`
	Speed      json.RawMessage `json:"speed"`
}

// ParseCommand decodes a command body. Unknown fields are ignored.
//
// sequenceID and speed are read leniently: fractional numbers are truncated
// toward zero and numeric strings are parsed, so 2.7 and "2" both read as 2.
// A null field counts as missing. A field holding anything else yields a
// *FieldError naming it.
func ParseCommand(data []byte) (Command, error) {
	var raw rawCommand
	if err := json.Unmarshal(data, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return Command{}, &FieldError{Field: typeErr.Field, Want: "a " + typeErr.Type.String(), Value: typeErr.Value}
		}
		return Command{}, fmt.Errorf("%w: %w", ErrMalformedCommand, err)
	}

	id, err := parseIntField("sequenceID", raw.SequenceID)
	if err != nil {
		return Command{}, err
	}
	sp, err := parseIntField("speed", raw.Speed)
	if err != nil {
		return Command{}, err
	}
	return Command{Command: raw.Command, SequenceID: id, Speed: sp}, nil
}

// parseIntField reads a JSON number or numeric string as an int, truncating
// fractions and saturating at the int range. An absent or null field is nil.
func parseIntField(name string, raw json.RawMessage) (*int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	text := string(raw)
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		text = strings.TrimSpace(str)
	}

	if n, err := strconv.Atoi(text); err == nil {
		return &n, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if (err != nil && !errors.Is(err, strconv.ErrRange)) || math.IsNaN(f) {
		return nil, &FieldError{Field: name, Want: "a number", Value: string(raw)}
	}

	var n int
	switch {
	case f >= math.MaxInt:
		n = math.MaxInt
	case f <= math.MinInt:
		n = math.MinInt
	default:
		n = int(f)
	}
	return &n, nil
}

// Execute runs a parsed command.
//
// setDefault requires both sequenceID and speed; setSequence takes either.
// A missing command, unknown command or missing required field yields a
// *RejectError.
func (c *Controller) Execute(ctx context.Context, cmd Command, source Source) (Result, error) {
	if cmd.Command == nil {
		return Result{}, &RejectError{Reason: "Unprocessable Entity"}
	}

	switch *cmd.Command {
	case CommandSetDefault:
		if cmd.SequenceID == nil {
			return Result{}, &RejectError{Reason: "Missing required field: sequenceID"}
		}
		if cmd.Speed == nil {
			return Result{}, &RejectError{Reason: "Missing required field: speed"}
		}
		st, err := c.SetDefault(ctx, *cmd.SequenceID, *cmd.Speed)
		if err != nil {
			return Result{}, err
		}
		return Result{OK: true, SequenceID: st.SequenceID, Speed: st.Speed.Milliseconds()}, nil

	case CommandSetSequence:
		st, err := c.SetSequence(ctx, SequenceRequest{SequenceID: cmd.SequenceID, Speed: cmd.Speed}, source)
		if err != nil {
			return Result{}, err
		}
		return Result{OK: true, SequenceID: st.SequenceID, Speed: st.Speed.Milliseconds()}, nil

	default:
		return Result{}, &RejectError{Reason: "Invalid command: " + *cmd.Command}
	}
}
