package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Command tags an inbound frame.
type Command string

const (
	CmdStartGame       Command = "START_GAME"
	CmdNextQuestion    Command = "NEXT_QUESTION"
	CmdShowLeaderboard Command = "SHOW_LEADERBOARD"
	CmdEndGame         Command = "END_GAME"
	CmdSubmitAnswer    Command = "SUBMIT_ANSWER"
)

// ErrUnknownCommand is returned for frames whose type is not valid for the role.
var ErrUnknownCommand = errors.New("unsupported message type")

// SubmitAnswer is a participant answer. Answer holds the raw value as text:
// an option index, a typed string, or an "x,y" pair. TimeLeft is NaN when the
// client sent something that is not a number.
type SubmitAnswer struct {
	Answer   string
	TimeLeft float64
}

type inboundFrame struct {
	Type     Command         `json:"type"`
	Answer   json.RawMessage `json:"answer"`
	TimeLeft json.RawMessage `json:"time_left"`
}

// Encode renders a message as a flat JSON object with its "type" tag first.
func Encode(m Message) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Event(), err)
	}
	tag, _ := json.Marshal(string(m.Event()))

	var buf bytes.Buffer
	buf.Grow(len(body) + len(tag) + 10)
	buf.WriteString(`{"type":`)
	buf.Write(tag)
	if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DecodeHost parses a host command frame.
func DecodeHost(data []byte) (Command, error) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return "", fmt.Errorf("decode host frame: %w", err)
	}
	switch frame.Type {
	case CmdStartGame, CmdNextQuestion, CmdShowLeaderboard, CmdEndGame:
		return frame.Type, nil
	}
	return "", ErrUnknownCommand
}

// DecodePlayer parses a participant frame. Malformed answer values are not an
// error here; they are judged as wrong answers later.
func DecodePlayer(data []byte) (SubmitAnswer, error) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return SubmitAnswer{}, fmt.Errorf("decode player frame: %w", err)
	}
	if frame.Type != CmdSubmitAnswer {
		return SubmitAnswer{}, ErrUnknownCommand
	}
	return SubmitAnswer{
		Answer:   rawText(frame.Answer),
		TimeLeft: rawNumber(frame.TimeLeft),
	}, nil
}

// rawText unquotes JSON strings and keeps any other literal as written.
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func rawNumber(raw json.RawMessage) float64 {
	text := strings.TrimSpace(rawText(raw))
	if text == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}
