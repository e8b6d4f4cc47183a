package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/park285/connect4-client/internal/board"
)

// Kind is the wire discriminator carried in the "type" field.
type Kind string

const (
	KindStart  Kind = "START"
	KindUpdate Kind = "UPDATE"
	KindOver   Kind = "OVER"
)

var (
	ErrMalformed   = errors.New("malformed server message")
	ErrUnknownType = errors.New("unknown server message type")
)

// Message is one decoded server push. The set of implementations is closed:
// Start, Update and Over.
type Message interface {
	Kind() Kind
	isMessage()
}

// Start announces the pairing. P1 always moves first.
type Start struct {
	P1 string
	P2 string
}

// Update carries the full board after a move and the next player to move.
// Board is nil when the grid was missing or not 6x7; BoardErr then says why.
type Update struct {
	Board    *board.Board
	Turn     int
	BoardErr error
}

// Over ends the match. Board is nil when the server omitted it or sent a
// grid that failed validation (BoardErr).
type Over struct {
	Winner   string
	Board    *board.Board
	Reason   string
	BoardErr error
}

func (Start) Kind() Kind  { return KindStart }
func (Update) Kind() Kind { return KindUpdate }
func (Over) Kind() Kind   { return KindOver }

func (Start) isMessage()  {}
func (Update) isMessage() {}
func (Over) isMessage()   {}

type envelope struct {
	Type   Kind            `json:"type"`
	P1     *string         `json:"p1"`
	P2     *string         `json:"p2"`
	Board  json.RawMessage `json:"board"`
	Turn   *int            `json:"turn"`
	Winner *string         `json:"winner"`
	Reason string          `json:"reason"`
}

// Decode parses a raw frame into its variant.
//
// Errors wrap ErrMalformed (not JSON, missing fields) or ErrUnknownType. A
// bad grid does not fail the frame: it is reported through BoardErr so the
// turn and winner still apply.
func Decode(raw []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case KindStart:
		if env.P1 == nil || env.P2 == nil {
			return nil, fmt.Errorf("%w: START requires p1 and p2", ErrMalformed)
		}
		return Start{P1: *env.P1, P2: *env.P2}, nil

	case KindUpdate:
		if env.Turn == nil {
			return nil, fmt.Errorf("%w: UPDATE requires turn", ErrMalformed)
		}
		if *env.Turn < 0 || *env.Turn > 2 {
			return nil, fmt.Errorf("%w: turn %d out of range", ErrMalformed, *env.Turn)
		}
		msg := Update{Turn: *env.Turn}
		if present(env.Board) {
			msg.Board, msg.BoardErr = decodeBoard(env.Board)
		} else {
			msg.BoardErr = fmt.Errorf("%w: UPDATE without board", board.ErrBoardShape)
		}
		return msg, nil

	case KindOver:
		if env.Winner == nil {
			return nil, fmt.Errorf("%w: OVER requires winner", ErrMalformed)
		}
		msg := Over{Winner: *env.Winner, Reason: env.Reason}
		if present(env.Board) {
			msg.Board, msg.BoardErr = decodeBoard(env.Board)
		}
		return msg, nil

	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, string(env.Type))
	}
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func decodeBoard(raw json.RawMessage) (*board.Board, error) {
	var grid [][]int
	if err := json.Unmarshal(raw, &grid); err != nil {
		return nil, fmt.Errorf("%w: %v", board.ErrBoardShape, err)
	}
	b, err := board.FromRows(grid)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// BoardError returns the grid validation error carried by msg, if any.
func BoardError(msg Message) error {
	switch v := msg.(type) {
	case Update:
		return v.BoardErr
	case Over:
		return v.BoardErr
	}
	return nil
}

// IsShapeError reports whether err came from board validation rather than
// from the envelope itself.
func IsShapeError(err error) bool {
	return errors.Is(err, board.ErrBoardShape) || errors.Is(err, board.ErrCellValue)
}

// MoveIntent is the only client-to-server frame.
type MoveIntent struct {
	Col int `json:"col"`
}
