package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"demoapi/pkg/domain"
)

// CreateRequest is the decoded body of a create call. Message holds the text
// form of the "message" value.
type CreateRequest struct {
	Message *string `json:"message" validate:"required"`
}

// RecordFields is the wire form of a stored record.
type RecordFields struct {
	ID      int64     `json:"id"`
	Message string    `json:"message"`
	Created time.Time `json:"created"`
}

type createBody struct {
	Message json.RawMessage `json:"message"`
}

// Transcoder converts request bodies into record input and records into
// their output mappings.
type Transcoder struct {
	validate *validator.Validate
}

// NewTranscoder returns a ready Transcoder.
func NewTranscoder() *Transcoder {
	return &Transcoder{validate: validator.New()}
}

// Decode parses raw as a UTF-8 JSON object with a "message" key. Strings are
// kept as sent; numbers, booleans and nested values are stored as text.
func (t *Transcoder) Decode(raw []byte) (CreateRequest, error) {
	if !utf8.Valid(raw) {
		return CreateRequest{}, &DecodeError{Reason: "body is not valid UTF-8"}
	}
	first, ok := firstJSONByte(raw)
	if !ok {
		return CreateRequest{}, &DecodeError{Reason: "empty body"}
	}
	if first != '{' {
		return CreateRequest{}, &DecodeError{Reason: "body is not a JSON object"}
	}
	var body createBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return CreateRequest{}, &DecodeError{Reason: "invalid JSON", Err: err}
	}
	msg, err := messageText(body.Message)
	if err != nil {
		return CreateRequest{}, &DecodeError{Reason: "invalid message value", Err: err}
	}
	req := CreateRequest{Message: msg}
	if err := t.validate.Struct(req); err != nil {
		return CreateRequest{}, &DecodeError{Reason: "message is required", Err: err}
	}
	return req, nil
}

// Encode maps records to output fields, preserving order.
func (t *Transcoder) Encode(records []domain.Record) []RecordFields {
	return lo.Map(records, func(rec domain.Record, _ int) RecordFields {
		return RecordFields{
			ID:      rec.ID,
			Message: rec.Message,
			Created: rec.Created,
		}
	})
}

// firstJSONByte returns the first byte that is not JSON insignificant
// whitespace.
func firstJSONByte(raw []byte) (byte, bool) {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return c, true
	}
	return 0, false
}

// messageText converts a raw "message" value to its stored text. A missing
// or null value yields nil.
func messageText(raw json.RawMessage) (*string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var text string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, err
		}
	case 't':
		text = "True"
	case 'f':
		text = "False"
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, err
		}
		text = buf.String()
	default:
		n, err := numberText(string(raw))
		if err != nil {
			return nil, err
		}
		text = n
	}
	return &text, nil
}

// numberText renders a JSON number the way it reads back as a stored text
// column: integers keep their digits, fractions always carry a decimal point.
func numberText(lit string) (string, error) {
	if !strings.ContainsAny(lit, ".eE") {
		if lit == "-0" {
			return "0", nil
		}
		return lit, nil
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return "", err
	}
	switch {
	case math.IsInf(f, 1):
		return "inf", nil
	case math.IsInf(f, -1):
		return "-inf", nil
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64), nil
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s, nil
}
