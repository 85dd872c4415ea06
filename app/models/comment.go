package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CommentList is stored as a JSON array whose elements are themselves
// JSON-encoded strings, one per comment.
type CommentList []Comment

// NewComment builds a comment by user with the trimmed text, dated at now.
func NewComment(user, text string, now time.Time) Comment {
	return Comment{
		Date: now.UnixMilli(),
		Text: strings.TrimSpace(text),
		User: user,
	}
}

// Validate checks if the comment meets all validation requirements
func (c *Comment) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if strings.TrimSpace(c.Text) == "" {
		return errors.New("text cannot be blank")
	}
	return nil
}

// Time returns the comment date as a time.Time.
func (c Comment) Time() time.Time {
	return time.UnixMilli(c.Date)
}

// Encode returns the standalone JSON encoding of one comment.
func (c Comment) Encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode comment: %w", err)
	}
	return string(data), nil
}

// DecodeComment parses one element of the comments column.
func DecodeComment(s string) (Comment, error) {
	var c Comment
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return Comment{}, fmt.Errorf("failed to decode comment: %w", err)
	}
	return c, nil
}

// Strings encodes every comment individually.
func (l CommentList) Strings() ([]string, error) {
	out := make([]string, 0, len(l))
	for _, c := range l {
		s, err := c.Encode()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Append returns a new list with c at the end; l is left untouched.
func (l CommentList) Append(c Comment) CommentList {
	out := make(CommentList, len(l), len(l)+1)
	copy(out, l)
	return append(out, c)
}

func (l CommentList) MarshalJSON() ([]byte, error) {
	s, err := l.Strings()
	if err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// UnmarshalJSON accepts the string-per-element form and, for rows written
// by other tools, plain objects.
func (l *CommentList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("comments: %w", err)
	}
	out := make(CommentList, 0, len(raw))
	for i, elem := range raw {
		elem = bytes.TrimSpace(elem)
		var c Comment
		if len(elem) > 0 && elem[0] == '"' {
			var s string
			if err := json.Unmarshal(elem, &s); err != nil {
				return fmt.Errorf("comments[%d]: %w", i, err)
			}
			decoded, err := DecodeComment(s)
			if err != nil {
				return fmt.Errorf("comments[%d]: %w", i, err)
			}
			c = decoded
		} else if err := json.Unmarshal(elem, &c); err != nil {
			return fmt.Errorf("comments[%d]: %w", i, err)
		}
		out = append(out, c)
	}
	*l = out
	return nil
}
