package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentValidation(t *testing.T) {
	tests := []struct {
		name    string
		comment Comment
		wantErr bool
	}{
		{
			name:    "valid comment",
			comment: Comment{Date: 1, Text: "hello", User: "bob"},
			wantErr: false,
		},
		{
			name:    "blank text",
			comment: Comment{Date: 1, Text: "   ", User: "bob"},
			wantErr: true,
		},
		{
			name:    "missing user",
			comment: Comment{Date: 1, Text: "hello"},
			wantErr: true,
		},
		{
			name:    "zero date",
			comment: Comment{Text: "hello", User: "bob"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.comment.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewComment(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	c := NewComment("bob", "  great shot \n", now)

	assert.Equal(t, "bob", c.User)
	assert.Equal(t, "great shot", c.Text)
	assert.Equal(t, int64(1700000000123), c.Date)
	assert.True(t, c.Time().Equal(now))
}

func TestCommentListDecoding(t *testing.T) {
	t.Run("string elements", func(t *testing.T) {
		var l CommentList
		require.NoError(t, json.Unmarshal([]byte(`["{\"date\":5,\"text\":\"a\",\"user\":\"x\"}","{\"date\":6,\"text\":\"b\",\"user\":\"y\"}"]`), &l))
		require.Len(t, l, 2)
		assert.Equal(t, Comment{Date: 5, Text: "a", User: "x"}, l[0])
		assert.Equal(t, "y", l[1].User)
	})

	t.Run("object elements", func(t *testing.T) {
		var l CommentList
		require.NoError(t, json.Unmarshal([]byte(`[{"date":5,"text":"a","user":"x"}]`), &l))
		assert.Equal(t, CommentList{{Date: 5, Text: "a", User: "x"}}, l)
	})

	t.Run("null", func(t *testing.T) {
		l := CommentList{{Date: 1}}
		require.NoError(t, json.Unmarshal([]byte(`null`), &l))
		assert.Nil(t, l)
	})

	t.Run("garbage element", func(t *testing.T) {
		var l CommentList
		assert.Error(t, json.Unmarshal([]byte(`["not json"]`), &l))
	})
}

func TestCommentListAppend(t *testing.T) {
	base := CommentList{{Date: 1, Text: "a", User: "x"}}
	grown := base.Append(Comment{Date: 2, Text: "b", User: "y"})

	assert.Len(t, base, 1)
	assert.Len(t, grown, 2)
	assert.Equal(t, "b", grown[1].Text)
}
