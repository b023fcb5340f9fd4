// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package resp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserWholeMessages(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Reply
	}{
		{
			name:  "SimpleString OK",
			input: "+OK\r\n",
			want:  []Reply{NewSimpleString([]byte("OK"))},
		},
		{
			name:  "Error generic",
			input: "-ERR unknown command\r\n",
			want:  []Reply{NewError([]byte("ERR unknown command"))},
		},
		{
			name:  "Error MOVED",
			input: "-MOVED 1234 127.0.0.1:7001\r\n",
			want:  []Reply{NewError([]byte("MOVED 1234 127.0.0.1:7001"))},
		},
		{
			name:  "Error ASK",
			input: "-ASK 1234 127.0.0.1:7001\r\n",
			want:  []Reply{NewError([]byte("ASK 1234 127.0.0.1:7001"))},
		},
		{
			name:  "Integer",
			input: ":1000\r\n",
			want:  []Reply{NewInteger(1000)},
		},
		{
			name:  "Negative integer",
			input: ":-1\r\n",
			want:  []Reply{NewInteger(-1)},
		},
		{
			name:  "BulkString",
			input: "$6\r\nfoobar\r\n",
			want:  []Reply{NewBulkString([]byte("foobar"))},
		},
		{
			name:  "BulkString empty (length 0 is empty string, not Null)",
			input: "$0\r\n\r\n",
			want:  []Reply{NewBulkString([]byte{})},
		},
		{
			name:  "BulkString Null",
			input: "$-1\r\n",
			want:  []Reply{NewNull()},
		},
		{
			name:  "Array of bulk strings",
			input: "*2\r\n$3\r\nfoo\r\n$3\r\nbar\r\n",
			want: []Reply{NewArray([]Reply{
				NewBulkString([]byte("foo")),
				NewBulkString([]byte("bar")),
			})},
		},
		{
			name:  "Array empty (count 0 is empty array, not Null)",
			input: "*0\r\n",
			want:  []Reply{NewArray(nil)},
		},
		{
			name:  "Array Null",
			input: "*-1\r\n",
			want:  []Reply{NewNull()},
		},
		{
			name:  "Nested array",
			input: "*2\r\n*2\r\n:1\r\n:2\r\n*1\r\n+ok\r\n",
			want: []Reply{NewArray([]Reply{
				NewArray([]Reply{NewInteger(1), NewInteger(2)}),
				NewArray([]Reply{NewSimpleString([]byte("ok"))}),
			})},
		},
		{
			name:  "Two replies back to back",
			input: "+OK\r\n:5\r\n",
			want:  []Reply{NewSimpleString([]byte("OK")), NewInteger(5)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser()
			got, err := p.Feed([]byte(tt.input))
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Truef(t, tt.want[i].Equal(got[i]), "reply %d: want %v got %v", i, tt.want[i], got[i])
			}
		})
	}
}

// TestParserRestartability feeds every valid message at every possible
// split point across two Feed calls and checks the resulting reply
// sequence matches feeding the whole message at once — the parser must
// not care where the stream happened to be chopped.
func TestParserRestartability(t *testing.T) {
	messages := []string{
		"+OK\r\n",
		"-ERR bad\r\n",
		":12345\r\n",
		"$6\r\nfoobar\r\n",
		"$0\r\n\r\n",
		"$-1\r\n",
		"*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n",
		"*2\r\n*2\r\n:1\r\n:2\r\n*1\r\n+ok\r\n",
		"*-1\r\n",
	}

	for _, msg := range messages {
		whole := NewParser()
		want, err := whole.Feed([]byte(msg))
		require.NoError(t, err)

		for split := 0; split <= len(msg); split++ {
			p := NewParser()
			got1, err := p.Feed([]byte(msg[:split]))
			require.NoError(t, err)
			got2, err := p.Feed([]byte(msg[split:]))
			require.NoError(t, err)

			got := append(got1, got2...)
			require.Lenf(t, got, len(want), "split %d of %q", split, msg)
			for i := range want {
				assert.Truef(t, want[i].Equal(got[i]), "split %d of %q: reply %d mismatch", split, msg, i)
			}
		}
	}
}

// TestParserRestartabilityByteAtATime is the extreme case of the above:
// one byte fed per call.
func TestParserRestartabilityByteAtATime(t *testing.T) {
	msg := "*3\r\n$3\r\nSET\r\n$5\r\nhello\r\n$5\r\nworld\r\n"

	whole := NewParser()
	want, err := whole.Feed([]byte(msg))
	require.NoError(t, err)

	p := NewParser()
	var got []Reply
	for i := 0; i < len(msg); i++ {
		rs, err := p.Feed([]byte{msg[i]})
		require.NoError(t, err)
		got = append(got, rs...)
	}
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(got[i]))
	}
}

func TestParserRoundTrip(t *testing.T) {
	replies := []Reply{
		NewNull(),
		NewInteger(0),
		NewInteger(-42),
		NewSimpleString([]byte("PONG")),
		NewBulkString([]byte("")),
		NewBulkString([]byte("hello world")),
		NewError([]byte("ERR nope")),
		NewArray(nil),
		NewArray([]Reply{NewInteger(1), NewBulkString([]byte("x")), NewArray([]Reply{NewNull()})}),
	}

	for _, r := range replies {
		p := NewParser()
		got, err := p.Feed(r.Encode())
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, r.Equal(got[0]), "round-trip mismatch for %v", r)
	}
}

func TestParserClassification(t *testing.T) {
	tests := []struct {
		input string
		want  Type
	}{
		{"-ERR bad\r\n", Error},
		{"-MOVED 1234 127.0.0.1:7001\r\n", MovedError},
		{"-ASK 1234 127.0.0.1:7001\r\n", AskError},
		{"-ASKING redundant\r\n", Error}, // "ASKING" isn't the "ASK " prefix
	}

	for _, tt := range tests {
		p := NewParser()
		got, err := p.Feed([]byte(tt.input))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, tt.want, got[0].Type)
	}
}

func TestParserMalformedBulkTerminator(t *testing.T) {
	p := NewParser()
	_, err := p.Feed([]byte("$3\r\nfooXX"))
	require.Error(t, err)
}

func TestParserIsString(t *testing.T) {
	assert.True(t, NewSimpleString(nil).IsString())
	assert.True(t, NewBulkString(nil).IsString())
	assert.True(t, NewError(nil).IsString())
	assert.True(t, NewError([]byte("MOVED 1 a:1")).IsString())
	assert.False(t, NewInteger(1).IsString())
	assert.False(t, NewArray(nil).IsString())
	assert.False(t, NewNull().IsString())
}

func TestParseRedirection(t *testing.T) {
	r := NewError([]byte("MOVED 1234 127.0.0.1:7001"))
	redir, ok := r.ParseRedirection()
	require.True(t, ok)
	assert.Equal(t, 1234, redir.Slot)
	assert.Equal(t, "127.0.0.1", redir.Host)
	assert.Equal(t, "7001", redir.Port)

	r = NewError([]byte("ASK 999 10.0.0.5:6380"))
	redir, ok = r.ParseRedirection()
	require.True(t, ok)
	assert.Equal(t, 999, redir.Slot)
	assert.Equal(t, "10.0.0.5", redir.Host)
	assert.Equal(t, "6380", redir.Port)

	_, ok = NewError([]byte("ERR nope")).ParseRedirection()
	assert.False(t, ok)
}
