package parser

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `{"unitInformation":[
	{"shorthand":"FF","cost1":1.0,"upgrade":{"cost1":1.0}},
	{"shorthand":"EF","cost1":4.0,"upgrade":{"cost1":4.0}},
	{"shorthand":"DF","cost1":2.0,"upgrade":{"cost1":4.0}},
	{"shorthand":"PI","cost2":1.0},
	{"shorthand":"EI","cost2":3.0},
	{"shorthand":"SI","cost2":1.0},
	{"shorthand":"RM"},
	{"shorthand":"UP"}
],"resources":{"turnIntervalForBitSchedule":10}}`

func newTestParser() *Parser {
	return NewParser(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func TestClassify(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name string
		line string
		want MessageType
	}{
		{"config", testConfig, MessageConfig},
		{"turn", `{"turnInfo":[0,3,0,100]}`, MessageTurn},
		{"frame", `{"turnInfo":[1,3,12,100]}`, MessageFrame},
		{"end", `{"turnInfo":[2,30,5,100]}`, MessageEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Classify([]byte(tt.line))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_Errors(t *testing.T) {
	p := newTestParser()

	_, err := p.Classify([]byte(`not json`))
	assert.Error(t, err)

	_, err = p.Classify([]byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownMessage)

	_, err = p.Classify([]byte(`{"turnInfo":[7,1]}`))
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestMessageType_String(t *testing.T) {
	assert.Equal(t, "frame", MessageFrame.String())
	assert.Equal(t, "message(9)", MessageType(9).String())
}

func TestTurnOf(t *testing.T) {
	p := newTestParser()

	turn, err := p.TurnOf([]byte(`{"turnInfo":[0,17,0]}`))
	require.NoError(t, err)
	assert.Equal(t, 17, turn)

	_, err = p.TurnOf([]byte(`{"turnInfo":[0]}`))
	assert.Error(t, err)

	_, err = p.TurnOf([]byte(`not json`))
	assert.Error(t, err)
}
