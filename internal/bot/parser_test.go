package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		parseid int
		command int
		message string
	}{
		{input: "!ping", parseid: PARSEID_OK, command: COMMAND_PING},
		{input: "  !PING  ", parseid: PARSEID_OK, command: COMMAND_PING},
		{input: "!help me", parseid: PARSEID_OK, command: COMMAND_HELP},
		{input: "!register someone", parseid: PARSEID_COMMAND_NOT_RECOGNISED, message: "Command `register` not recognised, try `!help`"},
		{input: "hello", parseid: PARSEID_NO_BOT_PREFIX},
		{input: "!", parseid: PARSEID_NO_BOT_PREFIX},
		{input: "!!!", parseid: PARSEID_NO_BOT_PREFIX},
		{input: "! wow", parseid: PARSEID_NO_BOT_PREFIX},
		{input: "", parseid: PARSEID_NO_BOT_PREFIX},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := Parse(tt.input)
			assert.Equal(t, tt.parseid, result.parseid)
			if tt.parseid == PARSEID_OK {
				assert.Equal(t, tt.command, result.command)
			}
			assert.Equal(t, tt.message, result.errorMessage)
		})
	}
}
