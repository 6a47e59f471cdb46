package bot

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
)

const prefix string = "!"

const (
	COMMAND_PING = iota
	COMMAND_HELP = iota
)

const (
	PARSEID_OK                     = iota
	PARSEID_NO_BOT_PREFIX          = iota
	PARSEID_COMMAND_NOT_RECOGNISED = iota
)

var errorMessages map[int]string = map[int]string{
	PARSEID_COMMAND_NOT_RECOGNISED: "Command `%s` not recognised, try `!help`",
}

type ParseResult struct {
	command      int
	parseid      int
	errorMessage string
}

// Parse reads the text commands. Anything that does not look like
// "!word" is left alone, so chat like "!!!" or "! wow" is not answered.
func Parse(message string) ParseResult {

	// The message has to start with the bot prefix followed by a letter
	rest, ok := strings.CutPrefix(strings.TrimSpace(message), prefix)
	if !ok || rest == "" || !unicode.IsLetter([]rune(rest)[0]) {
		return ParseResult{parseid: PARSEID_NO_BOT_PREFIX}
	}
	commandString := strings.ToLower(strings.Fields(rest)[0])

	switch commandString {
	case "ping":
		// !ping
		return ParseResult{command: COMMAND_PING, parseid: PARSEID_OK}
	case "help":
		// !help
		return ParseResult{command: COMMAND_HELP, parseid: PARSEID_OK}
	default:
		log.Debug().Str("command", commandString).Msg("Text command not recognised")
		parseid := PARSEID_COMMAND_NOT_RECOGNISED
		return ParseResult{parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], commandString)}
	}
}

// A help request marker is "$" followed by at least three characters up to
// a newline, punctuation or the next "$".
var tokenPattern = regexp.MustCompile(`\$([^\n!?.,;:$]{3,})`)

// ScanTokens returns the raw text after every "$" marker of a message, in order.
func ScanTokens(content string) []string {
	matches := tokenPattern.FindAllStringSubmatch(content, -1)
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, m[1])
	}
	return tokens
}
