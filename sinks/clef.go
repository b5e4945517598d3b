package sinks

import (
	"encoding/json"
	"strings"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/parser"
)

// CLEFTimestampLayout is the CLEF timestamp format: UTC with 100ns
// precision.
const CLEFTimestampLayout = "2006-01-02T15:04:05.0000000Z"

// FormatCLEF encodes an event as one line of Compact Log Event Format.
//
// Reserved fields are @t, @mt, @m, @l and @x. A property whose name starts
// with '@' is written with the '@' doubled so it cannot collide with them.
// Values that cannot be encoded as JSON are written as text.
func FormatCLEF(event *core.LogEvent) ([]byte, error) {
	clef := make(map[string]any, len(event.Properties)+5)

	clef["@t"] = event.Timestamp.UTC().Format(CLEFTimestampLayout)
	clef["@mt"] = event.TemplateText()
	clef["@m"] = event.RenderMessage()
	if event.Level != core.InformationLevel {
		clef["@l"] = event.Level.String()
	}
	if event.Error != nil {
		clef["@x"] = event.Error.Error()
	}

	for name, value := range event.Properties {
		if strings.HasPrefix(name, "@") {
			name = "@" + name
		}
		if _, err := json.Marshal(value); err != nil {
			value = parser.ToText(value)
		}
		clef[name] = value
	}

	return json.Marshal(clef)
}
