package protocol

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// Encode marshals ev with its "type" discriminator. Unknown events are
// returned as received.
func Encode(ev Event) ([]byte, error) {
	if u, ok := ev.(Unknown); ok {
		return []byte(u.Raw), nil
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", ev.EventType(), err)
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("encode %s event: not a JSON object", ev.EventType())
	}

	typ, err := json.Marshal(ev.EventType())
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.Write(typ)
	if len(body) > 2 {
		buf.WriteByte(',')
	}
	buf.Write(body[1:])
	return buf.Bytes(), nil
}
