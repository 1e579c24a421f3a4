package relay

import "encoding/json"

// frameMessage is the publisher wire record. Unrecognized fields are ignored;
// Frame is a pointer so that an absent field and a present empty string can
// be told apart — only a present string value is publishable.
type frameMessage struct {
	Frame *string `json:"frame"`
}

// parseFrame extracts the frame payload from a publisher message. It returns
// false for anything that is not a JSON object carrying a string-valued
// "frame" field; such messages are discarded by the caller without
// disturbing the connection.
func parseFrame(data []byte) (string, bool) {
	var msg frameMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", false
	}
	if msg.Frame == nil {
		return "", false
	}
	return *msg.Frame, true
}

// encodeFrame builds the relay→viewer payload. Only the frame field is
// forwarded, regardless of what else the publisher sent.
func encodeFrame(frame string) []byte {
	data, err := json.Marshal(struct {
		Frame string `json:"frame"`
	}{Frame: frame})
	if err != nil {
		// A string field cannot fail to marshal.
		return nil
	}
	return data
}
