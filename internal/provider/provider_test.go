package provider

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageJSON_TextUsesStringContent(t *testing.T) {
	data, err := json.Marshal(TextMessage(RoleUser, "hello"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":"hello"}`, string(data))
}

func TestMessageJSON_MultipartUsesBlocks(t *testing.T) {
	msg := Message{Role: RoleUser, Content: []ContentBlock{
		TextBlock("what is this?"),
		ImageBlock("image/jpeg", "Zm9v"),
	}}

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"role": "user",
		"content": [
			{"type": "text", "text": "what is this?"},
			{"type": "image", "source": {"type": "base64", "media_type": "image/jpeg", "data": "Zm9v"}}
		]
	}`, string(data))

	var back Message
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, msg, back)
}

func TestMessageJSON_AcceptsStringContent(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"role":"assistant","content":"Let's think."}`), &msg))
	assert.Equal(t, TextMessage(RoleAssistant, "Let's think."), msg)
	assert.False(t, msg.IsMultipart())
}

func TestMessageJSON_RejectsInvalidContent(t *testing.T) {
	var msg Message
	assert.Error(t, json.Unmarshal([]byte(`{"role":"user","content":42}`), &msg))
}

func TestError(t *testing.T) {
	assert.Equal(t, "provider returned status 500", (&Error{Status: 500}).Error())
	assert.Equal(t, "provider returned status 401: bad key", (&Error{Status: 401, Message: "bad key"}).Error())
}
