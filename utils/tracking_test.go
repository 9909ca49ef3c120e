package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salescrm/config"
)

func TestTrackingTokenRoundTrip(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"

	messageID := GenerateMessageID()
	token := TrackingToken(messageID)
	assert.Len(t, token, 20)

	assert.True(t, ValidateTrackingToken(messageID, token))
	assert.False(t, ValidateTrackingToken(messageID, "forged-token-value"))
	assert.False(t, ValidateTrackingToken("other-message", token))

	// a different secret yields a different token
	config.AppConfig.JWTSecret = "rotated-secret"
	assert.False(t, ValidateTrackingToken(messageID, token))
}

func TestInjectTracking(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"

	html := `<p>Deal inside: <a href="https://example.com/offer">click here</a></p>`
	out := InjectTracking(html, "https://crm.example.com", "msg-123")

	require.Contains(t, out, "/api/track/open/msg-123/")
	require.Contains(t, out, "/api/track/click/msg-123/")
	assert.Contains(t, out, "url=https%3A%2F%2Fexample.com%2Foffer")
	assert.NotContains(t, out, `href="https://example.com/offer"`)
	assert.True(t, strings.HasSuffix(out, `style="display:none">`))
}

func TestPersonalizeTemplate(t *testing.T) {
	body := "Hi {{first_name}} {{last_name}} from {{company}}, meet {{full_name}}."
	out := PersonalizeTemplate(body, "Dana", "Reyes", "Acme")
	assert.Equal(t, "Hi Dana Reyes from Acme, meet Dana Reyes.", out)
}
