package emailsvc

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/services/logger"
)

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	conf := &core.Config{AppName: "Elimu", DefaultFromEmail: "Elimu <noreply@elimu.test>"}
	svc := NewConsoleServiceMock(conf, logsvc.NopLogger{})

	to := []mail.Address{{Name: "John", Address: "john@test.cd"}}
	svc.SendMessages(
		&core.EmailMessage{To: to, Subject: "Hello", BodyStr: "Line 1\nLine <2>\n\nBye"},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "dropped"},
		&core.EmailMessage{To: to, Subject: "no content"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Hello", sent[0].Subject)
	assert.Equal(t, "Line 1\nLine <2>\n\nBye", sent[0].TextContent)
	assert.Equal(t, "<p>Line 1<br>Line &lt;2&gt;</p><p>Bye</p>", sent[0].HTMLContent)
}
