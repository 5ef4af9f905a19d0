package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderTemplate(t *testing.T) {
	bot := openBot()
	bot.Language = "sk"
	up := privateUpdate("/start")
	at := time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC)

	got := RenderTemplate("Ahoj {first_name}! (@{username}, {language}, {time})", bot, up, at)
	assert.Equal(t, "Ahoj Eva! (@eva_k, sk, 09:26)", got)
}

func TestRenderTemplateUnknownPlaceholder(t *testing.T) {
	got := RenderTemplate("hi {nope} {first_name}", openBot(), privateUpdate("x"), time.Now())
	assert.Equal(t, "hi {nope} Eva", got)
}
