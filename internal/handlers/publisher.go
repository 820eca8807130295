package handlers

import (
	"html/template"
	"log/slog"
	"strings"

	"github.com/MegaGrindStone/sentichat/internal/chat"
	"github.com/MegaGrindStone/sentichat/internal/models"
	"github.com/tmaxmax/go-sse"
)

// publisher turns controller notifications into SSE events. It implements both chat.Renderer
// and theme.Marker.
type publisher struct {
	sseSrv    *sse.Server
	templates *template.Template

	logger *slog.Logger
}

// Refresh re-renders the transcript and the input controls.
func (p publisher) Refresh(state chat.State) {
	p.publishTemplate(transcriptSSEType, "transcript", state)
	p.publishTemplate(controlsSSEType, "controls", state)
}

// RefreshTranscript re-renders the transcript only, so text being typed survives a reply.
func (p publisher) RefreshTranscript(state chat.State) {
	p.publishTemplate(transcriptSSEType, "transcript", state)
}

// ScrollToEnd asks the page to scroll the transcript to its last message. The page delays the
// scroll slightly so entry animations have started first.
func (p publisher) ScrollToEnd() {
	p.publish(scrollSSEType, "end")
}

// ApplyTheme toggles the dark marker on every open page.
func (p publisher) ApplyTheme(theme models.Theme) {
	p.publish(themeSSEType, string(theme))
}

func (p publisher) publishTemplate(typ sse.EventType, name string, data any) {
	var sb strings.Builder
	if err := p.templates.ExecuteTemplate(&sb, name, data); err != nil {
		p.logger.Error("Failed to render template",
			slog.String("template", name),
			slog.String(errLoggerKey, err.Error()))
		return
	}
	p.publish(typ, sb.String())
}

func (p publisher) publish(typ sse.EventType, data string) {
	msg := sse.Message{
		Type: typ,
	}
	msg.AppendData(data)
	if err := p.sseSrv.Publish(&msg, sessionSSETopic); err != nil {
		p.logger.Error("Failed to publish event",
			slog.String("type", typ.String()),
			slog.String(errLoggerKey, err.Error()))
	}
}
