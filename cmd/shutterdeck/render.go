package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	shutterdeck "github.com/shutterdeck/go-client-sdk"
	"github.com/shutterdeck/go-client-sdk/api"
)

var (
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	labelStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	categoryColors = map[string]lipgloss.Color{
		api.EventCategory_Photo:      lipgloss.Color("86"),
		api.EventCategory_Collection: lipgloss.Color("141"),
		api.EventCategory_Client:     lipgloss.Color("39"),
		api.EventCategory_Guest:      lipgloss.Color("213"),
	}
)

const maxPayloadPreview = 96

func renderEnvelope(e api.Envelope) string {
	at := e.Time()
	if at.IsZero() {
		at = time.Now()
	}
	typeStyle := labelStyle
	if color, ok := categoryColors[e.Category()]; ok {
		typeStyle = typeStyle.Foreground(color)
	}
	line := lipgloss.JoinHorizontal(lipgloss.Left,
		timeStyle.Render(at.Format("15:04:05")),
		"  ",
		typeStyle.Render(fmt.Sprintf("%-24s", e.Type)),
	)
	if len(e.Data) > 0 {
		line += "  " + dimStyle.Render(preview(string(e.Data)))
	}
	return line
}

func renderClientEvent(event api.ClientEvent) string {
	switch event.EventType {
	case api.ClientEventType_StreamRetryScheduled:
		return warnStyle.Render(fmt.Sprintf("stream dropped, retrying in %v", event.EventData))
	case api.ClientEventType_StreamExhausted:
		return renderError(event.Error)
	case api.ClientEventType_SessionRefreshed:
		return dimStyle.Render("session refreshed")
	case api.ClientEventType_SessionExpired:
		return renderWarning("session expired")
	case api.ClientEventType_StreamDisconnected:
		return renderStatus("disconnected", false)
	}
	return ""
}

func renderProfile(profile *api.UserProfile, mustChangePassword bool) string {
	if profile == nil {
		return renderWarning("no profile")
	}
	name := profile.Name
	if name == "" {
		name = profile.Email
	}
	parts := []string{
		okStyle.Render("signed in"),
		labelStyle.Render(name),
		dimStyle.Render(fmt.Sprintf("<%s> %s", profile.Email, profile.Role)),
	}
	if profile.StudioName != "" {
		parts = append(parts, dimStyle.Render("@ "+profile.StudioName))
	}
	if mustChangePassword {
		parts = append(parts, warnStyle.Render("(password change required)"))
	}
	return strings.Join(parts, " ")
}

func renderResponse(resp *shutterdeck.Response) string {
	style := okStyle
	if resp.StatusCode >= 400 {
		style = errStyle
	}
	status := style.Render(resp.Status)
	if len(resp.Body) == 0 {
		return status
	}
	return status + "\n" + string(resp.Body)
}

func renderRefetch(path string, status, size int) string {
	return dimStyle.Render(fmt.Sprintf("refetched %s: %d (%d bytes)", path, status, size))
}

func renderStatus(text string, ok bool) string {
	if ok {
		return okStyle.Render(text)
	}
	return dimStyle.Render(text)
}

func renderWarning(text string) string {
	return warnStyle.Render(text)
}

func renderError(err error) string {
	if err == nil {
		return errStyle.Render("error")
	}
	return errStyle.Render(err.Error())
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= maxPayloadPreview {
		return s
	}
	return s[:maxPayloadPreview-1] + "…"
}

func renderTrace(method, path, requestID, status string, elapsed time.Duration) string {
	return dimStyle.Render(fmt.Sprintf("%s %s [%s] %s in %s", method, path, requestID, status, elapsed.Round(time.Millisecond)))
}
