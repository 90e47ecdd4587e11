package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oshokin/device-core/internal/domain/alarm"
	"github.com/oshokin/device-core/internal/domain/device"
	"github.com/oshokin/device-core/internal/logger"
	"github.com/oshokin/device-core/internal/service/tools"
	"github.com/oshokin/device-core/internal/transport"
)

// switchActions maps peripheral alarm actions to their switch tool and status.
//
//nolint:gochecknoglobals // Immutable lookup table.
var switchActions = map[alarm.Action]struct {
	tool   string
	status string
}{
	alarm.ActionOpenLight:   {tools.ToolClassroomLight, "on"},
	alarm.ActionCloseLight:  {tools.ToolClassroomLight, "off"},
	alarm.ActionOpenFan:     {tools.ToolSmartPlug, "on"},
	alarm.ActionCloseFan:    {tools.ToolSmartPlug, "off"},
	alarm.ActionOpenLED:     {tools.ToolLEDIndicator, "on"},
	alarm.ActionCloseLED:    {tools.ToolLEDIndicator, "off"},
	alarm.ActionOpenBuzzer:  {tools.ToolBuzzer, "on"},
	alarm.ActionCloseBuzzer: {tools.ToolBuzzer, "off"},
}

// DispatchAlarm runs the action of a fired alarm. It is called on the loop.
func (a *Application) DispatchAlarm(ctx context.Context, entry *alarm.Entry) {
	ctx = logger.WithKV(ctx, "alarm_action", entry.Action.String())

	if sw, ok := switchActions[entry.Action]; ok {
		a.callLocal(ctx, sw.tool, map[string]any{"status": sw.status}, nil)

		return
	}

	switch entry.Action {
	case alarm.ActionPlayMusic:
		if a.deps.Transport.IsChannelOpen() {
			a.deps.Transport.CloseChannel(ctx)
		}

		a.machine.Set(ctx, device.StateIdle)
		a.callLocal(ctx, tools.ToolPlaySong, map[string]any{
			"song_name":   entry.ActionParam,
			"artist_name": "",
		}, nil)
	case alarm.ActionStopMusic:
		a.deps.Audio.Stop()

		if music := a.deps.Board.Music; music != nil {
			music.StopStreaming()
		}
	case alarm.ActionReportStatus:
		a.callLocal(ctx, tools.ToolAllStatus, nil, func(ctx context.Context, text string) {
			a.sendAlarmText(ctx, statusMessage(text))
		})
	case alarm.ActionVoiceReminder, alarm.ActionCustomMessage:
		a.sendAlarmText(ctx, entry.Message())
	default:
		logger.Warn(ctx, "alarm has no action to run")
	}
}

// sendAlarmText delivers text to the server as an alarm command, opening the
// session channel first when needed.
func (a *Application) sendAlarmText(ctx context.Context, text string) {
	if !a.deps.Transport.IsChannelOpen() {
		if !a.openChannel(ctx) {
			logger.Error(ctx, "cannot deliver alarm text, session channel did not open")

			return
		}

		a.machine.Set(ctx, device.StateIdle)
	}

	err := a.session.SendTextToServer(ctx, text, transport.SourceAlarm)
	switch {
	case err == nil:
	case errNoSession(err):
		logger.Warn(ctx, "alarm text dropped, the server assigned no session")
	default:
		logger.ErrorKV(ctx, "failed to send alarm text", "error", err)
	}
}

// callLocal runs a tool on behalf of the device itself. onText receives the
// text content of a successful reply on the loop; failures are only logged.
func (a *Application) callLocal(
	ctx context.Context,
	tool string,
	arguments map[string]any,
	onText func(ctx context.Context, text string),
) {
	payload, err := a.toolCall(tool, arguments)
	if err != nil {
		logger.ErrorKV(ctx, "failed to encode local tool call", "tool", tool, "error", err)

		return
	}

	handled := a.tools.Handle(ctx, payload, func(ctx context.Context, reply []byte) {
		text, err := replyText(reply)
		if err != nil {
			logger.WarnKV(ctx, "local tool call failed", "tool", tool, "error", err)

			return
		}

		logger.DebugKV(ctx, "local tool call finished", "tool", tool, "result", text)

		if onText != nil {
			a.loop.Submit(func(ctx context.Context) { onText(ctx, text) })
		}
	})
	if !handled {
		logger.ErrorKV(ctx, "local tool call was not accepted", "tool", tool)
	}
}

// toolCall encodes a tools/call request with a fresh local id.
func (a *Application) toolCall(tool string, arguments map[string]any) ([]byte, error) {
	if arguments == nil {
		arguments = map[string]any{}
	}

	return json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      a.localID.Add(1),
		"method":  "tools/call",
		"params": map[string]any{
			"name":      tool,
			"arguments": arguments,
		},
	})
}

// errToolReply wraps the message of a tool error reply.
var errToolReply = errors.New("tool replied with an error")

// replyText extracts the text content of a tools/call reply.
func replyText(reply []byte) (string, error) {
	var resp struct {
		Result *struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(reply, &resp); err != nil {
		return "", fmt.Errorf("decode tool reply: %w", err)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("%w: %s", errToolReply, resp.Error.Message)
	}

	if resp.Result == nil || len(resp.Result.Content) == 0 {
		return "", nil
	}

	return resp.Result.Content[0].Text, nil
}

// statusMessage unwraps the message of a {success, message} tool result.
func statusMessage(text string) string {
	var body struct {
		Message string `json:"message"`
	}

	if err := json.Unmarshal([]byte(text), &body); err != nil || body.Message == "" {
		return text
	}

	return body.Message
}
