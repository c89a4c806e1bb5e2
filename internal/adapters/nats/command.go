package natsadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samirrijal/navfence/internal/core/domain"
)

// ZoneCommands is the mutation surface driven by remote commands.
// usecases.ZoneService satisfies it.
type ZoneCommands interface {
	Add(ctx context.Context, name string, points []domain.Vec3) (domain.ZoneHandle, error)
	RemoveAt(ctx context.Context, index int) error
	ToggleAt(ctx context.Context, index int) error
	RenameAt(ctx context.Context, index int, name string) error
	SetPointsAt(ctx context.Context, index int, points []domain.Vec3) error
	Remove(ctx context.Context, h domain.ZoneHandle) error
	Toggle(ctx context.Context, h domain.ZoneHandle) error
	Rename(ctx context.Context, h domain.ZoneHandle, name string) error
	SetPoints(ctx context.Context, h domain.ZoneHandle, points []domain.Vec3) error
}

// ZoneCommand is the request body on the command subject. A zone is addressed
// by handle when one is given, otherwise by index.
type ZoneCommand struct {
	Action string        `json:"action"`
	Index  *int          `json:"index,omitempty"`
	Handle string        `json:"handle,omitempty"`
	Name   string        `json:"name,omitempty"`
	Points []domain.Vec3 `json:"points,omitempty"`
}

// CommandReply is sent back to the requester.
type CommandReply struct {
	OK     bool   `json:"ok"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
	Handle string `json:"handle,omitempty"`
}

var errBadCommand = errors.New("bad command")

// HandleCommand decodes and applies one command.
func HandleCommand(ctx context.Context, cmds ZoneCommands, data []byte) CommandReply {
	var cmd ZoneCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return replyErr(fmt.Errorf("%w: %v", errBadCommand, err))
	}

	handle, err := applyCommand(ctx, cmds, &cmd)
	if err != nil {
		return replyErr(err)
	}
	reply := CommandReply{OK: true}
	if !handle.IsZero() {
		reply.Handle = handle.String()
	}
	return reply
}

func applyCommand(ctx context.Context, cmds ZoneCommands, cmd *ZoneCommand) (domain.ZoneHandle, error) {
	if cmd.Action == "add" {
		return cmds.Add(ctx, cmd.Name, cmd.Points)
	}

	var (
		h      domain.ZoneHandle
		byName bool
	)
	switch {
	case cmd.Handle != "":
		parsed, err := domain.ParseZoneHandle(cmd.Handle)
		if err != nil {
			return domain.ZoneHandle{}, fmt.Errorf("%w: %v", errBadCommand, err)
		}
		h, byName = parsed, true
	case cmd.Index == nil:
		return domain.ZoneHandle{}, fmt.Errorf("%w: %s needs index or handle", errBadCommand, cmd.Action)
	}

	switch cmd.Action {
	case "remove":
		if byName {
			return h, cmds.Remove(ctx, h)
		}
		return h, cmds.RemoveAt(ctx, *cmd.Index)
	case "toggle":
		if byName {
			return h, cmds.Toggle(ctx, h)
		}
		return h, cmds.ToggleAt(ctx, *cmd.Index)
	case "set_points":
		if byName {
			return h, cmds.SetPoints(ctx, h, cmd.Points)
		}
		return h, cmds.SetPointsAt(ctx, *cmd.Index, cmd.Points)
	case "rename":
		if byName {
			return h, cmds.Rename(ctx, h, cmd.Name)
		}
		return h, cmds.RenameAt(ctx, *cmd.Index, cmd.Name)
	default:
		return domain.ZoneHandle{}, fmt.Errorf("%w: unknown action %q", errBadCommand, cmd.Action)
	}
}

func replyErr(err error) CommandReply {
	return CommandReply{Code: replyCode(err), Error: err.Error()}
}

func replyCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrIndexOutOfRange):
		return "failed_precondition"
	case errors.Is(err, domain.ErrZoneNotFound):
		return "not_found"
	case errors.Is(err, errBadCommand), errors.Is(err, domain.ErrInvalidPoint):
		return "bad_request"
	default:
		return "internal_error"
	}
}
