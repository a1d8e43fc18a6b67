package toolbridge

import (
	"github.com/roelfdiedericks/cursor-bridge/internal/cursorproto"
	"github.com/roelfdiedericks/cursor-bridge/internal/cursorwire"
)

// field numbers for each exec type's raw Args submessage (spec §9: exec
// variant field numbers are inferred from traffic and extended
// conservatively following the field-1-is-primary convention already used
// throughout this schema). mcp's own tool_call_id occupies field 1 (see
// peekMcpCallID in cursorproto); its tool name and argument object follow
// at fields 2 and 3.
const (
	fieldShellCommand     = 1
	fieldShellDescription = 2
	fieldShellWorkdir     = 3

	fieldReadFilePath = 1

	fieldLsPath = 1

	fieldGrepPattern = 1
	fieldGrepPath    = 2
	fieldGrepGlob    = 3

	fieldWriteFilePath = 1
	fieldWriteContent  = 2

	fieldMcpName = 2
	fieldMcpArgs = 3
)

// DecodeExecArgs parses a pending exec request's raw Args bytes into the
// shape BuildToolCall expects (spec §4.4 step 3). For ExecMcp it also
// recovers the server's tool name and decodes its argument object via the
// generic Value codec, forwarded verbatim.
func DecodeExecArgs(execType cursorproto.ExecType, raw []byte) (args ExecArgs, mcpName string, mcpArgs any, err error) {
	fields, err := cursorwire.ParseFields(raw)
	if err != nil {
		return ExecArgs{}, "", nil, err
	}

	switch execType {
	case cursorproto.ExecShell:
		for _, f := range fields {
			switch f.Number {
			case fieldShellCommand:
				args.Command = string(f.Payload)
			case fieldShellDescription:
				args.Description = string(f.Payload)
			case fieldShellWorkdir:
				args.Workdir = string(f.Payload)
			}
		}
	case cursorproto.ExecRead:
		for _, f := range fields {
			if f.Number == fieldReadFilePath {
				args.FilePath = string(f.Payload)
			}
		}
	case cursorproto.ExecLs:
		for _, f := range fields {
			if f.Number == fieldLsPath {
				args.Path = string(f.Payload)
			}
		}
	case cursorproto.ExecGrep:
		for _, f := range fields {
			switch f.Number {
			case fieldGrepPattern:
				args.Pattern = string(f.Payload)
			case fieldGrepPath:
				args.Path = string(f.Payload)
			case fieldGrepGlob:
				args.Glob = string(f.Payload)
			}
		}
	case cursorproto.ExecWrite:
		for _, f := range fields {
			switch f.Number {
			case fieldWriteFilePath:
				args.FilePath = string(f.Payload)
			case fieldWriteContent:
				args.Content = string(f.Payload)
			}
		}
	case cursorproto.ExecMcp:
		for _, f := range fields {
			switch f.Number {
			case fieldMcpName:
				mcpName = string(f.Payload)
			case fieldMcpArgs:
				mcpArgs, err = cursorwire.DecodeValue(f.Payload)
				if err != nil {
					return ExecArgs{}, "", nil, err
				}
			}
		}
	}
	return args, mcpName, mcpArgs, nil
}
