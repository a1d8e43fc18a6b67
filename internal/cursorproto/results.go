package cursorproto

import "github.com/roelfdiedericks/cursor-bridge/internal/cursorwire"

// ShellResult is the inner body of ExecClientMessage field 2 (spec §4.2,
// scenario S4). Field 6 is left unnamed: the wire traces that fixed this
// schema never populate it, and spec §9 directs extending unknown slots
// conservatively rather than guessing their meaning.
type ShellResult struct {
	Command  string
	Cwd      string
	Exit     int32
	Stderr   string
	Stdout   string
	ExecTime int32
}

func (r ShellResult) Marshal() []byte {
	var buf []byte
	buf = cursorwire.String(buf, 1, r.Command)
	buf = cursorwire.String(buf, 2, r.Cwd)
	buf = cursorwire.Int32(buf, 3, r.Exit)
	buf = cursorwire.String(buf, 4, r.Stderr)
	buf = cursorwire.String(buf, 5, r.Stdout)
	buf = cursorwire.Int32(buf, 7, r.ExecTime)
	return buf
}

// WriteResult covers both the success and failure variants of the write
// exec reply (spec §4.4 step 3).
type WriteResult struct {
	Error                 string
	LinesCreated          int32
	FileSize              int32
	FileContentAfterWrite string
}

func (r WriteResult) Marshal() []byte {
	if r.Error != "" {
		var buf []byte
		buf = cursorwire.String(buf, 1, r.Error)
		return buf
	}
	var buf []byte
	buf = cursorwire.Int32(buf, 2, r.LinesCreated)
	buf = cursorwire.Int32(buf, 3, r.FileSize)
	buf = cursorwire.String(buf, 4, r.FileContentAfterWrite)
	return buf
}

// ReadResult is the inner body of ExecClientMessage field 6.
type ReadResult struct {
	Content    string
	TotalLines int32
	FileSize   int32
	Truncated  bool
}

func (r ReadResult) Marshal() []byte {
	var buf []byte
	buf = cursorwire.String(buf, 1, r.Content)
	buf = cursorwire.Int32(buf, 2, r.TotalLines)
	buf = cursorwire.Int32(buf, 3, r.FileSize)
	buf = cursorwire.Bool(buf, 4, r.Truncated)
	return buf
}

// GrepResult is the inner body of ExecClientMessage field 7: non-empty
// lines from the tool result content.
type GrepResult struct {
	Lines []string
}

func (r GrepResult) Marshal() []byte {
	var buf []byte
	for _, l := range r.Lines {
		buf = cursorwire.String(buf, 1, l)
	}
	return buf
}

// LsResult is the inner body of ExecClientMessage field 4.
type LsResult struct {
	Files string
}

func (r LsResult) Marshal() []byte {
	var buf []byte
	buf = cursorwire.String(buf, 1, r.Files)
	return buf
}

// TextContentBlock is one entry of an McpResult's success content list.
type TextContentBlock struct {
	Text string
}

func (b TextContentBlock) Marshal() []byte {
	return cursorwire.String(nil, 1, b.Text)
}

// McpResult wraps either a successful content list or a failure message
// (spec scenario S3). Exactly one of Success/Failure is populated.
type McpResult struct {
	Success []TextContentBlock
	Failure string
}

func (r McpResult) Marshal() []byte {
	if r.Failure != "" {
		var buf []byte
		buf = cursorwire.String(buf, 2, r.Failure)
		return buf
	}
	var content []byte
	for _, block := range r.Success {
		content = cursorwire.Message(content, 1, block.Marshal())
	}
	success := cursorwire.Message(nil, 1, content)
	return cursorwire.Message(nil, 1, success)
}
