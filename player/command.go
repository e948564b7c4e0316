package player

import (
	"sort"

	"github.com/comalice/embedx"
)

type commandKind int

const (
	cmdMessage commandKind = iota + 1
	cmdPause
	cmdResume
	cmdShow
	cmdOpenURL
	cmdUnload
	cmdQuit
)

var commandNames = map[commandKind]string{
	cmdMessage: "message",
	cmdPause:   "pause",
	cmdResume:  "resume",
	cmdShow:    "show",
	cmdOpenURL: "open_url",
	cmdUnload:  "unload",
	cmdQuit:    "quit",
}

func (k commandKind) String() string { return commandNames[k] }

// command is one queued host request with sequencing metadata.
type command struct {
	kind     commandKind
	msg      embedx.Message
	url      string
	exitCode int
	seq      uint64
}

// sortCommands orders commands by sequence number. Stable sort preserves
// submission order for held messages re-queued ahead of new ones.
func sortCommands(cmds []command) {
	sort.SliceStable(cmds, func(i, j int) bool {
		return cmds[i].seq < cmds[j].seq
	})
}
