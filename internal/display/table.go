package display

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/nick-prater/read-lw-sources/internal/advert"
	"github.com/nick-prater/read-lw-sources/internal/registry"
)

// Table renders the concise listing of every node heard on the group
// and the channels it offers. Only fully-decoded advertisements ever
// reach the registry, so the table never shows partial records.
type Table struct {
	w io.Writer
}

// NewTable creates a table renderer writing to w.
func NewTable(w io.Writer) *Table {
	return &Table{w: w}
}

// Render writes the current listing. Nodes without channel sections
// (node summaries, undocumented types) appear with an empty channel
// column rather than being hidden.
func (t *Table) Render(nodes []registry.Node) error {
	fmt.Fprintf(t.w, "\n%s  %d node(s)\n", time.Now().Format("15:04:05"), len(nodes))

	tw := tabwriter.NewWriter(t.w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tADDRESS\tLW CH\tCHANNEL NAME\tSOURCE\tSHARE")

	for _, node := range nodes {
		name := node.Name
		if name == "" {
			name = "(unnamed)"
		}

		if len(node.Channels) == 0 {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t-\n", name, node.Address)
			continue
		}

		for i, ch := range node.Channels {
			if i > 0 {
				// Repeat rows carry only channel columns.
				name = ""
			}
			addr := node.Address
			if i > 0 {
				addr = ""
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
				name, addr, ch.LivewireChannel, ch.Name, ch.FromSource, shareMark(ch.Shareable))
		}
	}

	return tw.Flush()
}

func shareMark(shareable bool) string {
	if shareable {
		return "yes"
	}
	return "no"
}

// Trace returns a decoder trace callback that reports every phrase on
// the diagnostic channel, opcode by opcode.
func Trace(logger *slog.Logger) advert.TraceFunc {
	return func(offset int, p advert.Phrase) {
		logger.Info("phrase",
			slog.Int("offset", offset),
			slog.String("opcode", string(p.Opcode)),
			slog.String("data_type", fmt.Sprintf("0x%02x", p.DataType)),
			slog.String("operand", fmt.Sprintf("% x", p.Operand)),
		)
	}
}
