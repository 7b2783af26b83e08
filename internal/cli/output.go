// Package cli provides output helpers for the intentbot command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/intentbot/internal/corpus"
	"github.com/hyperjump/intentbot/internal/models"
	"github.com/hyperjump/intentbot/internal/snapshot"
	"github.com/hyperjump/intentbot/pkg/utils"
	"github.com/olekukonko/tablewriter"
)

// OutputFormat selects how command results are printed.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

// WriteReply writes a chat reply. Text mode prints only the response line.
func WriteReply(w io.Writer, resp *models.ChatResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	_, err := fmt.Fprintln(w, resp.Response)
	return err
}

// SnapshotSummary is the inspect view of a snapshot, optionally joined with
// the corpus it was trained on.
type SnapshotSummary struct {
	ID         string       `json:"id"`
	CreatedAt  time.Time    `json:"created_at"`
	InputSize  int          `json:"input_size"`
	HiddenSize int          `json:"hidden_size"`
	OutputSize int          `json:"output_size"`
	Tags       []TagSummary `json:"tags"`
}

// TagSummary describes one output class.
type TagSummary struct {
	Index     int    `json:"index"`
	Tag       string `json:"tag"`
	Patterns  int    `json:"patterns"`
	Responses int    `json:"responses"`
}

// Summarize builds a SnapshotSummary. c may be nil, in which case pattern and
// response counts are zero.
func Summarize(s *snapshot.Snapshot, c *corpus.Corpus) *SnapshotSummary {
	sum := &SnapshotSummary{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		InputSize:  s.InputSize,
		HiddenSize: s.HiddenSize,
		OutputSize: s.OutputSize,
		Tags:       make([]TagSummary, 0, len(s.Tags)),
	}
	for i, tag := range s.Tags {
		ts := TagSummary{Index: i, Tag: tag}
		if c != nil {
			if in, ok := c.Find(tag); ok {
				ts.Patterns = len(in.Patterns)
				ts.Responses = len(in.Responses)
			}
		}
		sum.Tags = append(sum.Tags, ts)
	}
	return sum
}

// WriteSnapshotSummary writes the inspect output.
func WriteSnapshotSummary(w io.Writer, sum *SnapshotSummary, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, sum)
	}
	fmt.Fprintf(w, "Snapshot:   %s\n", sum.ID)
	fmt.Fprintf(w, "Created:    %s\n", sum.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Layers:     %d -> %d -> %d\n\n", sum.InputSize, sum.HiddenSize, sum.OutputSize)
	table := newTable(w, []string{"#", "Tag", "Patterns", "Responses"})
	for _, t := range sum.Tags {
		table.Append([]string{strconv.Itoa(t.Index), t.Tag, strconv.Itoa(t.Patterns), strconv.Itoa(t.Responses)})
	}
	table.Render()
	return nil
}

// WriteTrainingRuns writes the training history, newest first.
func WriteTrainingRuns(w io.Writer, runs []*models.TrainingRun, format OutputFormat) error {
	if format == OutputJSON {
		if runs == nil {
			runs = []*models.TrainingRun{}
		}
		return writeJSON(w, runs)
	}
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No training runs recorded.")
		return err
	}
	table := newTable(w, []string{"Created", "Snapshot", "Examples", "Vocab", "Tags", "Epochs", "Loss", "Accuracy", "Duration"})
	for _, r := range runs {
		table.Append([]string{
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			utils.Truncate(r.SnapshotID, 8),
			strconv.Itoa(r.Examples),
			strconv.Itoa(r.Vocabulary),
			strconv.Itoa(r.Tags),
			strconv.Itoa(r.Epochs),
			fmt.Sprintf("%.4f", r.Loss),
			fmt.Sprintf("%.1f%%", r.Accuracy*100),
			(time.Duration(r.DurationMS) * time.Millisecond).String(),
		})
	}
	table.Render()
	return nil
}

// WriteStatus writes server status.
func WriteStatus(w io.Writer, st *models.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Engine:         %s\n", st.Engine)
	if st.SnapshotID != "" {
		fmt.Fprintf(w, "Backend:        %s\n", st.Backend)
		fmt.Fprintf(w, "Snapshot:       %s (%s)\n", st.SnapshotID, st.SnapshotCreatedAt.Format(time.RFC3339))
		fmt.Fprintf(w, "Layers:         %d -> %d -> %d\n", st.InputSize, st.HiddenSize, st.OutputSize)
		fmt.Fprintf(w, "Tags:           %s\n", strings.Join(st.Tags, ", "))
	}
	fmt.Fprintf(w, "Exchanges:      %d\n", st.Exchanges)
	fmt.Fprintf(w, "Training runs:  %d\n", st.TrainingRuns)
	fmt.Fprintf(w, "Disk usage:     %s\n", FormatBytes(st.DiskUsageBytes))
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
