package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"

	"github.com/BelikanM/cub/pkg/config"
	"github.com/BelikanM/cub/pkg/remote"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Format represents the output format type
type Format string

const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatText  Format = "text"
)

// GetOutputFormat returns the configured output format
func GetOutputFormat() Format {
	switch config.GetString("output.format") {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	default:
		return FormatText
	}
}

// ValidateOutputFormat checks if format is valid
func ValidateOutputFormat(format string) bool {
	return format == "json" || format == "table" || format == "text"
}

// columns shown per table, after id/owner/created_at
var tableColumns = map[string][]string{
	remote.TablePosts:   {"user_name", "content", "likes"},
	remote.TableMedia:   {"file_name", "file_type", "file_size", "description"},
	remote.TableFollows: {"followed_id"},
}

// itemJSON is the wire shape of an item in json output
type itemJSON struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"owner_id"`
	CreatedAt time.Time      `json:"created_at"`
	Fields    map[string]any `json:"fields"`
}

// PrintItems renders a list in the configured format
func PrintItems(table string, items []remote.Item) error {
	return WriteItems(color.Output, GetOutputFormat(), table, items)
}

// WriteItems renders a list to w in format
func WriteItems(w io.Writer, format Format, table string, items []remote.Item) error {
	switch format {
	case FormatJSON:
		out := make([]itemJSON, len(items))
		for i, it := range items {
			out[i] = itemJSON{ID: it.ID, OwnerID: it.OwnerID, CreatedAt: it.CreatedAt, Fields: it.Fields}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case FormatTable:
		cols := columnsFor(table, items)
		headers := append([]string{"ID", "OWNER", "CREATED"}, upper(cols)...)
		rows := make([][]string, len(items))
		for i, it := range items {
			row := []string{shortID(it.ID), shortID(it.OwnerID), it.CreatedAt.Local().Format(time.DateTime)}
			for _, c := range cols {
				row = append(row, cell(it.Fields[c]))
			}
			rows[i] = row
		}
		writeTable(w, headers, rows)
		return nil
	default:
		return writeItemsText(w, table, items)
	}
}

func writeItemsText(w io.Writer, table string, items []remote.Item) error {
	if len(items) == 0 {
		_, err := fmt.Fprintf(w, "No %s yet.\n", table)
		return err
	}
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)
	for _, it := range items {
		switch table {
		case remote.TablePosts:
			bold.Fprintf(w, "%s", fallback(it.String("user_name"), shortID(it.OwnerID)))
			faint.Fprintf(w, "  %s  [%s]\n", humanTime(it.CreatedAt), it.ID)
			if c := it.String("content"); c != "" {
				fmt.Fprintf(w, "  %s\n", c)
			}
			if img := it.String("image_url"); img != "" {
				fmt.Fprintf(w, "  image: %s\n", img)
			}
			fmt.Fprintf(w, "  likes: %d\n\n", it.Int("likes"))
		case remote.TableMedia:
			bold.Fprintf(w, "%s", it.String("file_name"))
			faint.Fprintf(w, "  %s  %s  [%s]\n", it.String("file_type"), humanSize(it.Int("file_size")), it.ID)
			if d := it.String("description"); d != "" {
				fmt.Fprintf(w, "  %s\n", d)
			}
			if u := it.String("public_url"); u != "" {
				fmt.Fprintf(w, "  %s\n", u)
			}
			fmt.Fprintln(w)
		case remote.TableFollows:
			fmt.Fprintf(w, "following %s since %s  [%s]\n", it.String("followed_id"), humanTime(it.CreatedAt), it.ID)
		default:
			fmt.Fprintf(w, "%s %v\n", it.ID, it.Fields)
		}
	}
	return nil
}

// PrintRecord outputs a single record in the configured format
func PrintRecord(title string, record map[string]any) error {
	return WriteRecord(color.Output, GetOutputFormat(), title, record)
}

// WriteRecord renders one record to w
func WriteRecord(w io.Writer, format Format, title string, record map[string]any) error {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	case FormatTable:
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{k, cell(record[k])})
		}
		writeTable(w, []string{"FIELD", "VALUE"}, rows)
		return nil
	default:
		if title != "" {
			fmt.Fprintf(w, "%s:\n", title)
		}
		bold := color.New(color.Bold)
		for _, k := range keys {
			bold.Fprint(w, k+": ")
			fmt.Fprintf(w, "%v\n", record[k])
		}
		return nil
	}
}

// PrintSuccess prints a success message
func PrintSuccess(msg string, args ...any) {
	color.New(color.FgGreen).Printf(msg+"\n", args...)
}

// PrintError prints an error message
func PrintError(msg string, args ...any) {
	color.New(color.FgRed).Printf("Error: "+msg+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(msg string, args ...any) {
	color.New(color.FgCyan).Printf(msg+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(msg string, args ...any) {
	color.New(color.FgYellow).Printf("Warning: "+msg+"\n", args...)
}

// FormatAsJSON converts data to a compact JSON string
func FormatAsJSON(data any) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeTable(w io.Writer, headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

func columnsFor(table string, items []remote.Item) []string {
	if cols, ok := tableColumns[table]; ok {
		return cols
	}
	seen := map[string]bool{}
	var cols []string
	for _, it := range items {
		for k := range it.Fields {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

func upper(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(s)
	}
	return out
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case float64:
		return fmt.Sprintf("%.0f", t)
	case string:
		if len(t) > 40 {
			return t[:37] + "..."
		}
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func humanTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Local().Format("2006-01-02")
	}
}

func humanSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
