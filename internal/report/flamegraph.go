package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/zeebo/xxh3"

	"github.com/callscope/callscope/internal/profiler"
)

// FlameNode is one merged node of the flame graph: all occurrences of the
// same call path collapse into a single node whose value is the summed
// inclusive duration in nanoseconds.
type FlameNode struct {
	// ID is a stable hash of the full call path, usable as a node key by
	// viewers.
	ID uint64 `json:"id"`
	// Name is the function name, or "root" for the synthetic root.
	Name string `json:"name"`
	// Value is the inclusive duration in nanoseconds summed over every
	// occurrence of this call path.
	Value int64 `json:"value"`
	// Calls is the number of occurrences merged into this node.
	Calls    uint64       `json:"calls"`
	Children []*FlameNode `json:"children,omitempty"`
}

// FlameGraphReporter renders the call tree as flame graph JSON or as a
// self-contained HTML page embedding it.
type FlameGraphReporter struct{}

// Build merges the snapshot's call tree into a flame graph rooted at a
// synthetic "root" node covering the whole session.
func (r *FlameGraphReporter) Build(stats *profiler.Stats) *FlameNode {
	root := &FlameNode{
		ID:    xxh3.HashString("root"),
		Name:  "root",
		Value: int64(stats.TotalTime),
	}
	for _, frame := range stats.Roots {
		mergeFrame(root, frame, "root")
	}
	return root
}

// mergeFrame folds one call frame (and its subtree) into the merged node
// tree under parent.
func mergeFrame(parent *FlameNode, frame *profiler.CallFrame, path string) {
	path = path + ";" + frame.Name

	var node *FlameNode
	for _, c := range parent.Children {
		if c.Name == frame.Name {
			node = c
			break
		}
	}
	if node == nil {
		node = &FlameNode{
			ID:   xxh3.HashString(path),
			Name: frame.Name,
		}
		parent.Children = append(parent.Children, node)
	}
	node.Value += int64(frame.Duration())
	node.Calls++

	for _, child := range frame.Children {
		mergeFrame(node, child, path)
	}
}

// WriteJSON writes the flame graph as indented JSON.
func (r *FlameGraphReporter) WriteJSON(stats *profiler.Stats, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.Build(stats)); err != nil {
		return fmt.Errorf("failed to encode flame graph: %w", err)
	}
	return nil
}

// WriteHTML writes a self-contained HTML page with the flame graph data
// embedded, rendered with d3-flame-graph.
func (r *FlameGraphReporter) WriteHTML(stats *profiler.Stats, w io.Writer) error {
	data, err := json.Marshal(r.Build(stats))
	if err != nil {
		return fmt.Errorf("failed to encode flame graph: %w", err)
	}
	return flameTemplate.Execute(w, flamePage{
		SessionID: stats.SessionID,
		TotalSecs: stats.TotalTime.Seconds(),
		Functions: len(stats.Ranked),
		Data:      template.JS(data), //nolint:gosec // Marshaled JSON, not user HTML.
	})
}

type flamePage struct {
	SessionID string
	TotalSecs float64
	Functions int
	Data      template.JS
}

var flameTemplate = template.Must(template.New("flamegraph").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>callscope flame graph</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/d3-flame-graph@4/dist/d3-flamegraph.css">
  <style>
    body { font-family: sans-serif; margin: 20px; }
    .info { background: #f0f0f0; padding: 12px; border-radius: 4px; margin-bottom: 16px; }
  </style>
</head>
<body>
  <div class="info">
    <strong>Session {{.SessionID}}</strong> &mdash;
    {{printf "%.6f" .TotalSecs}}s, {{.Functions}} functions
  </div>
  <div id="chart"></div>
  <script src="https://cdn.jsdelivr.net/npm/d3@7"></script>
  <script src="https://cdn.jsdelivr.net/npm/d3-flame-graph@4/dist/d3-flamegraph.min.js"></script>
  <script>
    const data = {{.Data}};
    const chart = flamegraph().width(document.body.clientWidth - 40);
    d3.select("#chart").datum(data).call(chart);
  </script>
</body>
</html>
`))
