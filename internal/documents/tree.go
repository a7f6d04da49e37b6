package documents

import (
	"encoding/json"
	"fmt"
	"time"
)

// treeNode mirrors an entry of the note application's file_tree.json.
type treeNode struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	UpdatedAt string     `json:"updatedAt"`
	Children  []treeNode `json:"children"`
}

// journalEntry mirrors one element of GET /api/files/journals.
type journalEntry struct {
	Name      string `json:"name"`
	UpdatedAt string `json:"updatedAt"`
}

func parseTree(data []byte) ([]treeNode, error) {
	var nodes []treeNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("parsing file tree: %w", err)
	}
	return nodes, nil
}

// walkFiles calls fn for every file node, depth first, in tree order.
func walkFiles(nodes []treeNode, fn func(treeNode)) {
	for _, n := range nodes {
		if n.Type == "file" {
			fn(n)
		}
		if len(n.Children) > 0 {
			walkFiles(n.Children, fn)
		}
	}
}

// The note application writes naive ISO-8601 local timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
