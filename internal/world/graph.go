// Package world maintains the authoritative project-state graph: one node
// per tracked component, edges for their relationships, and aggregate
// progress/quality measures. The graph is the only mutable resource shared
// between concurrent workflow runs, so every mutating call takes the graph
// lock and snapshots the result to disk before returning.
package world

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"maestro/internal/logging"
	"maestro/internal/persist"
)

// ============================================================================
// NODE & EDGE TYPES
// ============================================================================

// NodeStatus is the lifecycle state of a tracked component.
type NodeStatus string

const (
	StatusNotStarted NodeStatus = "not_started"
	StatusInProgress NodeStatus = "in_progress"
	StatusCompleted  NodeStatus = "completed"
	StatusDeprecated NodeStatus = "deprecated"
	StatusBlocked    NodeStatus = "blocked"
)

// defaultPercent maps each status to the completion assumed when a caller
// changes status without supplying an explicit percentage.
var defaultPercent = map[NodeStatus]float64{
	StatusNotStarted: 0,
	StatusInProgress: 50,
	StatusCompleted:  100,
	StatusDeprecated: 0,
	StatusBlocked:    25,
}

// ValidStatus reports whether s is a recognized node status.
func ValidStatus(s NodeStatus) bool {
	_, ok := defaultPercent[s]
	return ok
}

// Node is one component in the world model. Nodes are never deleted;
// obsolete components are marked Deprecated instead.
type Node struct {
	ID              string            `json:"id"`
	Type            string            `json:"type"`
	Status          NodeStatus        `json:"status"`
	PercentComplete float64           `json:"percentComplete"` // 0-100
	Quality         float64           `json:"quality"`         // 0-100, 0 when unassessed
	Owner           string            `json:"owner,omitempty"`
	Priority        string            `json:"priority,omitempty"`
	Blockers        []string          `json:"blockers,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// Edge is a directed relationship between two existing nodes.
type Edge struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Relation  string    `json:"relation"`
	Label     string    `json:"label,omitempty"`
	Strength  float64   `json:"strength"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NodeSpec describes an upsert. Pointer fields distinguish "not provided"
// from zero values so merges only touch what the caller set.
type NodeSpec struct {
	ID              string
	Type            string
	Status          NodeStatus
	PercentComplete *float64
	Quality         *float64
	Owner           string
	Priority        string
	Blockers        []string
	Metadata        map[string]string
}

// EdgeSpec describes an edge upsert. Edges are keyed by (From, To, Relation).
type EdgeSpec struct {
	From     string
	To       string
	Relation string
	Label    string
	Strength float64
}

// StatusUpdate mutates only the lifecycle fields of an existing node.
type StatusUpdate struct {
	Status          NodeStatus
	PercentComplete *float64
	Notes           string
}

// ============================================================================
// ERRORS
// ============================================================================

// NotFoundError reports a mutation referencing an unknown node id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("world: node %q not found", e.ID)
}

// ReferentialError reports an edge naming an endpoint absent from the graph.
type ReferentialError struct {
	EdgeFrom string
	EdgeTo   string
	Missing  string
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("world: edge %s->%s references missing node %q", e.EdgeFrom, e.EdgeTo, e.Missing)
}

// ============================================================================
// GRAPH
// ============================================================================

// snapshot is the persisted document form of the graph.
type snapshot struct {
	GraphID   string           `json:"graphId"`
	UpdatedAt time.Time        `json:"updatedAt"`
	Nodes     map[string]*Node `json:"nodes"`
	Edges     map[string]*Edge `json:"edges"`
}

// Graph is the single authoritative world model instance. All exported
// methods are safe for concurrent use.
type Graph struct {
	mu sync.RWMutex

	graphID string
	nodes   map[string]*Node
	edges   map[string]*Edge

	snapshotPath string
	backupPath   string
	now          func() time.Time
}

// NewGraph creates an empty graph persisting to snapshotPath with a single
// backup slot at backupPath. Empty paths disable persistence (used in tests).
func NewGraph(snapshotPath, backupPath string) *Graph {
	return &Graph{
		graphID:      uuid.NewString(),
		nodes:        make(map[string]*Node),
		edges:        make(map[string]*Edge),
		snapshotPath: snapshotPath,
		backupPath:   backupPath,
		now:          time.Now,
	}
}

// LoadGraph restores a graph from its snapshot, returning an empty graph
// when no snapshot exists yet.
func LoadGraph(snapshotPath, backupPath string) (*Graph, error) {
	g := NewGraph(snapshotPath, backupPath)
	if snapshotPath == "" {
		return g, nil
	}

	var snap snapshot
	err := persist.ReadDocument(snapshotPath, &snap)
	if err != nil {
		if persist.IsNotExist(err) {
			return g, nil
		}
		return nil, err
	}

	if snap.GraphID != "" {
		g.graphID = snap.GraphID
	}
	if snap.Nodes != nil {
		g.nodes = snap.Nodes
	}
	if snap.Edges != nil {
		g.edges = snap.Edges
	}
	logging.World("loaded graph %s: %d nodes, %d edges", g.graphID, len(g.nodes), len(g.edges))
	return g, nil
}

// UpsertNode merges spec into an existing node or creates one with defaults
// (status not_started, percentComplete 0). New values win on overlap.
func (g *Graph) UpsertNode(spec NodeSpec) (Node, error) {
	if spec.ID == "" {
		return Node{}, fmt.Errorf("world: node spec requires an id")
	}
	if spec.Status != "" && !ValidStatus(spec.Status) {
		return Node{}, fmt.Errorf("world: unknown node status %q", spec.Status)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	n, ok := g.nodes[spec.ID]
	if !ok {
		n = &Node{
			ID:        spec.ID,
			Status:    StatusNotStarted,
			CreatedAt: now,
		}
		g.nodes[spec.ID] = n
	}

	if spec.Type != "" {
		n.Type = spec.Type
	}
	if spec.Status != "" {
		n.Status = spec.Status
	}
	if spec.PercentComplete != nil {
		n.PercentComplete = clampPct(*spec.PercentComplete)
	}
	if spec.Quality != nil {
		n.Quality = clampPct(*spec.Quality)
	}
	if spec.Owner != "" {
		n.Owner = spec.Owner
	}
	if spec.Priority != "" {
		n.Priority = spec.Priority
	}
	if spec.Blockers != nil {
		n.Blockers = append([]string(nil), spec.Blockers...)
	}
	for k, v := range spec.Metadata {
		if n.Metadata == nil {
			n.Metadata = make(map[string]string)
		}
		n.Metadata[k] = v
	}
	n.UpdatedAt = now

	if err := g.writeSnapshotLocked(); err != nil {
		return *n, err
	}
	logging.World("upserted node %s (status=%s, %.0f%%)", n.ID, n.Status, n.PercentComplete)
	return *n, nil
}

// UpsertEdge merges spec into an existing edge or creates one. Both
// endpoints must already exist in the graph.
func (g *Graph) UpsertEdge(spec EdgeSpec) (Edge, error) {
	if spec.From == "" || spec.To == "" || spec.Relation == "" {
		return Edge{}, fmt.Errorf("world: edge spec requires from, to and relation")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[spec.From]; !ok {
		return Edge{}, &ReferentialError{EdgeFrom: spec.From, EdgeTo: spec.To, Missing: spec.From}
	}
	if _, ok := g.nodes[spec.To]; !ok {
		return Edge{}, &ReferentialError{EdgeFrom: spec.From, EdgeTo: spec.To, Missing: spec.To}
	}

	key := spec.From + "|" + spec.Relation + "|" + spec.To
	e, ok := g.edges[key]
	if !ok {
		e = &Edge{
			ID:       uuid.NewString(),
			From:     spec.From,
			To:       spec.To,
			Relation: spec.Relation,
		}
		g.edges[key] = e
	}
	if spec.Label != "" {
		e.Label = spec.Label
	}
	e.Strength = spec.Strength
	e.UpdatedAt = g.now()

	if err := g.writeSnapshotLocked(); err != nil {
		return *e, err
	}
	return *e, nil
}

// SetNodeStatus mutates status, percentComplete and notes of an existing
// node. Unknown ids fail with NotFoundError. Omitting the percentage applies
// the status default.
func (g *Graph) SetNodeStatus(id string, update StatusUpdate) (Node, error) {
	if !ValidStatus(update.Status) {
		return Node{}, fmt.Errorf("world: unknown node status %q", update.Status)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return Node{}, &NotFoundError{ID: id}
	}

	n.Status = update.Status
	if update.PercentComplete != nil {
		n.PercentComplete = clampPct(*update.PercentComplete)
	} else {
		n.PercentComplete = defaultPercent[update.Status]
	}
	if update.Notes != "" {
		n.Notes = update.Notes
	}
	n.UpdatedAt = g.now()

	if err := g.writeSnapshotLocked(); err != nil {
		return *n, err
	}
	logging.World("node %s -> %s (%.0f%%)", id, n.Status, n.PercentComplete)
	return *n, nil
}

// Progress is the arithmetic mean of percentComplete across all nodes,
// zero for an empty graph.
func (g *Graph) Progress() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.nodes) == 0 {
		return 0
	}
	sum := 0.0
	for _, n := range g.nodes {
		sum += n.PercentComplete
	}
	return sum / float64(len(g.nodes))
}

// Quality is the arithmetic mean of per-node quality, zero for an empty
// graph. Unassessed nodes contribute 0.
func (g *Graph) Quality() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.nodes) == 0 {
		return 0
	}
	sum := 0.0
	for _, n := range g.nodes {
		sum += n.Quality
	}
	return sum / float64(len(g.nodes))
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns copies of all nodes, in no particular order.
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, *n)
	}
	return out
}

// Edges returns copies of all edges, in no particular order.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, *e)
	}
	return out
}

// writeSnapshotLocked persists the full graph, rotating the previous
// snapshot into the single backup slot. Caller holds g.mu.
func (g *Graph) writeSnapshotLocked() error {
	if g.snapshotPath == "" {
		return nil
	}
	snap := snapshot{
		GraphID:   g.graphID,
		UpdatedAt: g.now(),
		Nodes:     g.nodes,
		Edges:     g.edges,
	}
	return persist.WriteWithBackup(g.snapshotPath, g.backupPath, snap)
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
