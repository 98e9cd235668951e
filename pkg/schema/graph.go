// Package schema builds and queries the schema knowledge graph: an
// immutable, in-memory representation of tables, columns, and their
// declared relationships. The graph is constructed once per schema
// version and shared read-only across planning requests; all query
// operations are pure reads and safe for concurrent use.
package schema

import "strings"

// NodeType distinguishes table nodes from column nodes.
type NodeType string

// Node type constants.
const (
	NodeTable  NodeType = "table"
	NodeColumn NodeType = "column"
)

// Metadata carries per-node schema facts.
type Metadata struct {
	PrimaryKey  bool
	DataType    string
	Description string
}

// Node is a vertex in the schema graph, identified by its qualified name:
// "funds" for a table, "funds.total_assets" for a column. Nodes are
// immutable after graph construction.
type Node struct {
	Name  string
	Type  NodeType
	Table string // owning table; empty for table nodes
	Meta  Metadata
}

// ColumnName returns the bare column name for column nodes.
func (n *Node) ColumnName() string {
	if n.Type != NodeColumn {
		return ""
	}
	if i := strings.IndexByte(n.Name, '.'); i >= 0 {
		return n.Name[i+1:]
	}
	return n.Name
}

// RelType is the declared relationship kind of an edge.
type RelType string

// Relationship kinds.
const (
	OneToMany  RelType = "one-to-many"
	ManyToOne  RelType = "many-to-one"
	ManyToMany RelType = "many-to-many"
)

// Edge connects two table nodes. Direction follows the declaration
// (From is the parent side for one-to-many), but traversal for
// reachability goes both ways.
type Edge struct {
	From       string
	To         string
	Rel        RelType
	FromColumn string
	ToColumn   string
}

// Other returns the endpoint opposite to the given table.
func (e *Edge) Other(table string) string {
	if e.From == table {
		return e.To
	}
	return e.From
}

// Graph is the schema knowledge graph. It owns the node map and the
// adjacency structure over relationship edges. Read-only once built.
type Graph struct {
	nodes map[string]*Node
	order []string // node names in insertion order
	edges []*Edge  // declaration order; BFS ties resolve by this order
	adj   map[string][]int
}

func newGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		adj:   make(map[string][]int),
	}
}

func (g *Graph) addNode(n *Node) {
	if _, ok := g.nodes[n.Name]; ok {
		return
	}
	g.nodes[n.Name] = n
	g.order = append(g.order, n.Name)
}

func (g *Graph) addEdge(e *Edge) {
	idx := len(g.edges)
	g.edges = append(g.edges, e)
	g.adj[e.From] = append(g.adj[e.From], idx)
	if e.To != e.From {
		g.adj[e.To] = append(g.adj[e.To], idx)
	}
}

// Node returns the node with the given qualified name, or nil.
func (g *Graph) Node(name string) *Node {
	return g.nodes[name]
}

// Table returns the table node with the given name, or nil.
func (g *Graph) Table(name string) *Node {
	n := g.nodes[name]
	if n == nil || n.Type != NodeTable {
		return nil
	}
	return n
}

// Column returns the column node table.column, or nil.
func (g *Graph) Column(table, column string) *Node {
	n := g.nodes[table+"."+column]
	if n == nil || n.Type != NodeColumn {
		return nil
	}
	return n
}

// Tables returns all table names in insertion order.
func (g *Graph) Tables() []string {
	var out []string
	for _, name := range g.order {
		if g.nodes[name].Type == NodeTable {
			out = append(out, name)
		}
	}
	return out
}

// ColumnsOf returns the column nodes of a table in insertion order.
func (g *Graph) ColumnsOf(table string) []*Node {
	var out []*Node
	for _, name := range g.order {
		n := g.nodes[name]
		if n.Type == NodeColumn && n.Table == table {
			out = append(out, n)
		}
	}
	return out
}

// ColumnNodes returns every column node in insertion order.
func (g *Graph) ColumnNodes() []*Node {
	var out []*Node
	for _, name := range g.order {
		if n := g.nodes[name]; n.Type == NodeColumn {
			out = append(out, n)
		}
	}
	return out
}

// Relationships returns the edges where table is the declared source
// (outgoing) and target (incoming).
func (g *Graph) Relationships(table string) (outgoing, incoming []*Edge) {
	for _, idx := range g.adj[table] {
		e := g.edges[idx]
		if e.From == table {
			outgoing = append(outgoing, e)
		}
		if e.To == table {
			incoming = append(incoming, e)
		}
	}
	return outgoing, incoming
}

// Edges returns all edges in declaration order.
func (g *Graph) Edges() []*Edge {
	return g.edges
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of relationship edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }
