package main

// filemeshdot program
// Reads a share's Ancestry table directly off its database and writes a
// graphviz DOT file of its change-derivation edges, in the same
// dot.NewGraph(dot.Directed)/createGraphEdges shape the teacher's
// cmd/gitgraph tool builds from git commit parentage -- here the graph
// is ancestry edges (new change -> old change) instead of commit
// parents.

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/emicklei/dot"
	graphviz "github.com/goccy/go-graphviz"
	"github.com/perforce/p4prometheus/version"
	"github.com/rcowham/filemesh/config"
	"github.com/rcowham/filemesh/id"
	"github.com/rcowham/filemesh/schema"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

func main() {
	var (
		root = kingpin.Arg(
			"root",
			"Share root directory.",
		).Required().String()
		configFile = kingpin.Flag(
			"config",
			"Config file for filemesh.",
		).Default("filemesh.yaml").Short('c').String()
		outputDot = kingpin.Flag(
			"output",
			"Graphviz dot file to write the ancestry graph to.",
		).Default("ancestry.dot").Short('o').String()
		outputPNG = kingpin.Flag(
			"png",
			"(Optional) PNG file to additionally render via goccy/go-graphviz.",
		).String()
		debug = kingpin.Flag(
			"debug",
			"Enable debugging level.",
		).Default("0").Int()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(version.Print("filemeshdot")).Author("Robert Cowham")
	kingpin.CommandLine.Help = "Exports a filemesh share's ancestry graph to a graphviz DOT file.\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := logrus.New()
	logger.Level = logrus.InfoLevel
	if *debug > 0 {
		logger.Level = logrus.DebugLevel
	}
	logger.Infof("%v", version.Print("filemeshdot"))

	cfg, err := config.LoadConfigFile(*configFile)
	if err != nil {
		logger.Errorf("error loading config file: %v", err)
		os.Exit(1)
	}

	dbPath := filepath.Join(*root, "."+cfg.AppName, "database")
	sch, err := schema.Open(dbPath, logger)
	if err != nil {
		logger.Errorf("error opening share database at %q: %v", dbPath, err)
		os.Exit(1)
	}
	defer sch.Close()

	edges, err := sch.Queries.ListAncestry()
	if err != nil {
		logger.Errorf("error listing ancestry: %v", err)
		os.Exit(1)
	}
	logger.Infof("Ancestry edges: %d", len(edges))

	g := buildGraph(edges)

	if err := writeDot(*outputDot, g.String()); err != nil {
		logger.Errorf("error writing dot file: %v", err)
		os.Exit(1)
	}

	if *outputPNG != "" {
		if err := renderPNG(g.String(), *outputPNG); err != nil {
			logger.Errorf("error rendering png: %v", err)
			os.Exit(1)
		}
	}
}

// buildGraph renders ancestry edges (new change -> old change) as a
// directed dot graph, one node per distinct change stamp.
func buildGraph(edges []schema.AncestryEdge) *dot.Graph {
	g := dot.NewGraph(dot.Directed)
	nodes := make(map[id.NodeID]dot.Node)
	nodeFor := func(n id.NodeID) dot.Node {
		if dn, ok := nodes[n]; ok {
			return dn
		}
		dn := g.Node(fmt.Sprintf("%d:%d", n.Instance, n.Index))
		nodes[n] = dn
		return dn
	}
	for _, e := range edges {
		old := nodeFor(e.Old)
		next := nodeFor(e.New)
		g.Edge(next, old, "derives")
	}
	return g
}

func writeDot(path, content string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte(content))
	return err
}

func renderPNG(dotContent, path string) error {
	gv := graphviz.New()
	graph, err := graphviz.ParseBytes([]byte(dotContent))
	if err != nil {
		return err
	}
	defer graph.Close()
	return gv.RenderFilename(graph, graphviz.PNG, path)
}
