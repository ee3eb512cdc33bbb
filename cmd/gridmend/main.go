// gridmend runs the topology repair and voltage-drop pipeline over a
// JSON record batch and writes the sanitized result JSON to stdout.
//
// Usage:
//
//	gridmend -input records.json [-config config.yaml] [-site NAME]
//
// The input file holds {"nodes": [...], "edges": [...],
// "sourceHints": [...]} in the canonical flat record schema.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/osenergy/gridmend/pkg/analysis"
	"github.com/osenergy/gridmend/pkg/catalog"
	"github.com/osenergy/gridmend/pkg/network"
)

type inputFile struct {
	Nodes       []network.NodeRecord `json:"nodes"`
	Edges       []network.EdgeRecord `json:"edges"`
	SourceHints []network.SourceHint `json:"sourceHints"`
}

func main() {
	inputPath := flag.String("input", "", "Path to the records JSON file (required)")
	configPath := flag.String("config", "", "Optional YAML config file")
	site := flag.String("site", "", "Site name recorded in the result envelope")
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "gridmend: -input is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg := analysis.DefaultConfig()
	cat := catalog.Default()
	if *configPath != "" {
		var err error
		cfg, cat, err = analysis.LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "gridmend: %v\n", err)
			os.Exit(1)
		}
	}
	if *site != "" {
		cfg.Site = *site
	}

	data, err := os.ReadFile(*inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gridmend: read input: %v\n", err)
		os.Exit(1)
	}
	var input inputFile
	if err := json.Unmarshal(data, &input); err != nil {
		fmt.Fprintf(os.Stderr, "gridmend: parse input: %v\n", err)
		os.Exit(1)
	}

	pipeline, err := analysis.New(cat, cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gridmend: %v\n", err)
		os.Exit(1)
	}

	result, err := pipeline.Run(input.Nodes, input.Edges, input.SourceHints)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gridmend: %v\n", err)
		os.Exit(1)
	}

	out, err := analysis.Encode(result)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gridmend: encode result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
