package main

import (
	"os"

	"github.com/bradleyjkemp/memviz"

	"github.com/ezrec/bitboard/config"
)

// writeGraph writes the resolved board configuration as a Graphviz graph.
func writeGraph(name string, cfg *config.Config) (err error) {
	file, err := os.Create(name)
	if err != nil {
		return
	}

	memviz.Map(file, cfg)

	err = file.Close()
	return
}
