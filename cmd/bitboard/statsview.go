package main

import (
	"log"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const statsviewURL = "/debug/statsview"

// launchStatsview serves runtime charts of the daemon on addr.
func launchStatsview(addr string) {
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(addr))
		mgr := statsview.New()
		mgr.Start()
	}()

	log.Printf("bitboard: stats at http://%v%v", addr, statsviewURL)
}
