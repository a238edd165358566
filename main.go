package main

import (
	"log/slog"
	"os"

	"github.com/Adarsh-Kmt/WyvernOS/monitor"
	"github.com/Adarsh-Kmt/WyvernOS/page_table"
	"github.com/Adarsh-Kmt/WyvernOS/physical_memory"
	"github.com/Adarsh-Kmt/WyvernOS/swap"
)

func main() {

	swapManager, err := swap.NewDirectIOSwapManager("swap_file")

	if err != nil {
		slog.Error(err.Error(), "function", "main")
		os.Exit(1)
	}

	engine, err := NewVMEngine(4, swapManager)

	if err != nil {
		slog.Error(err.Error(), "function", "main")
		os.Exit(1)
	}

	defer engine.Close()

	proc := engine.StartProcess("demo")

	// install more pages than there are frames, so the clock evictor has to
	// push the cold ones out to swap.
	data := make([]byte, physical_memory.PAGE_SIZE)

	for i := 0; i < 6; i++ {

		page := page_table.VirtAddr(0x8048000 + i*physical_memory.PAGE_SIZE)

		for j := range data {
			data[j] = byte(i)
		}

		if _, err := engine.InstallPage(proc, page, data); err != nil {
			slog.Error(err.Error(), "function", "main", "page", page)
			os.Exit(1)
		}
	}

	stats := engine.VMStats()

	slog.Info("demand paging demo complete",
		"tracked", stats.Tracked,
		"pinned", stats.Pinned,
		"evictions", stats.Evictions,
		"free frames", stats.FreeFrames)

	server, err := monitor.NewServer("localhost:8080", engine)

	if err != nil {
		slog.Error(err.Error(), "function", "main")
		os.Exit(1)
	}

	slog.Info("monitor listening on " + server.Addr().String())

	server.Run()
}
