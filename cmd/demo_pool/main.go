// Command demo_pool loads pool sizing from an ini file and drives a
// scripted allocate/free workload against it, reporting occupancy at
// the end. It is a consumer of the mempool package, the same way the
// teacher's cmd/demo_* programs consume its library packages without
// redefining them.
package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/ini.v1"

	"github.com/nxt-io/go-mempool/logger"
	"github.com/nxt-io/go-mempool/mempool"
)

func loadConfig(path string) (mempool.Config, error) {
	cfg := mempool.Config{
		ClusterSize:   2 * 1024 * 1024,
		PageAlignment: 16,
		PageSize:      4096,
		MinChunkSize:  32,
	}

	if path == "" {
		return cfg, nil
	}

	f, err := ini.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("loading %s: %w", path, err)
	}

	sec := f.Section("pool")
	cfg.ClusterSize = uint32(sec.Key("cluster_size").MustInt(int(cfg.ClusterSize)))
	cfg.PageAlignment = uint32(sec.Key("page_alignment").MustInt(int(cfg.PageAlignment)))
	cfg.PageSize = uint32(sec.Key("page_size").MustInt(int(cfg.PageSize)))
	cfg.MinChunkSize = uint32(sec.Key("min_chunk_size").MustInt(int(cfg.MinChunkSize)))

	return cfg, nil
}

func main() {
	cfgPath := flag.String("config", "", "path to an ini file with a [pool] section")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	if err := mempool.TestSizes(cfg); err != nil {
		logger.Errorf("invalid pool sizes: %v", err)
		os.Exit(1)
	}

	p, err := mempool.New(cfg)
	if err != nil {
		logger.Errorf("creating pool: %v", err)
		os.Exit(1)
	}

	logger.Infof("pool created: cluster_size=%d page_size=%d min_chunk_size=%d",
		cfg.ClusterSize, cfg.PageSize, cfg.MinChunkSize)

	var live [][]byte

	for i := 0; i < 64; i++ {
		size := 16 << (i % 6)
		b := p.Alloc(size)
		if b == nil {
			logger.Warnf("allocation of %d bytes failed", size)
			continue
		}
		live = append(live, b)

		if i%3 == 0 && len(live) > 1 {
			p.Free(live[0])
			live = live[1:]
		}
	}

	logger.Infof("workload done, %d blocks still live, pool empty=%v", len(live), p.IsEmpty())

	for _, b := range live {
		p.Free(b)
	}

	logger.Infof("pool empty after draining=%v", p.IsEmpty())
}
